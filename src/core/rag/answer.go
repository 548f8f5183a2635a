package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scholarbot/src/log"
)

const DefaultHistoryWindow = 5

// persistTimeout bounds the detached writes that record an exchange after the
// caller's context is already cancelled.
const persistTimeout = 10 * time.Second

// AnswererConfig fixes the generation-orchestration policy for a run.
type AnswererConfig struct {
	// HistoryWindow is the number of most recent exchanges included in the
	// prompt.
	HistoryWindow int
	MaxRetry      int
}

// Answerer assembles grounded prompts, streams the model's answer and keeps
// the session log consistent with what the caller actually saw.
type Answerer struct {
	retriever *Retriever
	llm       LLMProvider
	history   HistoryStore
	registry  DocumentRegistry
	maint     *Maintenance
	cfg       AnswererConfig

	mu     sync.Mutex
	active map[string]struct{}
}

func NewAnswerer(retriever *Retriever, llm LLMProvider, history HistoryStore, registry DocumentRegistry, maint *Maintenance, cfg AnswererConfig) *Answerer {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Answerer{
		retriever: retriever,
		llm:       llm,
		history:   history,
		registry:  registry,
		maint:     maint,
		cfg:       cfg,
		active:    make(map[string]struct{}),
	}
}

// Answer streams the answer to question within the given session. Only one
// generation per session may run at a time; a concurrent call fails with
// ErrSessionBusy. Cancelling ctx stops token forwarding within one token and
// persists the partial answer marked incomplete.
func (a *Answerer) Answer(ctx context.Context, sessionID, question string) (<-chan AnswerEvent, error) {
	if err := a.acquire(sessionID); err != nil {
		return nil, err
	}
	release := func() { a.releaseSession(sessionID) }

	recent, err := a.recentHistory(ctx, sessionID)
	if err != nil {
		release()
		return nil, err
	}

	sources, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	if len(sources) == 0 {
		log.Info("no supporting context found, using fallback prompt", "session_id", sessionID)
	}

	names, err := a.documentNames(ctx, sources)
	if err != nil {
		release()
		return nil, err
	}

	system, prompt, err := buildPrompt(recent, sources, names, question)
	if err != nil {
		release()
		return nil, err
	}

	if err := a.history.Append(ctx, &ChatMessage{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   question,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		release()
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	stream, err := a.llm.GenerateStream(ctx, system, prompt)
	if err != nil {
		a.persistAssistant(sessionID, "", nil, true)
		release()
		return nil, fmt.Errorf("failed to start generation: %w", err)
	}

	out := make(chan AnswerEvent)
	go func() {
		defer release()
		defer close(out)
		a.forward(ctx, sessionID, sources, names, stream, out)
	}()
	return out, nil
}

// forward pumps tokens from the model stream to the caller. The persisted
// partial text is always exactly the prefix the caller received.
func (a *Answerer) forward(ctx context.Context, sessionID string, sources []RetrievedChunk, names map[string]string, stream <-chan StreamChunk, out chan<- AnswerEvent) {
	var answer []byte
	for {
		select {
		case <-ctx.Done():
			a.persistAssistant(sessionID, string(answer), nil, true)
			return
		case chunk, ok := <-stream:
			if !ok {
				// Stream ended without a done marker: treat as a failure.
				a.persistAssistant(sessionID, string(answer), nil, true)
				a.emit(ctx, out, AnswerEvent{Err: fmt.Errorf("%w: generation stream ended early", ErrModelUnavailable)})
				return
			}
			if chunk.Err != nil {
				a.persistAssistant(sessionID, string(answer), nil, true)
				a.emit(ctx, out, AnswerEvent{Err: chunk.Err})
				return
			}
			if chunk.Content != "" {
				select {
				case out <- AnswerEvent{Token: chunk.Content}:
					answer = append(answer, chunk.Content...)
				case <-ctx.Done():
					a.persistAssistant(sessionID, string(answer), nil, true)
					return
				}
			}
			if chunk.Done {
				citations := resolveCitations(string(answer), sources, names)
				a.persistAssistant(sessionID, string(answer), citations, false)
				a.emit(ctx, out, AnswerEvent{Done: true, Citations: citations})
				a.maint.QueryCompleted()
				return
			}
		}
	}
}

func (a *Answerer) emit(ctx context.Context, out chan<- AnswerEvent, ev AnswerEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// persistAssistant records the assistant's message on a detached context, so
// cancellation of the request cannot lose the exchange.
func (a *Answerer) persistAssistant(sessionID, content string, citations []Citation, incomplete bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := &ChatMessage{
		MessageID:  uuid.New().String(),
		SessionID:  sessionID,
		Role:       RoleAssistant,
		Content:    content,
		Citations:  citations,
		Incomplete: incomplete,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.history.Append(ctx, msg); err != nil {
		log.Error(err, "failed to persist assistant message", "session_id", sessionID, "incomplete", incomplete)
	}
}

// recentHistory loads the bounded window of the session log used in prompts.
func (a *Answerer) recentHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	messages, err := a.history.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	limit := a.cfg.HistoryWindow * 2
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (a *Answerer) documentNames(ctx context.Context, sources []RetrievedChunk) (map[string]string, error) {
	names := make(map[string]string)
	for _, src := range sources {
		if _, ok := names[src.DocumentID]; ok {
			continue
		}
		doc, err := a.registry.Get(ctx, src.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve document name: %w", err)
		}
		if doc != nil {
			names[src.DocumentID] = doc.Name
		}
	}
	return names, nil
}

func (a *Answerer) acquire(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.active[sessionID]; busy {
		return fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	a.active[sessionID] = struct{}{}
	return nil
}

func (a *Answerer) releaseSession(sessionID string) {
	a.mu.Lock()
	delete(a.active, sessionID)
	a.mu.Unlock()
}

package rag

import (
	"bytes"
	"fmt"
	"text/template"
)

const GroundedSystemPrompt = `You are a research assistant. Answer the question using only the document excerpts provided in the prompt. Each excerpt is tagged with a source marker such as [S1]. When you use information from an excerpt, include its marker in your answer. If the excerpts do not contain enough information, say so clearly instead of guessing.`

const UnsupportedSystemPrompt = `You are a research assistant. No supporting context was found in the document library for this question. Answer from general knowledge if you can, but state clearly that the answer is not supported by the indexed documents, and do not invent source markers.`

const groundedPromptTmpl = `{{if .History}}Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{end}}
{{end}}Document excerpts:
{{range .Sources}}{{.Marker}} {{.Name}}{{if .Page}} (page {{.Page}}){{end}}:
{{.Text}}

{{end}}Question: {{.Question}}

Answer:`

const unsupportedPromptTmpl = `{{if .History}}Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{end}}
{{end}}Question: {{.Question}}

Answer:`

type promptSource struct {
	Marker string
	Name   string
	Page   int
	Text   string
}

type promptData struct {
	History  []ChatMessage
	Sources  []promptSource
	Question string
}

var (
	groundedTemplate    = template.Must(template.New("grounded").Parse(groundedPromptTmpl))
	unsupportedTemplate = template.Must(template.New("unsupported").Parse(unsupportedPromptTmpl))
)

// buildPrompt assembles the generation prompt deterministically from the
// bounded history, the retrieved chunks and the new question. Markers are
// assigned in retrieval order: [S1], [S2], ...
func buildPrompt(history []ChatMessage, sources []RetrievedChunk, names map[string]string, question string) (system, prompt string, err error) {
	data := promptData{History: history, Question: question}
	for i, src := range sources {
		data.Sources = append(data.Sources, promptSource{
			Marker: citationMarker(i),
			Name:   names[src.DocumentID],
			Page:   src.PageNumber,
			Text:   src.Text,
		})
	}

	tmpl, systemPrompt := groundedTemplate, GroundedSystemPrompt
	if len(sources) == 0 {
		tmpl, systemPrompt = unsupportedTemplate, UnsupportedSystemPrompt
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return systemPrompt, buf.String(), nil
}

func citationMarker(i int) string {
	return fmt.Sprintf("[S%d]", i+1)
}

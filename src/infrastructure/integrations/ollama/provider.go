package ollama

import (
	"context"

	"scholarbot/src/core/rag"
)

// Provider binds a Client to the configured embedding and generation models,
// implementing the pipeline's LLMProvider interface.
type Provider struct {
	client        *Client
	embedModel    string
	generateModel string
	temperature   float64
}

func NewProvider(client *Client, embedModel, generateModel string, temperature float64) *Provider {
	return &Provider{
		client:        client,
		embedModel:    embedModel,
		generateModel: generateModel,
		temperature:   temperature,
	}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.Embed(ctx, p.embedModel, text)
}

func (p *Provider) GenerateStream(ctx context.Context, system, prompt string) (<-chan rag.StreamChunk, error) {
	return p.client.GenerateStream(ctx, p.generateModel, system, prompt, map[string]interface{}{
		"temperature": p.temperature,
	})
}

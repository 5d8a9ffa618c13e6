// File: internal/infra/adapters/ai/noop_ai.go
package ai

import (
	"context"
	"fmt"

	"ai-article-queue/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAdapter)(nil)

// NoopAdapter is a provider stub for local development without API keys.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) Generate(_ context.Context, _, _, prompt string) (string, error) {
	return fmt.Sprintf("<article><h1>Echo</h1><p>%s</p></article>", prompt), nil
}

func (n *NoopAdapter) GenerateStream(_ context.Context, _, _, prompt string, emit func(chunk string) error) error {
	return emit("echo: " + prompt)
}

func (n *NoopAdapter) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

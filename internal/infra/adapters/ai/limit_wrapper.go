// File: internal/infra/adapters/ai/limit_wrapper.go
package ai

import (
	"context"
	"time"

	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

// limitedAI caps concurrent in-flight provider calls with a semaphore and
// records call latency per provider.
type limitedAI struct {
	inner    adapter.AIServiceAdapter
	provider string
	sem      chan struct{}
}

// NewLimited wraps inner so at most n calls run concurrently. n <= 0
// disables the cap.
func NewLimited(inner adapter.AIServiceAdapter, provider string, n int) adapter.AIServiceAdapter {
	if n <= 0 {
		return inner
	}
	return &limitedAI{inner: inner, provider: provider, sem: make(chan struct{}, n)}
}

func (l *limitedAI) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedAI) release() { <-l.sem }

func (l *limitedAI) Generate(ctx context.Context, model, systemPrompt, prompt string) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()

	start := time.Now()
	out, err := l.inner.Generate(ctx, model, systemPrompt, prompt)
	metrics.ObserveAICall(l.provider, "generate", int(time.Since(start).Milliseconds()), err == nil)
	return out, err
}

func (l *limitedAI) GenerateStream(ctx context.Context, model, systemPrompt, prompt string, emit func(chunk string) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	start := time.Now()
	err := l.inner.GenerateStream(ctx, model, systemPrompt, prompt, emit)
	metrics.ObserveAICall(l.provider, "stream", int(time.Since(start).Milliseconds()), err == nil)
	return err
}

func (l *limitedAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()

	start := time.Now()
	out, err := l.inner.Embed(ctx, texts)
	metrics.ObserveAICall(l.provider, "embed", int(time.Since(start).Milliseconds()), err == nil)
	return out, err
}

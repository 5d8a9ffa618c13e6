package adapter

import "context"

// AIServiceAdapter is the port for the generative model: given a prompt,
// return text, optionally as a stream of fragments.
type AIServiceAdapter interface {
	// Generate returns the full response text in one call.
	Generate(ctx context.Context, model, systemPrompt, prompt string) (string, error)

	// GenerateStream delivers the response as small text fragments through
	// emit. A non-nil error from emit aborts the stream.
	GenerateStream(ctx context.Context, model, systemPrompt, prompt string, emit func(chunk string) error) error

	// Embed returns one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

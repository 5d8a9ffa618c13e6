// File: internal/usecase/answer_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/infra/metrics"
)

const (
	ResponseTypeRAG      = "rag_with_sources"
	ResponseTypeFallback = "general_fallback"
	ResponseTypeError    = "error_fallback"

	answerInitialMessage = "Processing your query..."
	apologyFragment      = "I'm here to help! Please ask me a question."

	defaultAnswerPrompt = "You are a helpful assistant for our community site. " +
		"Answer using the provided context when it is relevant, and from " +
		"general knowledge when it is not."
)

// SourceRef is one retained retrieval hit as shown to the client.
type SourceRef struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevance_score"`
	TextSnippet    string  `json:"text_snippet"`
}

// AnswerMetadata is the first record of every answer stream.
type AnswerMetadata struct {
	InitialMessage string      `json:"initial_message"`
	ResponseType   string      `json:"response_type"`
	Sources        []SourceRef `json:"sources"`
	UniqueSources  []string    `json:"unique_sources,omitempty"`
}

// TextChunk is one answer fragment.
type TextChunk struct {
	TextChunk string `json:"text_chunk"`
}

// StreamError signals a mid-stream failure; fallback chunks follow it.
type StreamError struct {
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	ResponseType string `json:"response_type"`
}

// Compile-time check
var _ AnswerUseCase = (*answerUC)(nil)

// AnswerUseCase answers a question over the indexed posts, streaming
// records through emit. Exactly one AnswerMetadata record is emitted
// first; the only error ever returned is a failed emit, so the transport
// can tell a dropped client from an upstream failure.
type AnswerUseCase interface {
	Answer(ctx context.Context, query string, threshold float64, emit func(record any) error) error
	RebuildIndex(ctx context.Context) (int, error)
}

type answerUC struct {
	retriever    adapter.Retriever
	ai           adapter.AIServiceAdapter
	systemPrompt string
	topK         int
	log          zerolog.Logger
}

// NewAnswerUseCase builds the streaming answer flow. An empty
// systemPrompt selects the built-in assistant prompt.
func NewAnswerUseCase(retriever adapter.Retriever, ai adapter.AIServiceAdapter, systemPrompt string, topK int, logger zerolog.Logger) *answerUC {
	if systemPrompt == "" {
		systemPrompt = defaultAnswerPrompt
	}
	return &answerUC{
		retriever:    retriever,
		ai:           ai,
		systemPrompt: systemPrompt,
		topK:         topK,
		log:          logger.With().Str("component", "answer_uc").Logger(),
	}
}

func (a *answerUC) Answer(ctx context.Context, query string, threshold float64, emit func(record any) error) error {
	query = strings.TrimSpace(query)

	hits, err := a.search(ctx, query)
	if err != nil {
		a.log.Error().Err(err).Msg("retrieval failed before metadata")
		metrics.IncAnswer(ResponseTypeError)
		metrics.IncAnswerStreamError()
		if err := emit(AnswerMetadata{
			InitialMessage: answerInitialMessage,
			ResponseType:   ResponseTypeError,
		}); err != nil {
			return err
		}
		if err := emit(StreamError{Error: true, Message: err.Error(), ResponseType: ResponseTypeError}); err != nil {
			return err
		}
		return a.streamFallback(ctx, query, emit)
	}

	sources := retainSources(hits, threshold)
	if sources == nil {
		metrics.IncAnswer(ResponseTypeFallback)
		if err := emit(AnswerMetadata{
			InitialMessage: answerInitialMessage,
			ResponseType:   ResponseTypeFallback,
		}); err != nil {
			return err
		}
		return a.streamFallback(ctx, query, emit)
	}

	metrics.IncAnswer(ResponseTypeRAG)
	if err := emit(AnswerMetadata{
		InitialMessage: answerInitialMessage,
		ResponseType:   ResponseTypeRAG,
		Sources:        sources,
		UniqueSources:  uniqueURLs(sources),
	}); err != nil {
		return err
	}

	prompt := groundedPrompt(query, hits, threshold)
	if err := a.stream(ctx, a.systemPrompt, prompt, emit); err != nil {
		if isEmitError(err) {
			return unwrapEmit(err)
		}
		a.log.Error().Err(err).Msg("grounded answer stream failed")
		metrics.IncAnswerStreamError()
		if err := emit(StreamError{Error: true, Message: err.Error(), ResponseType: ResponseTypeError}); err != nil {
			return err
		}
		return a.streamFallback(ctx, query, emit)
	}
	return nil
}

func (a *answerUC) RebuildIndex(ctx context.Context) (int, error) {
	return a.retriever.Rebuild(ctx)
}

func (a *answerUC) search(ctx context.Context, query string) ([]model.ScoredDocument, error) {
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := a.retriever.Ensure(ctx); err != nil {
		return nil, err
	}
	return a.retriever.Search(ctx, query, a.topK)
}

// stream runs a token stream and forwards each fragment. Emit failures
// are wrapped so the caller can separate a gone client from a model error.
func (a *answerUC) stream(ctx context.Context, systemPrompt, prompt string, emit func(record any) error) error {
	return a.ai.GenerateStream(ctx, "", systemPrompt, prompt, func(chunk string) error {
		if err := emit(TextChunk{TextChunk: chunk}); err != nil {
			return &emitError{err: err}
		}
		return nil
	})
}

// streamFallback answers without retrieval context. It never fails past
// its boundary: when the model call errors a static apology is emitted
// instead. Only a failed emit is returned.
func (a *answerUC) streamFallback(ctx context.Context, query string, emit func(record any) error) error {
	err := a.stream(ctx, a.systemPrompt, query, emit)
	if err == nil {
		return nil
	}
	if isEmitError(err) {
		return unwrapEmit(err)
	}
	a.log.Warn().Err(err).Msg("fallback stream failed, emitting apology")
	return emit(TextChunk{TextChunk: apologyFragment})
}

// retainSources applies the routing decision. A nil return means the
// general fallback path; an empty-but-non-nil return cannot occur since
// the best hit always clears the threshold it was compared against.
func retainSources(hits []model.ScoredDocument, threshold float64) []SourceRef {
	if len(hits) == 0 {
		return nil
	}
	max := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score > max {
			max = h.Score
		}
	}
	if max < threshold {
		return nil
	}

	sources := make([]SourceRef, 0, len(hits))
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		sources = append(sources, SourceRef{
			Title:          h.Title,
			URL:            h.URL,
			RelevanceScore: math.Round(h.Score*1000) / 1000,
			TextSnippet:    snippet(h.Content, 200),
		})
	}
	return sources
}

func uniqueURLs(sources []SourceRef) []string {
	seen := make(map[string]struct{}, len(sources))
	urls := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.URL]; ok {
			continue
		}
		seen[s.URL] = struct{}{}
		urls = append(urls, s.URL)
	}
	return urls
}

// groundedPrompt packs the retained documents around the query so the
// model answers from them rather than prior knowledge.
func groundedPrompt(query string, hits []model.ScoredDocument, threshold float64) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n---------------------\n")
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		fmt.Fprintf(&b, "Title: %s\n%s\n\n", h.Title, h.Content)
	}
	b.WriteString("---------------------\nGiven the context information and not prior knowledge, answer the query.\n")
	fmt.Fprintf(&b, "Query: %s\nAnswer:", query)
	return b.String()
}

type emitError struct{ err error }

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

func isEmitError(err error) bool {
	var ee *emitError
	return errors.As(err, &ee)
}

func unwrapEmit(err error) error {
	var ee *emitError
	if errors.As(err, &ee) {
		return ee.err
	}
	return err
}

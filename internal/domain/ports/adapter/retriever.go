package adapter

import (
	"context"

	"ai-article-queue/internal/domain/model"
)

// Retriever is the similarity-search collaborator behind the answer engine.
// Implementations own the index snapshot and its persistence.
type Retriever interface {
	// Ensure makes the index usable, building or loading it on first use.
	// Concurrent callers block until the one initializer finishes.
	Ensure(ctx context.Context) error

	// Search returns up to topK hits scored against the query.
	Search(ctx context.Context, query string, topK int) ([]model.ScoredDocument, error)

	// Rebuild discards any persisted state, reindexes from source, and
	// atomically swaps the new snapshot in. Returns documents indexed.
	Rebuild(ctx context.Context) (int, error)
}

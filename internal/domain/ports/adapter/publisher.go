package adapter

import (
	"context"

	"ai-article-queue/internal/domain/model"
)

// Article is the unit submitted to the external publishing API.
type Article struct {
	Title   string
	Slug    string
	Name    string
	Content string
}

// PublisherAdapter is the external publishing API contract.
type PublisherAdapter interface {
	// Login obtains an auth token. A failed login degrades to an empty
	// token; publish calls then fail individually and are recorded
	// per article.
	Login(ctx context.Context) (string, error)

	// Publish submits one article. Failures are returned inside the
	// outcome, never as an error, so one bad article cannot abort a batch.
	Publish(ctx context.Context, token string, article Article) model.PublishOutcome
}

package repository

import (
	"context"

	"ai-article-queue/internal/domain/model"
)

// DocumentRepository reads the source posts the answer index is built from.
type DocumentRepository interface {
	ListAll(ctx context.Context) ([]*model.Document, error)
}

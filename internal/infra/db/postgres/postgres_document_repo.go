package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo reads published posts that feed the answer index.
type DocumentRepo struct {
	pool    *pgxpool.Pool
	urlBase string
}

func NewDocumentRepo(pool *pgxpool.Pool, urlBase string) *DocumentRepo {
	return &DocumentRepo{pool: pool, urlBase: urlBase}
}

func (r *DocumentRepo) ListAll(ctx context.Context) ([]*model.Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT "Id", "Content", "Title" FROM "Community_Post";`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []*model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Content, &d.Title); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		d.URL = fmt.Sprintf("%s/%d", r.urlBase, d.ID)
		out = append(out, &d)
	}
	return out, rows.Err()
}

package repository

import (
	"context"

	"ai-article-queue/internal/domain/model"
)

// JobPatch names the client-editable fields of a pending job. Nil fields
// are left untouched; the repository maps set fields to explicit
// (column, value) pairs rather than concatenating statement text.
type JobPatch struct {
	Model     *string
	UserQuery *string
}

// Empty reports whether the patch would change nothing.
func (p JobPatch) Empty() bool { return p.Model == nil && p.UserQuery == nil }

// JobRepository is durable CRUD over generation jobs, keyed by request id.
// qx carries an optional transaction handle, pool access when nil.
type JobRepository interface {
	Insert(ctx context.Context, qx any, job *model.Job) error
	FindByID(ctx context.Context, qx any, requestID string) (*model.Job, error)
	// FindByOwner returns the owner's jobs newest first.
	FindByOwner(ctx context.Context, qx any, ownerID string) ([]*model.Job, error)
	// FindPending returns NOT PROCESSED jobs in FIFO timestamp order.
	FindPending(ctx context.Context, qx any) ([]*model.Job, error)
	CountPending(ctx context.Context, qx any) (int, error)
	// UpdateFields applies the patch; the caller checks eligibility.
	UpdateFields(ctx context.Context, qx any, requestID string, patch JobPatch) error
	// UpdateStatus persists a transition together with the result; a nil
	// result clears the stored column.
	UpdateStatus(ctx context.Context, qx any, requestID string, status model.JobStatus, result *model.JobResult) error
	SavePublishedIDs(ctx context.Context, qx any, requestID string, ids []int64) error
	// Delete removes the row and reports how many rows went away.
	Delete(ctx context.Context, qx any, requestID string) (int64, error)
}

// File: internal/usecase/queue_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/repository"
	"ai-article-queue/internal/infra/logging"
)

// Schedule exposes the worker timetable so queue estimates can include
// the wait until the next batch starts.
type Schedule interface {
	// NextRun reports when the next batch is due. ok is false before the
	// scheduler has started.
	NextRun() (time.Time, bool)
}

// EnqueueReceipt is returned to the client when a job is accepted.
type EnqueueReceipt struct {
	RequestID        string  `json:"request_id"`
	Status           string  `json:"status"`
	EstimatedMinutes float64 `json:"estimated_completion_time_minutes"`
	Message          string  `json:"message"`
}

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

type QueueUseCase interface {
	Enqueue(ctx context.Context, userQuery, modelName, name, ownerID string) (*EnqueueReceipt, error)
	GetStatus(ctx context.Context, requestID string) (*model.JobView, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.JobView, error)
	// UpdateIfPending applies the patch when the job is still waiting.
	// Ineligibility is reported as a message, not an error.
	UpdateIfPending(ctx context.Context, requestID string, patch repository.JobPatch) (string, error)
	DeleteIfPending(ctx context.Context, requestID string) error
	// Requeue resets a FAILED or stuck RUNNING job for another attempt.
	Requeue(ctx context.Context, requestID string) error
	CountPending(ctx context.Context) (int, error)
}

type queueUC struct {
	jobs            repository.JobRepository
	schedule        Schedule
	intervalMinutes int
	perJobMinutes   float64
	log             zerolog.Logger
}

func NewQueueUseCase(jobs repository.JobRepository, schedule Schedule, intervalMinutes int, perJobMinutes float64, logger zerolog.Logger) *queueUC {
	return &queueUC{
		jobs:            jobs,
		schedule:        schedule,
		intervalMinutes: intervalMinutes,
		perJobMinutes:   perJobMinutes,
		log:             logger.With().Str("component", "queue_uc").Logger(),
	}
}

func (q *queueUC) Enqueue(ctx context.Context, userQuery, modelName, name, ownerID string) (*EnqueueReceipt, error) {
	defer logging.TraceDuration(&q.log, "QueueUC.Enqueue")()

	userQuery = strings.TrimSpace(userQuery)
	if userQuery == "" || strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrInvalidArgument
	}

	job := &model.Job{
		RequestID: uuid.NewString(),
		UserQuery: userQuery,
		Model:     modelName,
		Name:      name,
		OwnerID:   ownerID,
		Status:    model.JobStatusNotProcessed,
		Timestamp: time.Now(),
	}
	if err := q.jobs.Insert(ctx, nil, job); err != nil {
		return nil, err
	}

	pending, err := q.jobs.CountPending(ctx, nil)
	if err != nil {
		// The job is queued; a broken estimate should not fail the call.
		q.log.Warn().Err(err).Msg("pending count unavailable for estimate")
		pending = 1
	}

	q.log.Info().Str("request_id", job.RequestID).Str("owner_id", ownerID).Msg("job queued")
	return &EnqueueReceipt{
		RequestID:        job.RequestID,
		Status:           "QUEUED",
		EstimatedMinutes: q.estimateMinutes(pending),
		Message:          "Your article generation request has been queued. Please note the request_id to check status later.",
	}, nil
}

func (q *queueUC) GetStatus(ctx context.Context, requestID string) (*model.JobView, error) {
	defer logging.TraceDuration(&q.log, "QueueUC.GetStatus")()

	job, err := q.jobs.FindByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	view := q.toView(job)
	if job.Status == model.JobStatusNotProcessed {
		if pending, err := q.jobs.CountPending(ctx, nil); err == nil {
			view.EstimatedMinutes = q.estimateMinutes(pending)
		}
	}
	return view, nil
}

func (q *queueUC) ListByOwner(ctx context.Context, ownerID string) ([]*model.JobView, error) {
	jobs, err := q.jobs.FindByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]*model.JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, q.toView(j))
	}
	return views, nil
}

func (q *queueUC) UpdateIfPending(ctx context.Context, requestID string, patch repository.JobPatch) (string, error) {
	job, err := q.jobs.FindByID(ctx, nil, requestID)
	if err != nil {
		return "", err
	}
	if !job.CanUpdate() {
		return "Cannot update: Request is not in NOT PROCESSED state.", nil
	}
	if patch.Empty() {
		return "Nothing to update.", nil
	}
	if err := q.jobs.UpdateFields(ctx, nil, requestID, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Request %s updated successfully.", requestID), nil
}

func (q *queueUC) DeleteIfPending(ctx context.Context, requestID string) error {
	job, err := q.jobs.FindByID(ctx, nil, requestID)
	if err != nil {
		return err
	}
	if !job.CanDelete() {
		return fmt.Errorf("%w: cannot delete request %s, its status is %q (only NOT PROCESSED requests can be deleted)",
			domain.ErrConflict, requestID, job.Status.Label())
	}
	affected, err := q.jobs.Delete(ctx, nil, requestID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (q *queueUC) Requeue(ctx context.Context, requestID string) error {
	job, err := q.jobs.FindByID(ctx, nil, requestID)
	if err != nil {
		return err
	}
	if !job.CanRequeue() {
		return fmt.Errorf("%w: cannot requeue request %s, its status is %q",
			domain.ErrConflict, requestID, job.Status.Label())
	}
	if err := q.jobs.UpdateStatus(ctx, nil, requestID, model.JobStatusNotProcessed, nil); err != nil {
		return err
	}
	q.log.Info().Str("request_id", requestID).Str("from", job.Status.Label()).Msg("job requeued")
	return nil
}

func (q *queueUC) CountPending(ctx context.Context) (int, error) {
	return q.jobs.CountPending(ctx, nil)
}

// estimateMinutes projects completion time as the backlog drain time plus
// the wait until the next batch starts. Before the scheduler reports a
// next run the full interval is assumed.
func (q *queueUC) estimateMinutes(pending int) float64 {
	wait := float64(q.intervalMinutes)
	if q.schedule != nil {
		if next, ok := q.schedule.NextRun(); ok {
			until := time.Until(next).Minutes()
			if until < 0 {
				until = 0
			}
			wait = until
		}
	}
	return float64(pending)*q.perJobMinutes + wait
}

func (q *queueUC) toView(job *model.Job) *model.JobView {
	view := &model.JobView{
		Status:       job.Status.Label(),
		UserQuery:    job.UserQuery,
		Model:        job.Model,
		Name:         job.Name,
		OwnerID:      job.OwnerID,
		RequestID:    job.RequestID,
		Timestamp:    job.Timestamp,
		PublishedIDs: job.PublishedIDs,
	}
	switch {
	case job.Result != nil:
		view.Result = job.Result
	case len(job.ResultRaw) > 0:
		// The stored bytes did not decode; expose them instead of hiding
		// the row behind an error.
		view.Result = map[string]any{
			"error": "stored result could not be decoded",
			"raw":   string(job.ResultRaw),
		}
	}
	return view
}

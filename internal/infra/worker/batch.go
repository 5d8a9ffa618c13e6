// File: internal/infra/worker/batch.go
package worker

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/repository"
	"ai-article-queue/internal/infra/logging"
	"ai-article-queue/internal/infra/metrics"
	"ai-article-queue/internal/usecase"
)

// runningPlaceholder is stored when a job enters RUNNING so status reads
// during processing show progress instead of a stale result.
var runningPlaceholder = &model.JobResult{Message: "Processing started..."}

// Batch drains the pending queue in FIFO order. Each job fails or
// succeeds on its own; nothing a single job does can abort the batch.
type Batch struct {
	jobs repository.JobRepository
	gen  usecase.GenerationUseCase
	log  zerolog.Logger
}

func NewBatch(jobs repository.JobRepository, gen usecase.GenerationUseCase, logger zerolog.Logger) *Batch {
	return &Batch{
		jobs: jobs,
		gen:  gen,
		log:  logger.With().Str("component", "worker_batch").Logger(),
	}
}

func (b *Batch) Run(ctx context.Context) {
	pending, err := b.jobs.FindPending(ctx, nil)
	if err != nil {
		b.log.Error().Err(err).Msg("pending jobs not fetched")
		return
	}
	if len(pending) == 0 {
		metrics.IncWorkerBatch("empty")
		return
	}

	metrics.IncWorkerBatch("run")
	start := time.Now()
	b.log.Info().Int("jobs", len(pending)).Msg("batch started")

	for _, job := range pending {
		if ctx.Err() != nil {
			b.log.Warn().Msg("batch interrupted by shutdown")
			break
		}
		b.processOne(ctx, job)
	}

	metrics.ObserveBatchDuration(time.Since(start).Seconds())
	b.log.Info().Dur("duration", time.Since(start)).Msg("batch finished")
}

func (b *Batch) processOne(ctx context.Context, job *model.Job) {
	// Collaborators below the pipeline pick the request id up from the
	// context for their own log lines.
	ctx = logging.WithRequestID(ctx, job.RequestID)
	log := b.log.With().Str("request_id", job.RequestID).Logger()

	if err := b.jobs.UpdateStatus(ctx, nil, job.RequestID, model.JobStatusRunning, runningPlaceholder); err != nil {
		log.Error().Err(err).Msg("job not marked running, skipping")
		return
	}

	start := time.Now()
	status, result := b.gen.Process(ctx, job)

	metrics.IncJobProcessed(strings.ToLower(status.Label()))
	if err := b.jobs.UpdateStatus(context.WithoutCancel(ctx), nil, job.RequestID, status, result); err != nil {
		log.Error().Err(err).Str("status", status.Label()).Msg("terminal status not persisted")
		return
	}
	log.Info().Str("status", status.Label()).Dur("duration", time.Since(start)).Msg("job finished")
}

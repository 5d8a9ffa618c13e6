// File: internal/infra/worker/supervisor.go
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/infra/metrics"
)

// BatchRunner processes one full batch of pending jobs.
type BatchRunner interface {
	Run(ctx context.Context)
}

// Supervisor owns the active-batch slot. At most one batch runs at a
// time; a trigger arriving while one is in flight is dropped, not queued.
type Supervisor struct {
	runner BatchRunner
	log    zerolog.Logger

	active atomic.Bool
	wg     sync.WaitGroup

	ctx context.Context
}

func NewSupervisor(runner BatchRunner, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		runner: runner,
		log:    logger.With().Str("component", "worker_supervisor").Logger(),
	}
}

// Start binds the supervisor to its lifetime context. Triggers submitted
// before Start are dropped.
func (s *Supervisor) Start(ctx context.Context) {
	s.ctx = ctx
}

// Submit claims the batch slot and runs one batch in the background.
// Non-blocking; overlapping triggers are counted and discarded.
func (s *Supervisor) Submit() {
	if s.ctx == nil {
		return
	}
	if !s.active.CompareAndSwap(false, true) {
		metrics.IncWorkerBatch("skipped")
		s.log.Debug().Msg("batch already running, trigger dropped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer func() {
			s.active.Store(false)
			s.wg.Done()
		}()
		s.runner.Run(s.ctx)
	}()
}

// Stop waits for an in-flight batch to finish. The batch observes
// cancellation through the context passed to Start.
func (s *Supervisor) Stop() {
	s.wg.Wait()
}

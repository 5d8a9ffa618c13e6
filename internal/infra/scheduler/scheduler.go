package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Trigger is the minimal interface the scheduler needs from the worker
// supervisor. Submit must not block; overlap handling is the worker's job.
type Trigger interface {
	Submit()
}

// Scheduler fires the worker trigger on a fixed interval and publishes
// the next due time so queue estimates can include the wait.
type Scheduler struct {
	interval time.Duration
	trigger  Trigger
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.RWMutex
	next time.Time
}

// NewScheduler constructs a scheduler that submits a batch trigger every
// `interval`. If interval <= 0 it defaults to 1 minute.
func NewScheduler(interval time.Duration, trigger Trigger, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		interval: interval,
		trigger:  trigger,
		log:      logger.With().Str("component", "scheduler").Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop in a background goroutine. Calling
// Start multiple times has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		// already started
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	s.setNext(time.Now().Add(s.interval))
	go s.loop()
}

// NextRun reports when the next batch is due. ok is false until Start.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next, !s.next.IsZero()
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("started")
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("context cancelled; stopping")
			return
		case <-ticker.C:
			s.setNext(time.Now().Add(s.interval))
			s.trigger.Submit()
		}
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		// not started
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Info().Msg("stopped")
}

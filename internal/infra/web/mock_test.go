//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/repository"
	"ai-article-queue/internal/usecase"
)

// --- usecase fakes ---

type mockQueueUC struct {
	mu       sync.Mutex
	jobs     map[string]*model.JobView
	receipt  *usecase.EnqueueReceipt
	err      error
	patched  map[string]repository.JobPatch
	deleted  []string
	requeued []string
}

func newMockQueueUC() *mockQueueUC {
	return &mockQueueUC{
		jobs:    make(map[string]*model.JobView),
		patched: make(map[string]repository.JobPatch),
		receipt: &usecase.EnqueueReceipt{
			RequestID:        "req-1",
			Status:           "QUEUED",
			EstimatedMinutes: 12,
			Message:          "queued",
		},
	}
}

func (m *mockQueueUC) Enqueue(_ context.Context, userQuery, _, _, ownerID string) (*usecase.EnqueueReceipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	if userQuery == "" || ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return m.receipt, nil
}

func (m *mockQueueUC) GetStatus(_ context.Context, requestID string) (*model.JobView, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.jobs[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mockQueueUC) ListByOwner(_ context.Context, ownerID string) ([]*model.JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobView
	for _, v := range m.jobs {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockQueueUC) UpdateIfPending(_ context.Context, requestID string, patch repository.JobPatch) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[requestID]; !ok {
		return "", domain.ErrNotFound
	}
	m.patched[requestID] = patch
	return "Request " + requestID + " updated successfully.", nil
}

func (m *mockQueueUC) DeleteIfPending(_ context.Context, requestID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[requestID]; !ok {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, requestID)
	return nil
}

func (m *mockQueueUC) Requeue(_ context.Context, requestID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, requestID)
	return nil
}

func (m *mockQueueUC) CountPending(context.Context) (int, error) { return len(m.jobs), nil }

type mockAnswerUC struct {
	records    []any
	rebuiltN   int
	rebuildErr error
	// captured call arguments
	gotQuery     string
	gotThreshold float64
}

func (m *mockAnswerUC) Answer(_ context.Context, query string, threshold float64, emit func(record any) error) error {
	m.gotQuery = query
	m.gotThreshold = threshold
	for _, r := range m.records {
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockAnswerUC) RebuildIndex(context.Context) (int, error) {
	if m.rebuildErr != nil {
		return 0, m.rebuildErr
	}
	return m.rebuiltN, nil
}

// mockLimiter admits the first `limit` calls per key, like the real one.
type mockLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newMockLimiter() *mockLimiter { return &mockLimiter{counts: make(map[string]int)} }

func (m *mockLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/domain/ports/repository"
)

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Job
	insertErr error
	countErr  error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Insert(_ context.Context, _ any, job *model.Job) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.RequestID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(_ context.Context, _ any, requestID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindByOwner(_ context.Context, _ any, ownerID string) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.OwnerID == ownerID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Timestamp.After(out[k].Timestamp) })
	return out, nil
}

func (m *memJobRepo) FindPending(_ context.Context, _ any) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status == model.JobStatusNotProcessed {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Timestamp.Before(out[k].Timestamp) })
	return out, nil
}

func (m *memJobRepo) CountPending(ctx context.Context, qx any) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	pending, err := m.FindPending(ctx, qx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (m *memJobRepo) UpdateFields(_ context.Context, _ any, requestID string, patch repository.JobPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Model != nil {
		j.Model = *patch.Model
	}
	if patch.UserQuery != nil {
		j.UserQuery = *patch.UserQuery
	}
	return nil
}

func (m *memJobRepo) UpdateStatus(_ context.Context, _ any, requestID string, status model.JobStatus, result *model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	j.Result = result
	j.ResultRaw = nil
	return nil
}

func (m *memJobRepo) SavePublishedIDs(_ context.Context, _ any, requestID string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	j.PublishedIDs = append([]int64(nil), ids...)
	return nil
}

func (m *memJobRepo) Delete(_ context.Context, _ any, requestID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[requestID]; !ok {
		return 0, nil
	}
	delete(m.store, requestID)
	return 1, nil
}

// fakeAI returns scripted text and streams it in fixed-size fragments.
type fakeAI struct {
	mu          sync.Mutex
	generateOut string
	generateErr error
	streamOut   []string
	streamErr   error
	// streamErrAfter injects streamErr after that many emitted chunks.
	streamErrAfter int
	embedFn        func(texts []string) ([][]float32, error)
	calls          []string
}

func (f *fakeAI) Generate(_ context.Context, modelName, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "generate:"+modelName)
	return f.generateOut, f.generateErr
}

func (f *fakeAI) GenerateStream(_ context.Context, _, _, _ string, emit func(chunk string) error) error {
	f.mu.Lock()
	chunks := f.streamOut
	errAfter := f.streamErrAfter
	streamErr := f.streamErr
	f.calls = append(f.calls, "stream")
	f.mu.Unlock()

	if streamErr != nil && errAfter == 0 {
		return streamErr
	}
	for i, c := range chunks {
		if err := emit(c); err != nil {
			return err
		}
		if streamErr != nil && i+1 == errAfter {
			return streamErr
		}
	}
	return nil
}

func (f *fakeAI) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// fakePublisher records submissions and returns scripted outcomes.
type fakePublisher struct {
	mu       sync.Mutex
	token    string
	loginErr error
	outcomes []model.PublishOutcome
	articles []adapter.Article
}

func (f *fakePublisher) Login(context.Context) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakePublisher) Publish(_ context.Context, _ string, article adapter.Article) model.PublishOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, article)
	if len(f.outcomes) == 0 {
		return model.PublishOutcome{OK: true, PublishedID: int64(100 + len(f.articles))}
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

// fakeRetriever serves canned hits without an index.
type fakeRetriever struct {
	hits       []model.ScoredDocument
	ensureErr  error
	searchErr  error
	rebuiltN   int
	rebuildErr error
}

func (f *fakeRetriever) Ensure(context.Context) error { return f.ensureErr }

func (f *fakeRetriever) Search(context.Context, string, int) ([]model.ScoredDocument, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeRetriever) Rebuild(context.Context) (int, error) {
	if f.rebuildErr != nil {
		return 0, f.rebuildErr
	}
	return f.rebuiltN, nil
}

// fixedSchedule reports a fixed next-run instant.
type fixedSchedule struct {
	next time.Time
	ok   bool
}

func (s fixedSchedule) NextRun() (time.Time, bool) { return s.next, s.ok }

var errBoom = errors.New("boom")

//go:build !integration

// File: internal/infra/retrieval/engine_test.go
package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain/model"
)

type fakeDocRepo struct {
	mu    sync.Mutex
	docs  []*model.Document
	calls int
}

func (f *fakeDocRepo) ListAll(_ context.Context) ([]*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.docs, nil
}

// fakeEmbedder maps known phrases to fixed vectors so similarity is
// deterministic in tests.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Generate(context.Context, string, string, string) (string, error) {
	return "", nil
}

func (f *fakeEmbedder) GenerateStream(context.Context, string, string, string, func(string) error) error {
	return nil
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeDocRepo, *fakeEmbedder) {
	t.Helper()
	repo := &fakeDocRepo{docs: []*model.Document{
		{ID: 1, Title: "Bees", URL: "https://example.com/post/1", Content: "<p>Bees navigate by the sun.</p>"},
		{ID: 2, Title: "Rivers", URL: "https://example.com/post/2", Content: "<p>Rivers carve valleys.</p>"},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Bees navigate by the sun.": {1, 0, 0},
		"Rivers carve valleys.":     {0, 1, 0},
		"how do bees navigate":      {1, 0, 0},
	}}
	return NewEngine(repo, embedder, t.TempDir(), zerolog.Nop()), repo, embedder
}

func TestSearchRanksBySimilarity(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	hits, err := eng.Search(context.Background(), "how do bees navigate", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != 1 {
		t.Fatalf("top hit = %d, want document 1", hits[0].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("scores not descending: %v then %v", hits[0].Score, hits[1].Score)
	}
	if hits[0].Score < 0.99 {
		t.Fatalf("identical vectors should score ~1.0, got %v", hits[0].Score)
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	hits, err := eng.Search(context.Background(), "how do bees navigate", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestEnsureInitializesOnce(t *testing.T) {
	eng, repo, _ := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eng.Ensure(context.Background()); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.calls != 1 {
		t.Fatalf("source posts loaded %d times, want 1", repo.calls)
	}
}

func TestEnsureLoadsPersistedSnapshot(t *testing.T) {
	eng, repo, _ := newTestEngine(t)
	if err := eng.Ensure(context.Background()); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}

	// A second engine over the same directory must load from disk, not
	// hit the source posts again.
	second := NewEngine(repo, &fakeEmbedder{vectors: map[string][]float32{}}, eng.dir, zerolog.Nop())
	if err := second.Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.calls != 1 {
		t.Fatalf("source posts loaded %d times, want 1", repo.calls)
	}
}

func TestRebuildReplacesSnapshot(t *testing.T) {
	eng, repo, _ := newTestEngine(t)
	if err := eng.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	repo.mu.Lock()
	repo.docs = append(repo.docs, &model.Document{
		ID: 3, Title: "Stars", URL: "https://example.com/post/3", Content: "Stars burn hydrogen.",
	})
	repo.mu.Unlock()

	n, err := eng.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n != 3 {
		t.Fatalf("Rebuild indexed %d documents, want 3", n)
	}

	if _, err := os.Stat(filepath.Join(eng.dir, snapshotFile)); err != nil {
		t.Fatalf("snapshot not persisted after rebuild: %v", err)
	}
}

func TestPreprocessStripsMarkup(t *testing.T) {
	// The accented rune and the non-breaking space fall outside the
	// printable ASCII range and are dropped; plain spaces survive.
	got := preprocess("<p>Caf&eacute; notes\u00a0here</p>")
	if got != "Caf noteshere" {
		t.Fatalf("preprocess = %q", got)
	}
	got = preprocess("<p>Caf&eacute; notes here</p>")
	if got != "Caf notes here" {
		t.Fatalf("preprocess = %q", got)
	}
}

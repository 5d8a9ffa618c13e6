// File: internal/infra/retrieval/engine.go
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"ai-article-queue/internal/domain/model"
	"ai-article-queue/internal/domain/ports/adapter"
	"ai-article-queue/internal/domain/ports/repository"
)

const snapshotFile = "index.json"

var _ adapter.Retriever = (*Engine)(nil)

// Engine embeds source posts and answers similarity searches over them.
// The index is an immutable snapshot held behind an atomic pointer; a
// rebuild prepares a full replacement off to the side and swaps it in,
// so readers never observe a half-built index.
type Engine struct {
	docs       repository.DocumentRepository
	ai         adapter.AIServiceAdapter
	dir        string
	log        zerolog.Logger
	embedBatch int

	initMu sync.Mutex
	ready  bool

	snapshot atomic.Value // *indexSnapshot
}

type indexSnapshot struct {
	Entries []indexEntry `json:"entries"`
}

type indexEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

func NewEngine(docs repository.DocumentRepository, ai adapter.AIServiceAdapter, snapshotDir string, logger zerolog.Logger) *Engine {
	return &Engine{
		docs:       docs,
		ai:         ai,
		dir:        snapshotDir,
		log:        logger.With().Str("component", "retrieval_engine").Logger(),
		embedBatch: 64,
	}
}

// Ensure makes the index usable. The first caller loads the persisted
// snapshot or builds one from the source posts; concurrent callers block
// on the same mutex and return once initialization is done.
func (e *Engine) Ensure(ctx context.Context) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.ready {
		return nil
	}

	if snap, err := e.loadSnapshot(); err == nil {
		e.snapshot.Store(snap)
		e.ready = true
		e.log.Info().Int("documents", len(snap.Entries)).Msg("loaded persisted index")
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		e.log.Warn().Err(err).Msg("persisted index unreadable, rebuilding")
	}

	snap, err := e.buildSnapshot(ctx)
	if err != nil {
		return err
	}
	e.snapshot.Store(snap)
	e.ready = true
	return nil
}

func (e *Engine) Search(ctx context.Context, query string, topK int) ([]model.ScoredDocument, error) {
	if err := e.Ensure(ctx); err != nil {
		return nil, err
	}
	snap, _ := e.snapshot.Load().(*indexSnapshot)
	if snap == nil || len(snap.Entries) == 0 {
		return nil, nil
	}

	vecs, err := e.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, errors.New("embed query: empty response")
	}
	qv := vecs[0]

	hits := make([]model.ScoredDocument, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		score := cosine(qv, entry.Embedding)
		hits = append(hits, model.ScoredDocument{
			Document: model.Document{
				ID:      entry.ID,
				Title:   entry.Title,
				URL:     entry.URL,
				Content: entry.Content,
			},
			Score: score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Rebuild discards the persisted snapshot, reindexes every source post
// and swaps the result in atomically. Searches running during a rebuild
// keep using the previous snapshot.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	if err := os.Remove(e.snapshotPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove persisted index: %w", err)
	}

	snap, err := e.buildSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	e.snapshot.Store(snap)

	e.initMu.Lock()
	e.ready = true
	e.initMu.Unlock()

	return len(snap.Entries), nil
}

// --- internal ---

func (e *Engine) buildSnapshot(ctx context.Context) (*indexSnapshot, error) {
	docs, err := e.docs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source posts: %w", err)
	}

	entries := make([]indexEntry, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		clean := preprocess(d.Content)
		if clean == "" {
			continue
		}
		entries = append(entries, indexEntry{
			ID:      d.ID,
			Title:   d.Title,
			URL:     d.URL,
			Content: clean,
		})
		texts = append(texts, clean)
	}

	for start := 0; start < len(texts); start += e.embedBatch {
		end := start + e.embedBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.ai.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed documents: %w", err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vecs), end-start)
		}
		for i, v := range vecs {
			entries[start+i].Embedding = v
		}
	}

	snap := &indexSnapshot{Entries: entries}
	if err := e.persistSnapshot(snap); err != nil {
		e.log.Warn().Err(err).Msg("index built but not persisted")
	}
	e.log.Info().Int("documents", len(entries)).Msg("index rebuilt")
	return snap, nil
}

func (e *Engine) snapshotPath() string { return filepath.Join(e.dir, snapshotFile) }

func (e *Engine) loadSnapshot() (*indexSnapshot, error) {
	b, err := os.ReadFile(e.snapshotPath())
	if err != nil {
		return nil, err
	}
	var snap indexSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode persisted index: %w", err)
	}
	return &snap, nil
}

func (e *Engine) persistSnapshot(snap *indexSnapshot) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := e.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, e.snapshotPath())
}

var tagPattern = regexp.MustCompile(`<.*?>`)

// preprocess strips markup and non-printable characters from a source
// post so only plain prose is embedded.
func preprocess(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

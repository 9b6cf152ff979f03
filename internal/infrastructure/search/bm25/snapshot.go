package bm25

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// DocumentLoader loads the full searchable corpus for a rebuild.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context) ([]Document, error)
}

// Snapshot is one immutable generation of the lexical corpus.  Readers that
// obtained a snapshot keep using it even while a newer generation is being
// served; it is garbage-collected once the last reader drops it.
type Snapshot struct {
	Version int64
	BuiltAt time.Time
	index   *Index
}

// Search runs a BM25 query against this snapshot.
func (s *Snapshot) Search(query, workspaceID string, k int) []Hit {
	return s.index.TopK(query, workspaceID, k)
}

// Size returns the number of documents in this snapshot.
func (s *Snapshot) Size() int {
	return s.index.Size()
}

// SnapshotManager owns the corpus lifecycle: it builds snapshots from a
// DocumentLoader, serves the current one behind an atomic pointer, rebuilds
// on a ticker interval or an Invalidate signal, and retires old generations
// implicitly when readers release them.
type SnapshotManager struct {
	loader   DocumentLoader
	interval time.Duration
	opts     []Option
	logger   logging.Logger
	metrics  *prometheus.PipelineMetrics

	current    atomic.Pointer[Snapshot]
	version    atomic.Int64
	invalidate chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// NewSnapshotManager builds a manager.  Start must be called before Current
// returns a usable snapshot.  metrics may be nil.
func NewSnapshotManager(
	loader DocumentLoader,
	interval time.Duration,
	logger logging.Logger,
	metrics *prometheus.PipelineMetrics,
	opts ...Option,
) *SnapshotManager {
	return &SnapshotManager{
		loader:     loader,
		interval:   interval,
		opts:       opts,
		logger:     logger.Named("corpus"),
		metrics:    metrics,
		invalidate: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start performs the initial build and launches the background rebuild loop.
// The loop stops when ctx is cancelled or Close is called.
func (m *SnapshotManager) Start(ctx context.Context) error {
	if err := m.Rebuild(ctx); err != nil {
		return err
	}
	go m.run(ctx)
	return nil
}

func (m *SnapshotManager) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
		case <-m.invalidate:
		}

		if err := m.Rebuild(ctx); err != nil {
			m.logger.Error("corpus rebuild failed", logging.Err(err))
		}
	}
}

// Rebuild loads the corpus and atomically swaps in a new snapshot.  The
// previous snapshot stays valid for in-flight readers.
func (m *SnapshotManager) Rebuild(ctx context.Context) error {
	docs, err := m.loader.LoadDocuments(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCorpusUnavailable, "failed to load corpus documents")
	}

	snapshot := &Snapshot{
		Version: m.version.Add(1),
		BuiltAt: time.Now(),
		index:   BuildIndex(docs, m.opts...),
	}
	m.current.Store(snapshot)

	m.metrics.ObserveSnapshot(snapshot.Size())
	m.logger.Info("corpus snapshot rebuilt",
		logging.Int64("version", snapshot.Version),
		logging.Int("documents", snapshot.Size()),
	)
	return nil
}

// Invalidate requests an asynchronous rebuild.  Callers signal it after bulk
// document ingestion.  Coalesces: at most one rebuild is pending at a time.
func (m *SnapshotManager) Invalidate() {
	select {
	case m.invalidate <- struct{}{}:
	default:
	}
}

// Current returns the serving snapshot, or an error if no snapshot has been
// built yet.
func (m *SnapshotManager) Current() (*Snapshot, error) {
	s := m.current.Load()
	if s == nil {
		return nil, apperrors.CorpusUnavailable("lexical corpus has not been built")
	}
	return s, nil
}

// Close stops the background rebuild loop.  Idempotent.
func (m *SnapshotManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

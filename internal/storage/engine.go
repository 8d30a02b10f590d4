package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// PersistMode selects when the keyspace is saved.
type PersistMode string

const (
	PersistSync     PersistMode = "sync"
	PersistInterval PersistMode = "interval"
)

// Default configuration values.
const (
	DefaultSweepInterval    = time.Second
	DefaultSnapshotInterval = 30 * time.Second
	DefaultSaveTimeout      = 30 * time.Second
)

// Config configures the storage engine.
type Config struct {
	PersistMode PersistMode

	// SweepInterval is the period of the active expiry sweep.
	SweepInterval time.Duration

	// SnapshotInterval is the flush period in interval mode.
	SnapshotInterval time.Duration

	// Clock overrides time.Now for expiry decisions.
	Clock func() time.Time

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		PersistMode:      PersistSync,
		SweepInterval:    DefaultSweepInterval,
		SnapshotInterval: DefaultSnapshotInterval,
		Logger:           slog.Default(),
	}
}

// Stats is a point-in-time view of the keyspace.
type Stats struct {
	Keys         int       `json:"keys"`
	ExpiringKeys int       `json:"expiring_keys"`
	Dirty        bool      `json:"dirty"`
	LastSave     time.Time `json:"last_save,omitempty"`
	LastSaveErr  string    `json:"last_save_error,omitempty"`
	Backend      string    `json:"backend"`
	PersistMode  string    `json:"persist_mode"`
}

// Engine serializes all keyspace access behind one exclusive lock.
type Engine struct {
	cfg       Config
	persister Persister
	logger    *slog.Logger
	metrics   *metric.Registry

	mu          sync.Mutex
	store       *memory.Store
	dirty       bool
	lastSave    time.Time
	lastSaveErr error

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New creates the engine and starts its background loops.
//
// New does NOT load persisted data. Call Recover() before serving.
func New(cfg Config, persister Persister) (*Engine, error) {
	if persister == nil {
		return nil, fmt.Errorf("storage: persister is required")
	}
	switch cfg.PersistMode {
	case "":
		cfg.PersistMode = PersistSync
	case PersistSync, PersistInterval:
	default:
		return nil, fmt.Errorf("storage: unknown persist mode %q", cfg.PersistMode)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultSnapshotInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts []memory.Option
	if cfg.Clock != nil {
		opts = append(opts, memory.WithClock(cfg.Clock))
	}

	e := &Engine{
		cfg:       cfg,
		persister: persister,
		logger:    cfg.Logger.With("component", "storage"),
		metrics:   cfg.Metrics,
		store:     memory.New(opts...),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	go e.backgroundLoop()

	return e, nil
}

// Recover replaces the keyspace with the persister's saved state.
func (e *Engine) Recover(ctx context.Context) error {
	startTime := time.Now()
	e.logger.Info("storage recovery started", "backend", e.persister.Name())

	records, err := e.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("storage: load: %w", err)
	}

	e.mu.Lock()
	loaded := e.store.Restore(records)
	e.mu.Unlock()

	if dropped := len(records) - loaded; dropped > 0 {
		e.metrics.ObserveExpired("load", dropped)
		e.logger.Info("discarded keys expired while offline", "count", dropped)
	}

	e.logger.Info("recovery completed",
		"keys", loaded,
		"elapsed", time.Since(startTime))
	return nil
}

// View runs fn with exclusive access. Nothing is persisted.
func (e *Engine) View(fn func(s *memory.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.store)
}

// Update runs fn with exclusive access. When fn reports a change the
// keyspace is persisted according to the persist mode before the lock is
// released.
func (e *Engine) Update(ctx context.Context, fn func(s *memory.Store) (changed bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !fn(e.store) {
		return
	}
	e.markChangedLocked(ctx, "command")
}

// markChangedLocked records a change and saves in sync mode. Callers hold mu.
func (e *Engine) markChangedLocked(ctx context.Context, reason string) {
	e.dirty = true
	if e.cfg.PersistMode == PersistSync {
		_ = e.saveLocked(ctx, reason)
	}
}

// saveLocked writes the whole keyspace. Failures are logged and returned
// but leave the in-memory state untouched. Callers hold mu.
func (e *Engine) saveLocked(ctx context.Context, reason string) error {
	start := time.Now()
	err := e.persister.Save(ctx, e.store.Dump())
	e.metrics.ObserveSave(e.persister.Name(), err, time.Since(start))

	e.lastSaveErr = err
	if err != nil {
		e.logger.Error("keyspace save failed",
			"backend", e.persister.Name(),
			"reason", reason,
			"error", err)
		return fmt.Errorf("storage: save: %w", err)
	}

	e.dirty = false
	e.lastSave = time.Now()
	e.logger.Debug("keyspace saved",
		"backend", e.persister.Name(),
		"reason", reason,
		"elapsed", time.Since(start))
	return nil
}

// Save forces a full save regardless of the persist mode.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(ctx, "manual")
}

// SweepExpired runs one active expiry pass and returns the evicted keys.
func (e *Engine) SweepExpired(ctx context.Context) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	evicted := e.store.SweepExpired()
	if len(evicted) == 0 {
		return nil
	}

	for _, k := range evicted {
		e.logger.Debug("expired key removed", "key", k)
	}
	e.logger.Info("expiry sweep evicted keys", "count", len(evicted))
	e.metrics.ObserveExpired("sweep", len(evicted))

	e.markChangedLocked(ctx, "sweep")
	return evicted
}

// flushIfDirty saves pending interval-mode changes.
func (e *Engine) flushIfDirty(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty {
		return nil
	}
	return e.saveLocked(ctx, "interval")
}

// Stats returns keyspace statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Keys:         e.store.Len(),
		ExpiringKeys: e.store.ExpiringCount(),
		Dirty:        e.dirty,
		LastSave:     e.lastSave,
		Backend:      e.persister.Name(),
		PersistMode:  string(e.cfg.PersistMode),
	}
	if e.lastSaveErr != nil {
		s.LastSaveErr = e.lastSaveErr.Error()
	}
	return s
}

// backgroundLoop runs the expiry sweep and, in interval mode, the flush.
func (e *Engine) backgroundLoop() {
	defer close(e.doneCh)

	sweep := time.NewTicker(e.cfg.SweepInterval)
	defer sweep.Stop()

	var flushC <-chan time.Time
	if e.cfg.PersistMode == PersistInterval {
		flush := time.NewTicker(e.cfg.SnapshotInterval)
		defer flush.Stop()
		flushC = flush.C
	}

	for {
		select {
		case <-sweep.C:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultSaveTimeout)
			e.SweepExpired(ctx)
			cancel()

		case <-flushC:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultSaveTimeout)
			if err := e.flushIfDirty(ctx); err != nil {
				e.logger.Error("interval flush failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// Close stops the background loops, flushes unsaved changes and closes
// the persister.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.logger.Info("shutting down storage engine")

		close(e.stopCh)
		<-e.doneCh

		ctx, cancel := context.WithTimeout(context.Background(), DefaultSaveTimeout)
		defer cancel()
		if ferr := e.flushIfDirty(ctx); ferr != nil {
			err = ferr
		}
		if cerr := e.persister.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("storage: close %s: %w", e.persister.Name(), cerr)
		}

		e.logger.Info("storage engine shutdown complete")
	})
	return err
}

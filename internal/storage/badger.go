package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
)

// keyPrefix namespaces keyspace entries inside the badger DB.
var keyPrefix = []byte("kv/")

// BadgerKeyInfo is the HKDF info string for the badger at-rest key.
const BadgerKeyInfo = "kvmesh/badger/v1"

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	Dir string

	// GCInterval is the interval between value-log GC runs.
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	SyncWrites bool

	// EncryptionKey is the master key. When set, badger encrypts its
	// tables and value log with a subkey derived under BadgerKeyInfo.
	EncryptionKey []byte

	// IndexCacheSize is the index cache in bytes. Encrypted DBs need one.
	IndexCacheSize int64
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 256 << 20,
		SyncWrites:       true,
		IndexCacheSize:   16 << 20,
	}
}

// BadgerPersister stores one badger key per keyspace key, so a save only
// rewrites the data that the DB does not already hold verbatim.
type BadgerPersister struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime      atomic.Int64 // Unix milliseconds
	gcRuns          atomic.Uint64
	lastSaveWrites  atomic.Int64
	lastSaveDeletes atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerPersister opens (or creates) the DB in cfg.Dir.
func NewBadgerPersister(cfg BadgerConfig, logger *slog.Logger) (*BadgerPersister, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if len(cfg.EncryptionKey) > 0 {
		key, err := snapshot.DeriveSubkey(cfg.EncryptionKey, BadgerKeyInfo, 32)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		if cfg.IndexCacheSize <= 0 {
			cfg.IndexCacheSize = 16 << 20
		}
		opts = opts.WithEncryptionKey(key).WithIndexCacheSize(cfg.IndexCacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	p := &BadgerPersister{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go p.gcLoop()

	logger.Info("badger persister started",
		"dir", cfg.Dir,
		"gc_interval", cfg.GCInterval,
		"encrypted", len(cfg.EncryptionKey) > 0)

	return p, nil
}

func (p *BadgerPersister) Name() string { return "badger" }

// Load reads every keyspace entry.
func (p *BadgerPersister) Load(ctx context.Context) ([]memory.Record, error) {
	var entries []snapshot.Entry

	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e snapshot.Entry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("badger: decode %q: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot.DecodeEntries(entries)
}

// Save makes the DB hold exactly records: changed keys are rewritten and
// keys no longer present are deleted.
func (p *BadgerPersister) Save(ctx context.Context, records []memory.Record) error {
	want := make(map[string][]byte, len(records))
	for _, r := range records {
		raw, err := json.Marshal(snapshot.EntryFromRecord(r))
		if err != nil {
			return fmt.Errorf("badger: encode %q: %w", r.Key, err)
		}
		want[string(append(append([]byte{}, keyPrefix...), r.Key...))] = raw
	}

	var stale [][]byte
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.Key())
			next, keep := want[k]
			if !keep {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			same := false
			if err := item.Value(func(v []byte) error {
				same = bytes.Equal(v, next)
				return nil
			}); err != nil {
				return err
			}
			if same {
				delete(want, k)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := p.db.NewWriteBatch()
	defer wb.Cancel()

	for _, k := range stale {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("badger: delete: %w", err)
		}
	}
	for k, v := range want {
		if err := wb.Set([]byte(k), v); err != nil {
			return fmt.Errorf("badger: set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger: flush: %w", err)
	}

	p.lastSaveWrites.Store(int64(len(want)))
	p.lastSaveDeletes.Store(int64(len(stale)))
	return nil
}

// GC runs value-log GC until nothing more can be rewritten and returns the
// number of rewrite rounds.
func (p *BadgerPersister) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return rounds, err
		}
		err := p.db.RunValueLogGC(p.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return rounds, fmt.Errorf("gc: %w", err)
		}
		rounds++
	}

	p.lastGCTime.Store(time.Now().UnixMilli())
	p.gcRuns.Add(1)

	p.logger.Debug("badger gc completed",
		"rounds", rounds,
		"elapsed", time.Since(startTime))

	return rounds, nil
}

// Close stops the GC loop and closes the DB.
func (p *BadgerPersister) Close() error {
	p.logger.Info("shutting down badger persister")

	close(p.stopCh)
	<-p.doneCh

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Collectors returns size and GC gauges for the metrics registry.
func (p *BadgerPersister) Collectors() []prometheus.Collector {
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "kvmesh",
			Subsystem: "badger",
			Name:      name,
			Help:      help,
		}, fn)
	}

	return []prometheus.Collector{
		gauge("lsm_size_bytes", "Badger LSM tree size in bytes", func() float64 {
			lsm, _ := p.db.Size()
			return float64(lsm)
		}),
		gauge("value_log_size_bytes", "Badger value log size in bytes", func() float64 {
			_, vlog := p.db.Size()
			return float64(vlog)
		}),
		gauge("last_gc_timestamp_seconds", "Unix timestamp of the last Badger GC run", func() float64 {
			return float64(p.lastGCTime.Load()) / 1000.0
		}),
		gauge("last_save_writes", "Keys rewritten by the last save", func() float64 {
			return float64(p.lastSaveWrites.Load())
		}),
		gauge("last_save_deletes", "Keys deleted by the last save", func() float64 {
			return float64(p.lastSaveDeletes.Load())
		}),
	}
}

// gcLoop runs periodic value-log GC.
func (p *BadgerPersister) gcLoop() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := p.GC(ctx); err != nil {
				p.logger.Error("badger gc failed", "error", err)
			}
			cancel()

		case <-p.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

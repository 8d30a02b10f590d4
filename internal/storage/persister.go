package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
)

// Persister is the persistence gateway.
type Persister interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Load returns the last saved keyspace, or nil if nothing was saved.
	Load(ctx context.Context) ([]memory.Record, error)

	// Save replaces the saved keyspace with records.
	Save(ctx context.Context, records []memory.Record) error

	Close() error
}

// FilePersister saves the keyspace as snapshot files.
type FilePersister struct {
	mgr *snapshot.Manager
}

// NewFilePersister creates a persister writing into cfg.Dir.
func NewFilePersister(cfg snapshot.Config) (*FilePersister, error) {
	mgr, err := snapshot.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &FilePersister{mgr: mgr}, nil
}

func (p *FilePersister) Name() string { return "file" }

func (p *FilePersister) Load(_ context.Context) ([]memory.Record, error) {
	records, _, err := p.mgr.Load()
	if errors.Is(err, snapshot.ErrNoSnapshots) {
		return nil, nil
	}
	return records, err
}

func (p *FilePersister) Save(_ context.Context, records []memory.Record) error {
	if _, err := p.mgr.Create(records); err != nil {
		return err
	}
	if err := p.mgr.Prune(); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Snapshots lists the snapshot files on disk.
func (p *FilePersister) Snapshots() ([]*snapshot.Info, error) {
	return p.mgr.List()
}

func (p *FilePersister) Close() error { return nil }

// NopPersister keeps nothing.
type NopPersister struct{}

func (NopPersister) Name() string                                  { return "none" }
func (NopPersister) Load(context.Context) ([]memory.Record, error) { return nil, nil }
func (NopPersister) Save(context.Context, []memory.Record) error   { return nil }
func (NopPersister) Close() error                                  { return nil }

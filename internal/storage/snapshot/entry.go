package snapshot

import (
	"fmt"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
)

// Entry is the serialized form of one key.
type Entry struct {
	Key       string            `json:"key"`
	Kind      string            `json:"kind"`
	Str       string            `json:"str,omitempty"`
	List      []string          `json:"list,omitempty"`
	Set       []string          `json:"set,omitempty"`
	Hash      map[string]string `json:"hash,omitempty"`
	ExpiresAt int64             `json:"expires_at,omitempty"` // unix millis, 0 = none
}

// EntryFromRecord encodes a store record.
func EntryFromRecord(r memory.Record) Entry {
	e := Entry{Key: r.Key, Kind: r.Value.Kind().String()}
	if !r.ExpiresAt.IsZero() {
		e.ExpiresAt = r.ExpiresAt.UnixMilli()
	}

	switch r.Value.Kind() {
	case domain.KindString:
		e.Str, _ = r.Value.Str()
	case domain.KindList:
		e.List, _ = r.Value.List()
	case domain.KindSet:
		e.Set = r.Value.Members()
	case domain.KindHash:
		e.Hash, _ = r.Value.Hash()
	}
	return e
}

// Record decodes e back into a store record.
func (e Entry) Record() (memory.Record, error) {
	kind, err := domain.ParseKind(e.Kind)
	if err != nil {
		return memory.Record{}, fmt.Errorf("snapshot: key %q: %w", e.Key, err)
	}

	var v domain.Value
	switch kind {
	case domain.KindString:
		v = domain.NewString(e.Str)
	case domain.KindList:
		v = domain.NewList(e.List...)
	case domain.KindSet:
		v = domain.NewSet(e.Set...)
	case domain.KindHash:
		v = domain.NewHash(e.Hash)
	}

	r := memory.Record{Key: e.Key, Value: v}
	if e.ExpiresAt > 0 {
		r.ExpiresAt = time.UnixMilli(e.ExpiresAt)
	}
	return r, nil
}

// EncodeRecords encodes records in order.
func EncodeRecords(records []memory.Record) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, EntryFromRecord(r))
	}
	return out
}

// DecodeEntries decodes entries, failing on the first malformed one.
func DecodeEntries(entries []Entry) ([]memory.Record, error) {
	out := make([]memory.Record, 0, len(entries))
	for _, e := range entries {
		r, err := e.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

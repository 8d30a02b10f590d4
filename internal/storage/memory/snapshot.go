package memory

import (
	"sort"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// Record is one key as captured for persistence.
type Record struct {
	Key       string
	Value     domain.Value
	ExpiresAt time.Time // zero when the key has no deadline
}

// Dump returns a deep copy of every live key ordered by key. Expired keys
// are left out but not evicted.
func (s *Store) Dump() []Record {
	now := s.now()
	out := make([]Record, 0, len(s.data))
	for k, v := range s.data {
		if s.pastDeadline(k, now) {
			continue
		}
		out = append(out, Record{
			Key:       k,
			Value:     v.Clone(),
			ExpiresAt: s.expires[k],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore replaces the keyspace with records. Records whose deadline has
// already passed are dropped. It returns the number of keys loaded.
func (s *Store) Restore(records []Record) int {
	s.FlushDB()
	now := s.now()

	loaded := 0
	for _, r := range records {
		if r.Value.IsZero() {
			continue
		}
		if !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt) {
			continue
		}
		s.put(r.Key, r.Value.Clone())
		if _, ok := s.data[r.Key]; !ok {
			continue
		}
		if !r.ExpiresAt.IsZero() {
			s.expires[r.Key] = r.ExpiresAt
		}
		loaded++
	}
	return loaded
}

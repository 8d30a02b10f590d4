package memory

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// Store is the keyspace: values plus their expiry deadlines.
type Store struct {
	data    map[string]domain.Value
	expires map[string]time.Time
	now     func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:    make(map[string]domain.Value),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// lookup resolves expiry for key and returns its live value.
func (s *Store) lookup(key string) (domain.Value, bool) {
	s.resolveExpiry(key, s.now())
	v, ok := s.data[key]
	return v, ok
}

// remove drops key from both tables.
func (s *Store) remove(key string) bool {
	_, ok := s.data[key]
	delete(s.data, key)
	delete(s.expires, key)
	return ok
}

// put stores a container value, removing the key when the container is empty.
func (s *Store) put(key string, v domain.Value) {
	if v.Kind() != domain.KindString && v.Len() == 0 {
		s.remove(key)
		return
	}
	s.data[key] = v
}

// ============================================================================
// String & key operations
// ============================================================================

// Set stores a string value and clears any previous deadline.
func (s *Store) Set(key, value string) {
	s.data[key] = domain.NewString(value)
	delete(s.expires, key)
}

// SetWithTTL stores a string value that expires after ttl.
func (s *Store) SetWithTTL(key, value string, ttl time.Duration) {
	s.data[key] = domain.NewString(value)
	s.expires[key] = s.now().Add(ttl)
}

// Get returns the string stored at key. Missing keys and keys holding
// another kind both report false.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.lookup(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// Delete removes each key and returns how many existed.
func (s *Store) Delete(keys ...string) int {
	removed := 0
	for _, k := range keys {
		if _, ok := s.lookup(k); !ok {
			continue
		}
		if s.remove(k) {
			removed++
		}
	}
	return removed
}

// Exists counts the live keys among keys, whatever their kind. A key named
// twice counts twice.
func (s *Store) Exists(keys ...string) int {
	n := 0
	for _, k := range keys {
		if _, ok := s.lookup(k); ok {
			n++
		}
	}
	return n
}

// Type returns the kind stored at key, or 0 if the key is absent.
func (s *Store) Type(key string) domain.Kind {
	v, ok := s.lookup(key)
	if !ok {
		return 0
	}
	return v.Kind()
}

// IncrBy adds delta to the integer stored at key. A missing key counts as 0.
// Non-string values, unparsable strings and overflow fail with
// domain.ErrNotInteger and leave the value untouched.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	var cur int64
	if v, ok := s.lookup(key); ok {
		str, isStr := v.Str()
		if !isStr {
			return 0, domain.ErrNotInteger
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return 0, domain.ErrNotInteger
		}
		cur = n
	}

	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, domain.ErrNotInteger.WithDetails("increment or decrement would overflow")
	}
	next := cur + delta

	// Keep the deadline: INCR does not reset TTL.
	s.data[key] = domain.NewString(strconv.FormatInt(next, 10))
	return next, nil
}

// Keys returns every live key in lexical order. Keys past their deadline
// are skipped but stay in place until SweepExpired evicts them.
func (s *Store) Keys() []string {
	now := s.now()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if !s.pastDeadline(k, now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	now := s.now()
	n := len(s.data)
	for k, deadline := range s.expires {
		if !now.Before(deadline) {
			if _, ok := s.data[k]; ok {
				n--
			}
		}
	}
	return n
}

// FlushDB removes every key and deadline.
func (s *Store) FlushDB() {
	s.data = make(map[string]domain.Value)
	s.expires = make(map[string]time.Time)
}

package memory

import (
	"sort"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// FieldValue is one hash entry.
type FieldValue struct {
	Field string
	Value string
}

func (s *Store) hashAt(key string) (map[string]string, bool, error) {
	v, exists := s.lookup(key)
	if !exists {
		return nil, false, nil
	}
	h, isHash := v.Hash()
	if !isHash {
		return nil, false, domain.ErrWrongType
	}
	return h, true, nil
}

// HSet writes pairs into the hash, creating it if needed. It returns the
// field count after the write.
func (s *Store) HSet(key string, pairs ...FieldValue) (int, error) {
	h, ok, err := s.hashAt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		h = make(map[string]string, len(pairs))
		for _, p := range pairs {
			h[p.Field] = p.Value
		}
		v := domain.NewHash(h)
		s.put(key, v)
		return v.Len(), nil
	}
	for _, p := range pairs {
		h[p.Field] = p.Value
	}
	return len(h), nil
}

// HGet returns one field.
func (s *Store) HGet(key, field string) (string, bool) {
	h, _, _ := s.hashAt(key)
	v, ok := h[field]
	return v, ok
}

// HDel removes fields and returns how many existed.
func (s *Store) HDel(key string, fields ...string) int {
	h, ok, _ := s.hashAt(key)
	if !ok {
		return 0
	}
	removed := 0
	for _, f := range fields {
		if _, present := h[f]; present {
			delete(h, f)
			removed++
		}
	}
	if len(h) == 0 {
		s.remove(key)
	}
	return removed
}

// HGetAll returns every field/value pair ordered by field.
func (s *Store) HGetAll(key string) []FieldValue {
	h, _, _ := s.hashAt(key)
	out := make([]FieldValue, 0, len(h))
	for f, v := range h {
		out = append(out, FieldValue{Field: f, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// HKeys returns the field names ordered by field.
func (s *Store) HKeys(key string) []string {
	pairs := s.HGetAll(key)
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Field
	}
	return out
}

// HVals returns the values ordered by their field name.
func (s *Store) HVals(key string) []string {
	pairs := s.HGetAll(key)
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Value
	}
	return out
}

// HLen returns the field count.
func (s *Store) HLen(key string) int {
	h, _, _ := s.hashAt(key)
	return len(h)
}

// HExists reports whether field is present.
func (s *Store) HExists(key, field string) bool {
	h, _, _ := s.hashAt(key)
	_, ok := h[field]
	return ok
}

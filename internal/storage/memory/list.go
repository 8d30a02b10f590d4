package memory

import "github.com/yndnr/kvmesh-go/internal/core/domain"

// listAt returns the list at key. ok is false when the key is absent;
// err is set when it holds another kind.
func (s *Store) listAt(key string) (list []string, ok bool, err error) {
	v, exists := s.lookup(key)
	if !exists {
		return nil, false, nil
	}
	l, isList := v.List()
	if !isList {
		return nil, false, domain.ErrWrongType
	}
	return l, true, nil
}

// LPush prepends values so that the last argument ends up at the head,
// creating the list if needed. It returns the new length.
func (s *Store) LPush(key string, values ...string) (int, error) {
	cur, _, err := s.listAt(key)
	if err != nil {
		return 0, err
	}
	next := make([]string, 0, len(cur)+len(values))
	for i := len(values) - 1; i >= 0; i-- {
		next = append(next, values[i])
	}
	next = append(next, cur...)
	s.put(key, s.withList(key, next))
	return len(next), nil
}

// RPush appends values, creating the list if needed. It returns the new length.
func (s *Store) RPush(key string, values ...string) (int, error) {
	cur, _, err := s.listAt(key)
	if err != nil {
		return 0, err
	}
	next := append(cur, values...)
	s.put(key, s.withList(key, next))
	return len(next), nil
}

// withList keeps the existing Value (and therefore its deadline) when key
// already holds a list.
func (s *Store) withList(key string, l []string) domain.Value {
	if v, ok := s.data[key]; ok && v.Kind() == domain.KindList {
		return v.WithList(l)
	}
	return domain.NewList(l...)
}

// LPop removes and returns the head. Absent, empty and non-list keys
// report false.
func (s *Store) LPop(key string) (string, bool) {
	l, ok, err := s.listAt(key)
	if !ok || err != nil || len(l) == 0 {
		return "", false
	}
	head := l[0]
	s.put(key, s.withList(key, l[1:]))
	return head, true
}

// RPop removes and returns the tail.
func (s *Store) RPop(key string) (string, bool) {
	l, ok, err := s.listAt(key)
	if !ok || err != nil || len(l) == 0 {
		return "", false
	}
	tail := l[len(l)-1]
	s.put(key, s.withList(key, l[:len(l)-1]))
	return tail, true
}

// LLen returns the list length, 0 for absent or non-list keys.
func (s *Store) LLen(key string) int {
	l, _, _ := s.listAt(key)
	return len(l)
}

// normalizeIndex maps a possibly negative index onto [0, n). ok is false
// when the index falls outside the list.
func normalizeIndex(index int64, n int) (int, bool) {
	if index < 0 {
		index += int64(n)
	}
	if index < 0 || index >= int64(n) {
		return 0, false
	}
	return int(index), true
}

// LIndex returns the element at index; negative indexes count from the tail.
func (s *Store) LIndex(key string, index int64) (string, bool) {
	l, _, _ := s.listAt(key)
	i, ok := normalizeIndex(index, len(l))
	if !ok {
		return "", false
	}
	return l[i], true
}

// LSet overwrites the element at index. Missing keys fail with
// domain.ErrNoSuchKey, other kinds with domain.ErrWrongType and bad
// indexes with domain.ErrIndexOutOfRange.
func (s *Store) LSet(key string, index int64, value string) error {
	l, ok, err := s.listAt(key)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoSuchKey
	}
	i, inRange := normalizeIndex(index, len(l))
	if !inRange {
		return domain.ErrIndexOutOfRange
	}
	l[i] = value
	return nil
}

// LRange returns the elements between start and end inclusive. Negative
// bounds count from the tail; out-of-range bounds are clamped.
func (s *Store) LRange(key string, start, end int64) []string {
	l, _, _ := s.listAt(key)
	n := int64(len(l))

	if start < 0 {
		start = max(n+start, 0)
	}
	if end < 0 {
		end = n + end
	} else {
		end = min(end, n-1)
	}
	if start >= n || end < 0 || start > end {
		return []string{}
	}

	out := make([]string, end-start+1)
	copy(out, l[start:end+1])
	return out
}

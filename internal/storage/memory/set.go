package memory

import "github.com/yndnr/kvmesh-go/internal/core/domain"

func (s *Store) setAt(key string) (map[string]struct{}, bool, error) {
	v, exists := s.lookup(key)
	if !exists {
		return nil, false, nil
	}
	m, isSet := v.Set()
	if !isSet {
		return nil, false, domain.ErrWrongType
	}
	return m, true, nil
}

// SAdd adds members, creating the set if needed. It returns the cardinality
// after the add.
func (s *Store) SAdd(key string, members ...string) (int, error) {
	m, ok, err := s.setAt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		v := domain.NewSet(members...)
		s.put(key, v)
		return v.Len(), nil
	}
	for _, mem := range members {
		m[mem] = struct{}{}
	}
	return len(m), nil
}

// SRem removes members and returns how many were present. The key is
// removed once the set is empty.
func (s *Store) SRem(key string, members ...string) int {
	m, ok, _ := s.setAt(key)
	if !ok {
		return 0
	}
	removed := 0
	for _, mem := range members {
		if _, present := m[mem]; present {
			delete(m, mem)
			removed++
		}
	}
	if len(m) == 0 {
		s.remove(key)
	}
	return removed
}

// SMembers returns the members in lexical order.
func (s *Store) SMembers(key string) []string {
	v, ok := s.lookup(key)
	if !ok || v.Kind() != domain.KindSet {
		return []string{}
	}
	return v.Members()
}

// SIsMember reports whether member belongs to the set at key.
func (s *Store) SIsMember(key, member string) bool {
	m, _, _ := s.setAt(key)
	_, ok := m[member]
	return ok
}

// SCard returns the set cardinality.
func (s *Store) SCard(key string) int {
	m, _, _ := s.setAt(key)
	return len(m)
}

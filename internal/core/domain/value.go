package domain

import (
	"fmt"
	"sort"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	// KindString is a single string.
	KindString Kind = iota + 1
	// KindList is an ordered sequence of strings.
	KindList
	// KindSet is an unordered collection of unique strings.
	KindSet
	// KindHash maps field names to string values.
	KindHash
)

// String returns the name reported by the TYPE command.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	default:
		return "none"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "list":
		return KindList, nil
	case "set":
		return KindSet, nil
	case "hash":
		return KindHash, nil
	default:
		return 0, fmt.Errorf("domain: unknown value kind %q", s)
	}
}

// Value is a tagged union over the four value kinds. Exactly one of the
// payload fields is meaningful, selected by Kind. Values are owned by the
// store; callers outside a locked store operation only ever see copies.
type Value struct {
	kind Kind
	str  string
	list []string
	set  map[string]struct{}
	hash map[string]string
}

// NewString returns a string value.
func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewList returns a list value holding items in order.
func NewList(items ...string) Value {
	l := make([]string, len(items))
	copy(l, items)
	return Value{kind: KindList, list: l}
}

// NewSet returns a set value holding the unique members of items.
func NewSet(items ...string) Value {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return Value{kind: KindSet, set: s}
}

// NewHash returns a hash value holding a copy of fields.
func NewHash(fields map[string]string) Value {
	h := make(map[string]string, len(fields))
	for f, v := range fields {
		h[f] = v
	}
	return Value{kind: KindHash, hash: h}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v holds no variant at all.
func (v Value) IsZero() bool { return v.kind == 0 }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// List returns the list payload. The slice aliases the store's copy and
// must only be used while holding the store lock.
func (v Value) List() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Set returns the set payload under the same aliasing rule as List.
func (v Value) Set() (map[string]struct{}, bool) {
	if v.kind != KindSet {
		return nil, false
	}
	return v.set, true
}

// Hash returns the hash payload under the same aliasing rule as List.
func (v Value) Hash() (map[string]string, bool) {
	if v.kind != KindHash {
		return nil, false
	}
	return v.hash, true
}

// WithList returns v with its list payload replaced. It panics if v is not a list.
func (v Value) WithList(l []string) Value {
	if v.kind != KindList {
		panic("domain: WithList on " + v.kind.String())
	}
	v.list = l
	return v
}

// Len returns the element count of a container, or 1 for a string.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return 1
	case KindList:
		return len(v.list)
	case KindSet:
		return len(v.set)
	case KindHash:
		return len(v.hash)
	default:
		return 0
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindString:
		return NewString(v.str)
	case KindList:
		return NewList(v.list...)
	case KindSet:
		return NewSet(v.Members()...)
	case KindHash:
		return NewHash(v.hash)
	default:
		return Value{}
	}
}

// Members returns the set members in sorted order, or nil for other kinds.
func (v Value) Members() []string {
	if v.kind != KindSet {
		return nil
	}
	out := make([]string, 0, len(v.set))
	for m := range v.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// String renders v for logs and debugging.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("string(%q)", v.str)
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindSet:
		return fmt.Sprintf("set(%d)", len(v.set))
	case KindHash:
		return fmt.Sprintf("hash(%d)", len(v.hash))
	default:
		return "none"
	}
}

package memory

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*Store, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now)), clk
}

// ============================================================================
// Strings & keys
// ============================================================================

func TestStore_SetGetRoundTrip(t *testing.T) {
	s, _ := newTestStore()

	values := []string{"v", "", "hello world", "42"}
	for _, v := range values {
		s.Set("k", v)
		got, ok := s.Get("k")
		if !ok || got != v {
			t.Fatalf("Get after Set(%q) = %q, %v", v, got, ok)
		}
	}

	if n := s.Delete("k"); n != 1 {
		t.Fatalf("Delete = %d, want 1", n)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatal("Get after Delete should miss")
	}
}

func TestStore_GetWrongKind(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.RPush("l", "a"); err != nil {
		t.Fatalf("RPush: %v", err)
	}
	if _, ok := s.Get("l"); ok {
		t.Fatal("Get on a list should report absent")
	}
}

func TestStore_DeleteAndExists(t *testing.T) {
	s, _ := newTestStore()
	s.Set("a", "1")
	s.Set("b", "2")
	if _, err := s.SAdd("c", "x"); err != nil {
		t.Fatal(err)
	}

	if n := s.Exists("a", "b", "c", "missing"); n != 3 {
		t.Fatalf("Exists = %d, want 3", n)
	}
	if n := s.Delete("a", "missing", "c"); n != 2 {
		t.Fatalf("Delete = %d, want 2", n)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Keys = %v, want [b]", got)
	}
}

func TestStore_IncrByImplicitZero(t *testing.T) {
	s, _ := newTestStore()

	for i := 1; i <= 5; i++ {
		got, err := s.IncrBy("c", 1)
		if err != nil {
			t.Fatalf("IncrBy: %v", err)
		}
		if got != int64(i) {
			t.Fatalf("IncrBy #%d = %d", i, got)
		}
	}

	got, err := s.IncrBy("c", -10)
	if err != nil || got != -5 {
		t.Fatalf("IncrBy(-10) = %d, %v", got, err)
	}
	if v, _ := s.Get("c"); v != "-5" {
		t.Fatalf("stored value = %q, want -5", v)
	}
}

func TestStore_IncrByNotInteger(t *testing.T) {
	s, _ := newTestStore()

	tests := []struct {
		name  string
		setup func()
	}{
		{"non-numeric string", func() { s.Set("k", "abc") }},
		{"float", func() { s.Set("k", "1.5") }},
		{"list", func() { s.Delete("k"); _, _ = s.RPush("k", "1") }},
		{"overflow", func() { s.Set("k", strconv.FormatInt(1<<62, 10)+"0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			before := s.Dump()
			if _, err := s.IncrBy("k", 1); !errors.Is(err, domain.ErrNotInteger) {
				t.Fatalf("IncrBy error = %v, want ErrNotInteger", err)
			}
			if after := s.Dump(); !reflect.DeepEqual(before, after) {
				t.Fatal("failed IncrBy must not mutate the value")
			}
		})
	}

	s.Set("max", "9223372036854775807")
	if _, err := s.IncrBy("max", 1); !errors.Is(err, domain.ErrNotInteger) {
		t.Fatalf("IncrBy overflow error = %v", err)
	}
}

func TestStore_FlushDB(t *testing.T) {
	s, _ := newTestStore()
	s.SetWithTTL("a", "1", time.Minute)
	s.Set("b", "2")
	s.FlushDB()
	if s.Len() != 0 || s.ExpiringCount() != 0 {
		t.Fatalf("after FlushDB Len=%d expiring=%d", s.Len(), s.ExpiringCount())
	}
}

func TestStore_Type(t *testing.T) {
	s, _ := newTestStore()
	s.Set("s", "v")
	_, _ = s.HSet("h", FieldValue{"f", "v"})
	if s.Type("s") != domain.KindString || s.Type("h") != domain.KindHash {
		t.Fatal("Type mismatch")
	}
	if s.Type("missing") != 0 {
		t.Fatal("Type of missing key should be 0")
	}
}

// ============================================================================
// Expiry
// ============================================================================

func TestStore_ExpireLazy(t *testing.T) {
	s, clk := newTestStore()
	s.Set("k", "v")

	if ttl := s.TTL("k"); ttl != -1 {
		t.Fatalf("TTL without deadline = %d, want -1", ttl)
	}
	if !s.Expire("k", time.Second) {
		t.Fatal("Expire on live key should apply")
	}
	if ttl := s.TTL("k"); ttl < 0 {
		t.Fatalf("TTL with live deadline = %d, want >= 0", ttl)
	}

	clk.Advance(time.Second)

	if _, ok := s.Get("k"); ok {
		t.Fatal("Get after deadline should miss")
	}
	if n := s.Exists("k"); n != 0 {
		t.Fatalf("Exists after deadline = %d", n)
	}
	if ttl := s.TTL("k"); ttl != -2 {
		t.Fatalf("TTL after deadline = %d, want -2", ttl)
	}
	if s.ExpiringCount() != 0 {
		t.Fatal("lazy eviction must drop the expiry entry too")
	}
}

func TestStore_ExpireMissingKey(t *testing.T) {
	s, _ := newTestStore()
	if s.Expire("nope", time.Second) {
		t.Fatal("Expire on missing key should report false")
	}
	if s.ExpiringCount() != 0 {
		t.Fatal("Expire on missing key must not create a dangling deadline")
	}
}

func TestStore_SetClearsTTL(t *testing.T) {
	s, clk := newTestStore()
	s.SetWithTTL("k", "v", time.Second)
	s.Set("k", "v2")
	clk.Advance(time.Hour)
	if got, ok := s.Get("k"); !ok || got != "v2" {
		t.Fatalf("plain SET should cancel prior TTL, got %q %v", got, ok)
	}
}

func TestStore_TTLSeconds(t *testing.T) {
	s, clk := newTestStore()
	s.SetWithTTL("k", "v", 10*time.Second)

	steps := []struct {
		advance time.Duration
		want    int64
	}{
		{0, 10},
		{time.Millisecond, 10},
		{2499 * time.Millisecond, 8},
		{time.Second, 7},
		{6000 * time.Millisecond, 1},
		{499 * time.Millisecond, 1},
		{time.Millisecond, -2},
	}
	for i, st := range steps {
		clk.Advance(st.advance)
		if ttl := s.TTL("k"); ttl != st.want {
			t.Fatalf("step %d: TTL = %d, want %d", i, ttl, st.want)
		}
	}
}

func TestStore_Persist(t *testing.T) {
	s, clk := newTestStore()
	s.SetWithTTL("k", "v", time.Second)

	if !s.Persist("k") {
		t.Fatal("Persist should remove the deadline")
	}
	if s.Persist("k") {
		t.Fatal("second Persist should report false")
	}
	clk.Advance(time.Hour)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("persisted key should survive")
	}
	if s.Persist("missing") {
		t.Fatal("Persist on missing key should report false")
	}
}

func TestStore_SweepExpired(t *testing.T) {
	s, clk := newTestStore()
	s.SetWithTTL("a", "1", time.Second)
	s.SetWithTTL("b", "2", 3*time.Second)
	_, _ = s.RPush("c", "x")
	s.Expire("c", time.Second)
	s.Set("d", "4")

	if got := s.SweepExpired(); len(got) != 0 {
		t.Fatalf("early sweep evicted %v", got)
	}

	clk.Advance(time.Second)
	if got := s.SweepExpired(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("sweep evicted %v, want [a c]", got)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("Keys after sweep = %v", got)
	}
	if s.ExpiringCount() != 1 {
		t.Fatalf("ExpiringCount = %d, want 1", s.ExpiringCount())
	}
}

func TestStore_ListingsSkipExpiredWithoutEvicting(t *testing.T) {
	s, clk := newTestStore()
	s.SetWithTTL("gone", "1", time.Second)
	s.Set("kept", "2")
	clk.Advance(time.Second)

	if got := s.Keys(); !reflect.DeepEqual(got, []string{"kept"}) {
		t.Fatalf("Keys = %v, want [kept]", got)
	}
	if n := s.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
	if recs := s.Dump(); len(recs) != 1 || recs[0].Key != "kept" {
		t.Fatalf("Dump = %v, want only kept", recs)
	}
	if s.ExpiringCount() != 1 {
		t.Fatalf("listing evicted the expired key, ExpiringCount = %d", s.ExpiringCount())
	}
	if got := s.SweepExpired(); !reflect.DeepEqual(got, []string{"gone"}) {
		t.Fatalf("SweepExpired = %v, want [gone]", got)
	}
	if s.ExpiringCount() != 0 || s.Len() != 1 {
		t.Fatalf("after sweep expiring=%d len=%d", s.ExpiringCount(), s.Len())
	}
}

// ============================================================================
// Snapshot
// ============================================================================

func TestStore_DumpRestore(t *testing.T) {
	s, clk := newTestStore()
	s.Set("s", "v")
	s.SetWithTTL("ttl", "v", time.Minute)
	s.SetWithTTL("short", "v", time.Second)
	_, _ = s.RPush("l", "a", "b")
	_, _ = s.SAdd("set", "x")
	_, _ = s.HSet("h", FieldValue{"f", "1"})

	records := s.Dump()
	if len(records) != 6 {
		t.Fatalf("Dump len = %d, want 6", len(records))
	}

	other := New(WithClock(clk.Now))
	clk.Advance(2 * time.Second)
	if n := other.Restore(records); n != 5 {
		t.Fatalf("Restore loaded %d, want 5 (expired record dropped)", n)
	}
	if got := other.LRange("l", 0, -1); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("restored list = %v", got)
	}
	if ttl := other.TTL("ttl"); ttl <= 0 {
		t.Fatalf("restored TTL = %d", ttl)
	}

	// Restored values must not alias the dump.
	_, _ = other.RPush("l", "c")
	if got := s.LRange("l", 0, -1); len(got) != 2 {
		t.Fatalf("source list changed to %v", got)
	}
}

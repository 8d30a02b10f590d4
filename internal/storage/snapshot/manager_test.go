package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
)

func sampleRecords() []memory.Record {
	exp := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	return []memory.Record{
		{Key: "h", Value: domain.NewHash(map[string]string{"f": "1", "g": "2"})},
		{Key: "l", Value: domain.NewList("a", "b", "a")},
		{Key: "s", Value: domain.NewString("v"), ExpiresAt: exp},
		{Key: "set", Value: domain.NewSet("x", "y")},
	}
}

// ============================================================================
// Create / Load
// ============================================================================

func TestManager_CreateLoadPlain(t *testing.T) {
	m, err := NewManager(Config{Dir: t.TempDir(), NodeID: "n1"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	want := sampleRecords()
	info, err := m.Create(want)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.KeyCount != 4 || info.Encrypted {
		t.Fatalf("info = %+v", info)
	}

	got, loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != info.ID || loaded.Checksum != info.Checksum {
		t.Fatalf("loaded info %+v, want %+v", loaded, info)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestManager_CreateLoadEncrypted(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(0xA0 + i)
	}

	m, err := NewManager(Config{Dir: dir, Encryption: EncryptionConfig{Key: key}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if !m.Encrypted() {
		t.Fatal("manager with key should encrypt")
	}
	if _, err := m.Create(sampleRecords()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, info, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !info.Encrypted || len(got) != 4 {
		t.Fatalf("Load = %d records, encrypted=%v", len(got), info.Encrypted)
	}

	// Plaintext manager cannot open it.
	plain, _ := NewManager(Config{Dir: dir})
	if _, _, err := plain.Load(); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("plain Load error = %v, want ErrMissingKey", err)
	}

	// Wrong key fails authentication.
	other := make([]byte, 32)
	wrong, _ := NewManager(Config{Dir: dir, Encryption: EncryptionConfig{Key: other}})
	if _, _, err := wrong.Load(); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("wrong-key Load error = %v, want ErrDecryptionFailed", err)
	}
}

func TestManager_PassphraseAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	enc := EncryptionConfig{Passphrase: []byte("correct horse battery")}

	first, err := NewManager(Config{Dir: dir, Encryption: enc})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := first.Create(sampleRecords()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A new manager generates a new salt; it must still open the old file.
	second, err := NewManager(Config{Dir: dir, Encryption: enc})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	got, _, err := second.Load()
	if err != nil {
		t.Fatalf("Load with fresh salt: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len(got) = %d, want 4", len(got))
	}
}

func TestManager_OpensSnapshotWrittenWithOtherAlgorithm(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	writer, err := NewManager(Config{Dir: dir, Encryption: EncryptionConfig{Key: key, Algorithm: "chacha20-poly1305"}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := writer.Create(sampleRecords()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Same key, different preferred algorithm: the header decides.
	reader, err := NewManager(Config{Dir: dir, Encryption: EncryptionConfig{Key: key, Algorithm: "aes-gcm"}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	got, _, err := reader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, sampleRecords()) {
		t.Fatalf("records mismatch: %v", got)
	}
}

func TestManager_LoadEmptyDir(t *testing.T) {
	m, _ := NewManager(Config{Dir: t.TempDir()})
	if _, _, err := m.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("Load error = %v, want ErrNoSnapshots", err)
	}
}

func TestManager_CreateEmpty(t *testing.T) {
	m, _ := NewManager(Config{Dir: t.TempDir()})
	if _, err := m.Create(nil); err != nil {
		t.Fatalf("Create(nil): %v", err)
	}
	got, _, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}

func TestManager_LoadFallsBackOnCorruptedLatest(t *testing.T) {
	m, _ := NewManager(Config{Dir: t.TempDir(), RetentionCount: 10})

	older := []memory.Record{{Key: "k", Value: domain.NewString("old")}}
	if _, err := m.Create(older); err != nil {
		t.Fatal(err)
	}
	latest, err := m.Create([]memory.Record{{Key: "k", Value: domain.NewString("new")}})
	if err != nil {
		t.Fatal(err)
	}

	// Flip a byte inside the data block.
	raw, err := os.ReadFile(latest.Path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-checksumSize-2] ^= 0xFF
	if err := os.WriteFile(latest.Path, raw, 0600); err != nil {
		t.Fatal(err)
	}

	got, info, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.ID == latest.ID {
		t.Fatal("Load should skip the corrupted snapshot")
	}
	if v, _ := got[0].Value.Str(); v != "old" {
		t.Fatalf("loaded value = %q, want old", v)
	}
}

func TestManager_LoadInvalidMagic(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(Config{Dir: dir})

	path := filepath.Join(dir, "snapshot-20240101000000-000001.snap")
	if err := os.WriteFile(path, make([]byte, 64), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Load(); !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("Load error = %v, want ErrNoSnapshots", err)
	}
}

// ============================================================================
// List / Prune / IDs
// ============================================================================

func TestManager_PruneKeepsNewest(t *testing.T) {
	m, _ := NewManager(Config{Dir: t.TempDir(), RetentionCount: 2})

	var last *Info
	for i := 0; i < 5; i++ {
		info, err := m.Create(sampleRecords())
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		last = info
	}
	if err := m.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[1].ID != last.ID {
		t.Fatalf("newest kept = %s, want %s", infos[1].ID, last.ID)
	}
}

func TestManager_IDsStayMonotonicAfterPrune(t *testing.T) {
	m, _ := NewManager(Config{Dir: t.TempDir(), RetentionCount: 1})

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		info, err := m.Create(nil)
		if err != nil {
			t.Fatal(err)
		}
		if seen[info.ID] {
			t.Fatalf("duplicate snapshot id %s", info.ID)
		}
		seen[info.ID] = true
		if err := m.Prune(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestManager_ListSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(Config{Dir: dir})
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600)
	_ = os.Mkdir(filepath.Join(dir, "snapshot-dir.snap"), 0750)
	if _, err := m.Create(nil); err != nil {
		t.Fatal(err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestEntry_UnknownKind(t *testing.T) {
	if _, err := (Entry{Key: "k", Kind: "zset"}).Record(); err == nil {
		t.Fatal("unknown kind should fail to decode")
	}
}

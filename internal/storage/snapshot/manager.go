package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/pkg/crypto/adaptive"
)

var magicBytes = []byte("KVMSNAP1")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 3
)

type snapshotHeader struct {
	Version   int    `json:"version"`
	CreatedAt int64  `json:"created_at"`
	NodeID    string `json:"node_id,omitempty"`
	KeyCount  uint64 `json:"key_count"`
	Encrypted bool   `json:"encrypted"`
	Algorithm string `json:"algorithm,omitempty"`
	Salt      string `json:"salt,omitempty"` // hex, set when the key was derived from a passphrase
}

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
	ErrMissingKey       = errors.New("snapshot: encrypted snapshot but no key configured")
)

// Config configures the snapshot manager.
type Config struct {
	Dir string

	// RetentionCount is how many of the newest snapshots Prune keeps.
	RetentionCount int

	// Encryption is optional; the zero value writes plaintext snapshots.
	Encryption EncryptionConfig

	NodeID string
}

// DefaultConfig returns a plaintext configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

// Manager writes, lists, loads and prunes snapshot files in one directory.
type Manager struct {
	cfg Config

	cipher *adaptive.Cipher
	salt   []byte

	// Ciphers for snapshots written under another salt or algorithm.
	mu      sync.Mutex
	derived map[string]*adaptive.Cipher
}

// NewManager creates the snapshot directory and prepares the cipher.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount <= 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}

	c, salt, err := NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:     cfg,
		cipher:  c,
		salt:    salt,
		derived: make(map[string]*adaptive.Cipher),
	}, nil
}

// Encrypted reports whether new snapshots are encrypted.
func (m *Manager) Encrypted() bool {
	return m.cipher != nil
}

// Info contains metadata about a snapshot.
type Info struct {
	ID        string `json:"id"`
	KeyCount  int64  `json:"key_count"`
	CreatedAt int64  `json:"created_at"`
	Size      int64  `json:"size"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
	NodeID    string `json:"node_id,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

// Create writes records to a new snapshot file.
func (m *Manager) Create(records []memory.Record) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := snapshotHeader{
		Version:   headerVersion,
		CreatedAt: now.UnixMilli(),
		NodeID:    m.cfg.NodeID,
		KeyCount:  uint64(len(records)),
		Encrypted: m.cipher != nil,
	}
	if m.cipher != nil {
		hdr.Algorithm = string(m.cipher.Algorithm())
	}
	if len(m.salt) > 0 {
		hdr.Salt = hex.EncodeToString(m.salt)
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}
	if err := writeBlock(writer, hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	data, err := json.Marshal(EncodeRecords(records))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal entries: %w", err)
	}
	if m.cipher != nil {
		data, err = m.cipher.Seal(data, magicBytes)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}
	if err := writeBlock(writer, data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Checksum trailer is not part of the hash.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:        id,
		KeyCount:  int64(len(records)),
		CreatedAt: now.UnixMilli(),
		Size:      stat.Size(),
		Path:      finalPath,
		Checksum:  hex.EncodeToString(sum),
		NodeID:    m.cfg.NodeID,
		Encrypted: hdr.Encrypted,
	}, nil
}

func writeBlock(w io.Writer, b []byte) error {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlock(r io.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.BigEndian.Uint32(n[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Load returns the records of the newest valid snapshot. Corrupted files
// are skipped in favor of older ones.
func (m *Manager) Load() ([]memory.Record, *Info, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		records, info, err := m.loadFile(snapshots[i].Path)
		if err == nil {
			return records, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string) ([]memory.Record, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	bodyLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, bodyLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, bodyLen), bodyLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, bodyLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	hdrJSON, err := readBlock(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	data, err := readBlock(br)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read data: %w", err)
	}

	if hdr.Encrypted {
		c, err := m.cipherFor(hdr)
		if err != nil {
			return nil, nil, err
		}
		data, err = c.Open(data, magicBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal entries: %w", err)
	}
	records, err := DecodeEntries(entries)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{
		ID:        strings.TrimSuffix(filepath.Base(path), fileExtension),
		KeyCount:  int64(hdr.KeyCount),
		CreatedAt: hdr.CreatedAt,
		Size:      stat.Size(),
		Path:      path,
		Checksum:  hex.EncodeToString(expected),
		NodeID:    hdr.NodeID,
		Encrypted: hdr.Encrypted,
	}

	return records, info, nil
}

// cipherFor returns the cipher able to open a snapshot with header hdr.
func (m *Manager) cipherFor(hdr snapshotHeader) (*adaptive.Cipher, error) {
	if m.cipher == nil {
		return nil, ErrMissingKey
	}
	sameSalt := hdr.Salt == "" || hdr.Salt == hex.EncodeToString(m.salt)
	sameAlg := hdr.Algorithm == "" || adaptive.Algorithm(hdr.Algorithm) == m.cipher.Algorithm()
	if sameSalt && sameAlg {
		return m.cipher, nil
	}
	if !sameSalt && len(m.cfg.Encryption.Passphrase) == 0 {
		return nil, fmt.Errorf("snapshot: salted snapshot requires a passphrase")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cacheKey := hdr.Salt + "/" + hdr.Algorithm
	if c, ok := m.derived[cacheKey]; ok {
		return c, nil
	}

	cfg := m.cfg.Encryption
	if hdr.Algorithm != "" {
		cfg.Algorithm = hdr.Algorithm
	}
	if sameSalt {
		cfg.Salt = m.salt
	} else {
		salt, err := hex.DecodeString(hdr.Salt)
		if err != nil {
			return nil, fmt.Errorf("snapshot: bad salt: %w", err)
		}
		cfg.Salt = salt
	}
	c, _, err := NewCipherFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	m.derived[cacheKey] = c
	return c, nil
}

// List lists snapshot files oldest first (metadata only).
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune deletes all but the newest RetentionCount snapshots.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= m.cfg.RetentionCount {
		return nil
	}

	for _, info := range infos[:len(infos)-m.cfg.RetentionCount] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("snapshot: prune %s: %w", info.ID, err)
		}
	}
	return nil
}

// generateID returns a name that sorts after every snapshot taken in the
// same second, including ones Prune has already removed from the middle.
func (m *Manager) generateID(t time.Time) string {
	ts := t.Format("20060102150405")
	prefix := filePrefix + ts + "-"
	seq := 0

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExtension))
		if err == nil && n > seq {
			seq = n
		}
	}

	return fmt.Sprintf("%s%06d", prefix, seq+1)
}

package snapshot

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/kvmesh-go/pkg/crypto/adaptive"
)

// Encryption errors.
var (
	ErrKeyTooShort       = errors.New("snapshot: encryption key too short (minimum 16 bytes)")
	ErrPassphraseTooWeak = errors.New("snapshot: passphrase too weak (minimum 8 characters)")
	ErrDecryptionFailed  = errors.New("snapshot: decryption failed - wrong key or corrupted data")
)

const (
	// MinKeyLength is the minimum key length for encryption.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the fixed salt length used in key derivation.
	SaltLength = 16

	// SubkeyInfo is the HKDF info string for the snapshot key.
	SubkeyInfo = "kvmesh/snapshot/v1"

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = adaptive.KeySize
)

// EncryptionConfig configures snapshot encryption.
//
// With Key set, the snapshot key is derived from it with HKDF. With
// Passphrase set, the key is derived with Argon2id under Salt; a fresh salt
// is generated when Salt is nil and recorded in every snapshot header so
// the same passphrase can open the file later.
type EncryptionConfig struct {
	Key        []byte
	Passphrase []byte
	Salt       []byte

	// Algorithm is "aes-gcm", "chacha20-poly1305" or "" to pick by hardware.
	Algorithm string
}

// Enabled reports whether any key material is configured.
func (c EncryptionConfig) Enabled() bool {
	return len(c.Key) > 0 || len(c.Passphrase) > 0
}

// ValidateConfig validates the encryption configuration.
func ValidateConfig(cfg EncryptionConfig) error {
	if len(cfg.Passphrase) > 0 {
		if len(cfg.Passphrase) < MinPassphraseLength {
			return ErrPassphraseTooWeak
		}
		return nil
	}

	if len(cfg.Key) > 0 && len(cfg.Key) < MinKeyLength {
		return ErrKeyTooShort
	}

	return nil
}

// NewCipherFromConfig creates a cipher from cfg. It returns a nil cipher
// when encryption is not configured, and the salt used when the key came
// from a passphrase.
func NewCipherFromConfig(cfg EncryptionConfig) (*adaptive.Cipher, []byte, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}
	alg, err := adaptive.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}

	var key, salt []byte
	switch {
	case len(cfg.Passphrase) > 0:
		salt, key, err = DeriveKeyFromPassphrase(cfg.Passphrase, cfg.Salt)
		if err != nil {
			return nil, nil, err
		}
	case len(cfg.Key) > 0:
		key, err = DeriveSubkey(cfg.Key, SubkeyInfo, adaptive.KeySize)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, nil
	}
	defer ZeroKey(key)

	c, err := adaptive.NewWithAlgorithm(key, alg)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: create cipher: %w", err)
	}
	return c, salt, nil
}

// DeriveKeyFromPassphrase derives a 32-byte key with Argon2id. A random
// salt is generated when salt is nil.
func DeriveKeyFromPassphrase(passphrase, salt []byte) (usedSalt, key []byte, err error) {
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("snapshot: derive key: %w", err)
		}
	}
	if len(salt) != SaltLength {
		return nil, nil, fmt.Errorf("snapshot: salt must be %d bytes", SaltLength)
	}

	key = argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return salt, key, nil
}

// DeriveSubkey derives a purpose-bound subkey from a master key using HKDF.
func DeriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("snapshot: derive subkey: %w", err)
	}
	return key, nil
}

// ZeroKey overwrites key in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

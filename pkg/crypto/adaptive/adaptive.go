// Package adaptive seals byte payloads with an AEAD chosen to suit the CPU.
//
// AES-256-GCM is used where the processor has AES instructions and
// ChaCha20-Poly1305 everywhere else. Both take a 32-byte key. A sealed
// payload is the random nonce followed by the ciphertext and tag.
package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/sys/cpu"
)

// Algorithm names an AEAD construction. The value is what snapshot
// headers record.
type Algorithm string

const (
	AESGCM           Algorithm = "aes-gcm"
	ChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

// KeySize is the key length every algorithm takes.
const KeySize = 32

var (
	ErrUnknownAlgorithm = errors.New("adaptive: unknown algorithm")
	ErrKeySize          = fmt.Errorf("adaptive: key must be %d bytes", KeySize)
	ErrShortPayload     = errors.New("adaptive: sealed payload too short")
)

// hasAESHardware is a variable so tests can force either branch.
var hasAESHardware = func() bool {
	return (cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ) || cpu.ARM64.HasAES || cpu.S390X.HasAES
}

// Preferred returns the algorithm best suited to this machine.
func Preferred() Algorithm {
	if hasAESHardware() {
		return AESGCM
	}
	return ChaCha20Poly1305
}

// ParseAlgorithm validates a configured algorithm name. The empty string
// selects Preferred.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return Preferred(), nil
	case AESGCM, ChaCha20Poly1305:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// Cipher is safe for concurrent use.
type Cipher struct {
	alg  Algorithm
	aead cipher.AEAD
}

// New creates a cipher using the preferred algorithm.
func New(key []byte) (*Cipher, error) {
	return NewWithAlgorithm(key, Preferred())
}

// NewWithAlgorithm creates a cipher for alg. The key is not retained
// beyond what the AEAD itself keeps, so callers may zero it afterwards.
func NewWithAlgorithm(key []byte, alg Algorithm) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case AESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case ChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("adaptive: %s: %w", alg, err)
	}
	return &Cipher{alg: alg, aead: aead}, nil
}

// Algorithm reports which construction c uses.
func (c *Cipher) Algorithm() Algorithm { return c.alg }

// Overhead is how many bytes Seal adds to a payload.
func (c *Cipher) Overhead() int { return c.aead.NonceSize() + c.aead.Overhead() }

// Seal encrypts plaintext and authenticates it together with aad.
func (c *Cipher) Seal(plaintext, aad []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	out := make([]byte, n, n+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("adaptive: nonce: %w", err)
	}
	return c.aead.Seal(out, out, plaintext, aad), nil
}

// Open reverses Seal. It fails if the payload or aad was altered.
func (c *Cipher) Open(sealed, aad []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n+c.aead.Overhead() {
		return nil, ErrShortPayload
	}
	return c.aead.Open(nil, sealed[:n], sealed[n:], aad)
}

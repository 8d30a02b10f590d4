package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
	"github.com/yndnr/kvmesh-go/pkg/crypto/adaptive"
)

var dataSizes = []int{64, 1024, 16384, 1 << 20}

func newCipher(b *testing.B, alg adaptive.Algorithm) *adaptive.Cipher {
	b.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}
	c, err := adaptive.NewWithAlgorithm(key, alg)
	if err != nil {
		b.Fatalf("NewWithAlgorithm(%s): %v", alg, err)
	}
	return c
}

// BenchmarkCipherSeal compares both snapshot ciphers across block sizes.
func BenchmarkCipherSeal(b *testing.B) {
	for _, alg := range []adaptive.Algorithm{adaptive.AESGCM, adaptive.ChaCha20Poly1305} {
		for _, size := range dataSizes {
			b.Run(fmt.Sprintf("%s/%s", alg, sizeLabel(size)), func(b *testing.B) {
				c := newCipher(b, alg)
				data := make([]byte, size)
				_, _ = rand.Read(data)

				b.ReportAllocs()
				b.SetBytes(int64(size))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := c.Seal(data, nil); err != nil {
						b.Fatalf("Seal: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkCipherOpen measures authenticated decryption.
func BenchmarkCipherOpen(b *testing.B) {
	for _, alg := range []adaptive.Algorithm{adaptive.AESGCM, adaptive.ChaCha20Poly1305} {
		for _, size := range dataSizes {
			b.Run(fmt.Sprintf("%s/%s", alg, sizeLabel(size)), func(b *testing.B) {
				c := newCipher(b, alg)
				data := make([]byte, size)
				_, _ = rand.Read(data)
				sealed, err := c.Seal(data, []byte("aad"))
				if err != nil {
					b.Fatal(err)
				}

				b.ReportAllocs()
				b.SetBytes(int64(size))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := c.Open(sealed, []byte("aad")); err != nil {
						b.Fatalf("Open: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkCipherParallel measures a shared cipher under concurrency.
func BenchmarkCipherParallel(b *testing.B) {
	c := newCipher(b, adaptive.AESGCM)
	data := make([]byte, 1024)
	_, _ = rand.Read(data)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.Seal(data, nil); err != nil {
				b.Errorf("Seal: %v", err)
				return
			}
		}
	})
}

// BenchmarkPassphraseDerivation measures the Argon2id cost paid once per
// process start when snapshots use a passphrase.
func BenchmarkPassphraseDerivation(b *testing.B) {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := snapshot.DeriveKeyFromPassphrase([]byte("correct horse battery staple"), salt); err != nil {
			b.Fatalf("DeriveKeyFromPassphrase: %v", err)
		}
	}
}

// BenchmarkSubkeyDerivation measures HKDF subkey expansion.
func BenchmarkSubkeyDerivation(b *testing.B) {
	master := make([]byte, 32)
	_, _ = rand.Read(master)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := snapshot.DeriveSubkey(master, "kvmesh/snapshot/v1", 32); err != nil {
			b.Fatalf("DeriveSubkey: %v", err)
		}
	}
}

func sizeLabel(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%dMB", size>>20)
	case size >= 1<<10:
		return fmt.Sprintf("%dKB", size>>10)
	default:
		return fmt.Sprintf("%dB", size)
	}
}

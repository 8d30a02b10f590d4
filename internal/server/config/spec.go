package config

import "time"

// ServerConfig is the root configuration for kvmesh-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	PubSub   PubSubSection   `koanf:"pubsub"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the listeners.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	PlainEnabled bool          `koanf:"plain_enabled"`
	PlainAddress string        `koanf:"plain_address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	// RequirePass enables AUTH when non-empty.
	RequirePass string `koanf:"requirepass"`
}

// HTTPConfig configures the admin HTTP listener.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
}

// LocalConfig configures the admin API on a Unix socket. Access is
// controlled by file permissions; no password is asked.
type LocalConfig struct {
	Enabled    bool   `koanf:"enabled"`
	SocketPath string `koanf:"socket_path"`
}

// StorageSection configures the keyspace engine and its persistence.
type StorageSection struct {
	DataDir string `koanf:"data_dir"`

	// Backend is one of file, badger or none.
	Backend string `koanf:"backend"`

	// PersistMode is sync (save after each mutation) or interval.
	PersistMode string `koanf:"persist_mode"`

	SweepInterval    time.Duration `koanf:"sweep_interval"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
	SnapshotKeep     int           `koanf:"snapshot_keep"`
	BadgerGCInterval time.Duration `koanf:"badger_gc_interval"`
}

// PubSubSection configures the broker.
type PubSubSection struct {
	// MaxPending bounds each subscriber's queue. A subscriber that falls
	// further behind is disconnected.
	MaxPending int `koanf:"max_pending"`
}

// SecuritySection configures encryption at rest. At most one of
// EncryptionKey and EncryptionPassphrase may be set.
type SecuritySection struct {
	// EncryptionKey is a hex-encoded 32-byte key. It encrypts snapshot
	// files and, with the badger backend, the badger DB.
	EncryptionKey string `koanf:"encryption_key"`

	// EncryptionPassphrase derives the snapshot key with Argon2id. The
	// salt is stored in each snapshot header. File backend only.
	EncryptionPassphrase string `koanf:"encryption_passphrase"`

	// Cipher is "aes-gcm", "chacha20-poly1305" or empty to pick by CPU.
	// File backend only; badger always uses its own AES mode.
	Cipher string `koanf:"cipher"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultHTTPAddr     = "127.0.0.1:6380"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultSocketPath   = "/run/kvmesh-server/admin.sock"

	DefaultDataDir          = "/var/lib/kvmesh-server/data"
	DefaultBackend          = BackendFile
	DefaultPersistMode      = "sync"
	DefaultSweepInterval    = time.Second
	DefaultSnapshotInterval = 30 * time.Second
	DefaultSnapshotKeep     = 3
	DefaultBadgerGCInterval = 10 * time.Minute

	DefaultMaxPending = 1024

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				PlainEnabled: true,
				PlainAddress: DefaultRedisAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
			HTTP: HTTPConfig{
				Enabled: true,
				Address: DefaultHTTPAddr,
			},
			Local: LocalConfig{
				SocketPath: DefaultSocketPath,
			},
		},
		Storage: StorageSection{
			DataDir:          DefaultDataDir,
			Backend:          DefaultBackend,
			PersistMode:      DefaultPersistMode,
			SweepInterval:    DefaultSweepInterval,
			SnapshotInterval: DefaultSnapshotInterval,
			SnapshotKeep:     DefaultSnapshotKeep,
			BadgerGCInterval: DefaultBadgerGCInterval,
		},
		PubSub: PubSubSection{
			MaxPending: DefaultMaxPending,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
	"github.com/yndnr/kvmesh-go/pkg/crypto/adaptive"
)

// Verify validates the configuration. Persistent backends get their data
// directory created.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if cfg.PubSub.MaxPending < 1 {
		return errors.New("pubsub.max_pending must be at least 1")
	}
	if err := verifySecurity(&cfg.Security, cfg.Storage.Backend); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if !cfg.Redis.PlainEnabled && !cfg.HTTP.Enabled {
		return errors.New("at least one of server.redis.plain_enabled and server.http.enabled must be set")
	}
	if cfg.Redis.PlainEnabled {
		if err := verifyAddr("server.redis.plain_address", cfg.Redis.PlainAddress); err != nil {
			return err
		}
	}
	if cfg.HTTP.Enabled {
		if err := verifyAddr("server.http.address", cfg.HTTP.Address); err != nil {
			return err
		}
	}
	if cfg.Redis.PlainEnabled && cfg.HTTP.Enabled && cfg.Redis.PlainAddress == cfg.HTTP.Address {
		return fmt.Errorf("server.redis.plain_address and server.http.address conflict: %s", cfg.HTTP.Address)
	}
	if cfg.Local.Enabled && cfg.Local.SocketPath == "" {
		return errors.New("server.local.socket_path is required when server.local.enabled is set")
	}
	if cfg.Redis.RateLimit < 0 {
		return errors.New("server.redis.rate_limit must not be negative")
	}
	return nil
}

func verifyAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: invalid address %q: %w", field, addr, err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendFile, BackendBadger:
	case BackendNone:
		return verifyPersistMode(cfg)
	default:
		return fmt.Errorf("storage.backend must be file, badger or none, got %q", cfg.Backend)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	return verifyPersistMode(cfg)
}

func verifyPersistMode(cfg *StorageSection) error {
	switch cfg.PersistMode {
	case "sync":
	case "interval":
		if cfg.SnapshotInterval <= 0 {
			return errors.New("storage.snapshot_interval must be positive in interval mode")
		}
	default:
		return fmt.Errorf("storage.persist_mode must be sync or interval, got %q", cfg.PersistMode)
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("storage.sweep_interval must be positive")
	}
	return nil
}

func verifySecurity(cfg *SecuritySection, backend string) error {
	if cfg.EncryptionKey != "" && cfg.EncryptionPassphrase != "" {
		return errors.New("security.encryption_key and security.encryption_passphrase are mutually exclusive")
	}
	if cfg.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return errors.New("security.encryption_key must be hex encoded")
		}
		if len(key) != 32 {
			return fmt.Errorf("security.encryption_key must decode to 32 bytes, got %d", len(key))
		}
	}
	if cfg.EncryptionPassphrase != "" {
		if len(cfg.EncryptionPassphrase) < snapshot.MinPassphraseLength {
			return fmt.Errorf("security.encryption_passphrase must be at least %d characters", snapshot.MinPassphraseLength)
		}
		if backend == BackendBadger {
			return errors.New("security.encryption_passphrase is not supported by the badger backend; use security.encryption_key")
		}
	}
	if cfg.Cipher != "" {
		if _, err := adaptive.ParseAlgorithm(cfg.Cipher); err != nil {
			return fmt.Errorf("security.cipher must be aes-gcm or chacha20-poly1305, got %q", cfg.Cipher)
		}
		if backend == BackendBadger {
			return errors.New("security.cipher applies to the file backend only")
		}
	}
	return nil
}

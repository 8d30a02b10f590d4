package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/infra/confloader"
	"github.com/yndnr/kvmesh-go/internal/infra/shutdown"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/kvmesh-go/internal/server/localserver"
	"github.com/yndnr/kvmesh-go/internal/server/redisserver"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags are the command-line settings. Only flags given explicitly
// override the config file and environment.
type flags struct {
	configFile  string
	showVersion bool
	overrides   map[string]any
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("kvmesh-server", flag.ContinueOnError)
	f := &flags{overrides: make(map[string]any)}
	fs.StringVar(&f.configFile, "config", "", "path to configuration file")
	fs.BoolVar(&f.showVersion, "version", false, "show version information")

	keyed := map[string]string{
		"redis-addr":   "server.redis.plain_address",
		"http-addr":    "server.http.address",
		"data-dir":     "storage.data_dir",
		"backend":      "storage.backend",
		"persist-mode": "storage.persist_mode",
		"log-level":    "log.level",
		"log-format":   "log.format",
	}
	values := make(map[string]*string, len(keyed))
	for name, key := range keyed {
		values[name] = fs.String(name, "", "overrides "+key)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		if key, ok := keyed[fl.Name]; ok {
			f.overrides[key] = *values[fl.Name]
		}
	})
	return f, nil
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.showVersion {
		fmt.Printf("kvmesh-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(f.configFile, f.overrides)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting kvmesh-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", f.configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	reg := metric.NewRegistry()

	persister, err := newPersister(cfg, log, reg)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	engine, err := storage.New(storage.Config{
		PersistMode:      storage.PersistMode(cfg.Storage.PersistMode),
		SweepInterval:    cfg.Storage.SweepInterval,
		SnapshotInterval: cfg.Storage.SnapshotInterval,
		Logger:           log,
		Metrics:          reg,
	}, persister)
	if err != nil {
		_ = persister.Close()
		return fmt.Errorf("init storage: %w", err)
	}

	ctx := context.Background()
	if err := engine.Recover(ctx); err != nil {
		_ = engine.Close()
		return fmt.Errorf("storage recovery: %w", err)
	}

	broker := pubsub.NewBroker(pubsub.Config{
		MaxPending: cfg.PubSub.MaxPending,
		Logger:     log,
		Metrics:    reg,
	})
	if err := reg.Register(metric.NewCollector(func() metric.Stats {
		ks, ps := engine.Stats(), broker.Stats()
		return metric.Stats{
			Keys:         ks.Keys,
			ExpiringKeys: ks.ExpiringKeys,
			Channels:     ps.Channels,
			Subscribers:  ps.Subscribers,
		}
	})); err != nil {
		log.Warn("register keyspace collector", "error", err)
	}

	exec := command.New(command.Config{
		RequirePass: cfg.Server.Redis.RequirePass,
		Logger:      log,
		Metrics:     reg,
	}, engine, broker)

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)
	// Registered first so it runs last, after every listener has stopped.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		broker.Close()
		return engine.Close()
	})

	var redisSrv *redisserver.Server
	if cfg.Server.Redis.PlainEnabled {
		redisSrv = redisserver.New(&redisserver.Config{
			Enabled:      true,
			Address:      cfg.Server.Redis.PlainAddress,
			ReadTimeout:  cfg.Server.Redis.ReadTimeout,
			WriteTimeout: cfg.Server.Redis.WriteTimeout,
			IdleTimeout:  cfg.Server.Redis.IdleTimeout,
			RateLimit:    cfg.Server.Redis.RateLimit,
		}, exec, broker, log, reg)
		if err := redisSrv.Start(ctx); err != nil {
			_ = shutdownHandler.Shutdown()
			return fmt.Errorf("start redis listener: %w", err)
		}
		shutdownHandler.OnShutdown("redis", redisSrv.Shutdown)
	}

	var adminHandler *handler.Handler
	if cfg.Server.HTTP.Enabled || cfg.Server.Local.Enabled {
		hcfg := handler.Config{
			Keyspace:      engine,
			Subscriptions: broker,
			Logger:        log,
		}
		if redisSrv != nil {
			hcfg.Connections = redisSrv.ConnCount
		}
		adminHandler = handler.New(hcfg)
	}

	if cfg.Server.HTTP.Enabled {
		httpSrv := httpserver.New(cfg.Server.HTTP.Address, httpserver.NewRouter(httpserver.RouterConfig{
			Handler:       adminHandler,
			Metrics:       reg,
			Logger:        log,
			AdminPassword: cfg.Server.Redis.RequirePass,
			RateLimit:     cfg.Server.Redis.RateLimit,
		}), log)
		if err := httpSrv.Start(); err != nil {
			_ = shutdownHandler.Shutdown()
			return fmt.Errorf("start http listener: %w", err)
		}
		shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
			adminHandler.SetReady(false)
			return httpSrv.Shutdown(ctx)
		})
	}

	// The socket is guarded by file permissions, so no password.
	if cfg.Server.Local.Enabled {
		localSrv := localserver.New(cfg.Server.Local.SocketPath, httpserver.NewRouter(httpserver.RouterConfig{
			Handler: adminHandler,
			Metrics: reg,
			Logger:  log,
		}), log)
		if err := localSrv.Start(); err != nil {
			_ = shutdownHandler.Shutdown()
			return fmt.Errorf("start local admin socket: %w", err)
		}
		shutdownHandler.OnShutdown("local-admin", func(ctx context.Context) error {
			adminHandler.SetReady(false)
			return localSrv.Shutdown(ctx)
		})
	}

	if adminHandler != nil {
		adminHandler.SetReady(true)
	}

	if f.configFile != "" {
		watchCtx, stopWatch := context.WithCancel(ctx)
		if err := watchConfig(watchCtx, f.configFile, f.overrides, log); err != nil {
			log.Warn("config watcher disabled", "error", err)
		}
		shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
			stopWatch()
			return nil
		})
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the config file, KVMESH_* variables and
// flag overrides, then validates the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newPersister builds the configured storage backend.
func newPersister(cfg *config.ServerConfig, log *slog.Logger, reg *metric.Registry) (storage.Persister, error) {
	var key []byte
	if cfg.Security.EncryptionKey != "" {
		var err error
		if key, err = hex.DecodeString(cfg.Security.EncryptionKey); err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
	}

	switch cfg.Storage.Backend {
	case config.BackendNone:
		log.Warn("persistence disabled; the keyspace is lost on restart")
		return storage.NopPersister{}, nil

	case config.BackendBadger:
		if cfg.Security.EncryptionPassphrase != "" {
			return nil, fmt.Errorf("badger backend needs security.encryption_key, not a passphrase")
		}
		bcfg := storage.DefaultBadgerConfig(filepath.Join(cfg.Storage.DataDir, "badger"))
		if cfg.Storage.BadgerGCInterval > 0 {
			bcfg.GCInterval = cfg.Storage.BadgerGCInterval
		}
		bcfg.EncryptionKey = key
		p, err := storage.NewBadgerPersister(bcfg, log)
		if err != nil {
			return nil, err
		}
		for _, c := range p.Collectors() {
			if err := reg.Register(c); err != nil {
				log.Warn("register badger collector", "error", err)
			}
		}
		return p, nil

	default:
		scfg := snapshot.DefaultConfig(filepath.Join(cfg.Storage.DataDir, "snapshots"))
		if cfg.Storage.SnapshotKeep > 0 {
			scfg.RetentionCount = cfg.Storage.SnapshotKeep
		}
		scfg.Encryption = snapshot.EncryptionConfig{
			Key:       key,
			Algorithm: cfg.Security.Cipher,
		}
		if cfg.Security.EncryptionPassphrase != "" {
			scfg.Encryption.Passphrase = []byte(cfg.Security.EncryptionPassphrase)
		}
		return storage.NewFilePersister(scfg)
	}
}

// watchConfig reloads the log level when the config file changes. Other
// settings need a restart.
func watchConfig(ctx context.Context, path string, overrides map[string]any, log *slog.Logger) error {
	w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	w.OnChange(func(string) {
		cfg, err := loadConfig(path, overrides)
		if err != nil {
			log.Error("config reload rejected", "error", err)
			return
		}
		old := logger.Level()
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Error("config reload rejected", "error", err)
			return
		}
		if old != logger.Level() {
			log.Info("log level changed", "from", old, "to", logger.Level())
		}
	})
	go w.Run(ctx)
	return nil
}

package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/command"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/kvmesh-go/internal/server/redisserver"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// testEnv is a running server pair plus an isolated CLI settings file.
type testEnv struct {
	redisAddr  string
	adminURL   string
	configPath string
	engine     *storage.Engine
}

func newTestEnv(t *testing.T, password string) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metric.NewRegistry()

	eng, err := storage.New(storage.Config{Logger: log, Metrics: reg}, storage.NopPersister{})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	broker := pubsub.NewBroker(pubsub.Config{Logger: log})
	exec := command.New(command.Config{RequirePass: password, Logger: log}, eng, broker)

	srv := redisserver.New(&redisserver.Config{
		Enabled:      true,
		Address:      "127.0.0.1:0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, exec, broker, log, reg)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h := handler.New(handler.Config{
		Keyspace:      eng,
		Subscriptions: broker,
		Connections:   srv.ConnCount,
		Logger:        log,
	})
	h.SetReady(true)
	admin := httptest.NewServer(httpserver.NewRouter(httpserver.RouterConfig{
		Handler:       h,
		Metrics:       reg,
		Logger:        log,
		AdminPassword: password,
	}))

	t.Cleanup(func() {
		admin.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		broker.Close()
		_ = eng.Close()
	})

	return &testEnv{
		redisAddr:  srv.Addr().String(),
		adminURL:   admin.URL,
		configPath: filepath.Join(t.TempDir(), "cli.yaml"),
		engine:     eng,
	}
}

// run executes the CLI against env with the given stdin and arguments,
// returning stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &errOut

	full := []string{"kvmesh-cli", "--config", e.configPath, "--server", e.redisAddr, "--admin", e.adminURL}
	full = append(full, args...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := app.RunContext(ctx, full)
	return out.String(), err
}

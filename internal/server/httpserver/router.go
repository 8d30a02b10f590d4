package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// RouterConfig wires the admin routes.
type RouterConfig struct {
	Handler *handler.Handler
	Metrics *metric.Registry
	Logger  *slog.Logger

	// AdminPassword protects /admin/v1/*. Empty leaves it open.
	AdminPassword string

	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit int
}

// NewRouter builds the admin mux.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "http")
	h := cfg.Handler

	base := []Middleware{
		RequestID(),
		Recover(log),
		RateLimit(cfg.RateLimit, cfg.Metrics),
	}
	admin := append(append([]Middleware{}, base...), Audit(log), AdminAuth(cfg.AdminPassword))

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(http.HandlerFunc(h.Health), base...))
	mux.Handle("GET /ready", Chain(http.HandlerFunc(h.Ready), base...))
	mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), base...))

	mux.Handle("GET /admin/v1/status/summary", Chain(http.HandlerFunc(h.StatusSummary), admin...))
	mux.Handle("POST /admin/v1/snapshots", Chain(http.HandlerFunc(h.Snapshot), admin...))

	return mux
}

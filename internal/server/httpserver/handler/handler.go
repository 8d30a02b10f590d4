// Package handler implements the admin HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/pubsub"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// Keyspace is the part of the storage engine the admin API uses.
type Keyspace interface {
	Stats() storage.Stats
	Save(ctx context.Context) error
}

// Subscriptions reports pub/sub registry size.
type Subscriptions interface {
	Stats() pubsub.Stats
}

// Config holds the handler's dependencies.
type Config struct {
	Keyspace      Keyspace
	Subscriptions Subscriptions

	// Connections reports open RESP connections. Optional.
	Connections func() int

	Logger *slog.Logger
	Clock  func() time.Time
}

// Handler serves the admin endpoints.
type Handler struct {
	keyspace    Keyspace
	subs        Subscriptions
	connections func() int
	logger      *slog.Logger
	now         func() time.Time
	startedAt   time.Time
	ready       atomic.Bool
}

// New creates a handler. It reports not-ready until SetReady(true).
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Connections == nil {
		cfg.Connections = func() int { return 0 }
	}
	return &Handler{
		keyspace:    cfg.Keyspace,
		subs:        cfg.Subscriptions,
		connections: cfg.Connections,
		logger:      cfg.Logger.With("component", "admin"),
		now:         cfg.Clock,
		startedAt:   cfg.Clock(),
	}
}

// SetReady flips the /ready answer. The server sets it once recovery has
// finished and listeners are up, and clears it on shutdown.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	resp := Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: logger.RequestIDFromContext(r.Context()),
		Timestamp: h.now().UnixMilli(),
		Data:      data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := Response{
		Code:      code,
		Message:   message,
		RequestID: logger.RequestIDFromContext(r.Context()),
		Timestamp: h.now().UnixMilli(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// handleError maps domain errors to HTTP statuses by the leading digit of
// their code.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.GetErrorCode(err)
	if code == "" {
		logger.L(r.Context()).Error("internal error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
		return
	}
	h.writeError(w, r, statusForCode(code), code, err.Error())
}

func statusForCode(code string) int {
	i := strings.LastIndexByte(code, '-')
	if i < 0 || i+1 >= len(code) {
		return http.StatusInternalServerError
	}
	switch code[i+1:] {
	case "4010":
		return http.StatusUnauthorized
	case "4007":
		return http.StatusNotFound
	}
	if code[i+1] == '4' {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

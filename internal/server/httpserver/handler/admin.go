package handler

import (
	"net/http"
	"runtime"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// StatusSummary handles GET /admin/v1/status/summary.
func (h *Handler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	ks := h.keyspace.Stats()
	ps := h.subs.Stats()

	h.writeJSON(w, r, http.StatusOK, StatusSummary{
		Build:         buildinfo.Get(),
		StartedAt:     h.startedAt.UTC(),
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Connections:   h.connections(),
		Keys:          ks.Keys,
		ExpiringKeys:  ks.ExpiringKeys,
		Backend:       ks.Backend,
		PersistMode:   ks.PersistMode,
		Dirty:         ks.Dirty,
		LastSave:      ks.LastSave,
		LastSaveErr:   ks.LastSaveErr,
		Channels:      ps.Channels,
		Subscribers:   ps.Subscribers,
	})
}

// Snapshot handles POST /admin/v1/snapshots. The save is synchronous.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.keyspace.Save(r.Context()); err != nil {
		logger.L(r.Context()).Error("forced snapshot failed", "error", err)
		if domain.GetErrorCode(err) == "" {
			err = domain.ErrPersistence.WithCause(err).WithDetails(err.Error())
		}
		h.handleError(w, r, err)
		return
	}

	ks := h.keyspace.Stats()
	logger.L(r.Context()).Info("forced snapshot saved", "backend", ks.Backend, "keys", ks.Keys)
	h.writeJSON(w, r, http.StatusCreated, SnapshotResponse{
		Backend: ks.Backend,
		Keys:    ks.Keys,
		SavedAt: ks.LastSave.UTC(),
	})
}

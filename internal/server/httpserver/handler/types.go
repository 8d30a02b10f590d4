package handler

import (
	"time"

	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

// Response is the JSON envelope for every admin response except /metrics.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status string    `json:"status" yaml:"status"`
	Time   time.Time `json:"time" yaml:"time"`
}

// StatusSummary is the body of GET /admin/v1/status/summary.
type StatusSummary struct {
	Build         buildinfo.Info `json:"build" yaml:"build"`
	StartedAt     time.Time      `json:"started_at" yaml:"started_at"`
	UptimeSeconds int64          `json:"uptime_seconds" yaml:"uptime_seconds"`
	Goroutines    int            `json:"goroutines" yaml:"goroutines"`
	Connections   int            `json:"connections" yaml:"connections"`

	Keys         int       `json:"keys" yaml:"keys"`
	ExpiringKeys int       `json:"expiring_keys" yaml:"expiring_keys"`
	Backend      string    `json:"backend" yaml:"backend"`
	PersistMode  string    `json:"persist_mode" yaml:"persist_mode"`
	Dirty        bool      `json:"dirty" yaml:"dirty"`
	LastSave     time.Time `json:"last_save,omitempty" yaml:"last_save,omitempty"`
	LastSaveErr  string    `json:"last_save_error,omitempty" yaml:"last_save_error,omitempty"`

	Channels    int `json:"channels" yaml:"channels"`
	Subscribers int `json:"subscribers" yaml:"subscribers"`
}

// SnapshotResponse is the body of POST /admin/v1/snapshots.
type SnapshotResponse struct {
	Backend string    `json:"backend" yaml:"backend"`
	Keys    int       `json:"keys" yaml:"keys"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
}

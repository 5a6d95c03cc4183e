package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// StatsCollector samples host statistics.
type StatsCollector interface {
	Collect(ctx context.Context) (monitoring.SystemStats, error)
}

// Pinger checks that the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler serves operational endpoints.
type SystemHandler struct {
	stats StatsCollector
	db    Pinger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(stats StatsCollector, db Pinger) *SystemHandler {
	return &SystemHandler{stats: stats, db: db}
}

// GetStats reports host uptime, CPU and memory usage.
func (h *SystemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// Health reports whether the service can reach its database.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// IndexRebuilder rebuilds the face index from the identity store.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, reader database.IdentityReader) error
	Count() int
}

// AdminHandler handles maintenance endpoints.
type AdminHandler struct {
	index IndexRebuilder
	store database.IdentityReader
	stats *StatsHandler
	log   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(index IndexRebuilder, store database.IdentityReader, stats *StatsHandler, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{index: index, store: store, stats: stats, log: log}
}

// RebuildIndexResponse reports the result of an index rebuild.
type RebuildIndexResponse struct {
	Success    bool  `json:"success"`
	Identities int   `json:"identities"`
	DurationMs int64 `json:"duration_ms"`
}

// RebuildIndex handles POST /api/v1/admin/index/rebuild.
func (h *AdminHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		respondError(w, http.StatusConflict, "face index is disabled")
		return
	}

	start := time.Now()
	if err := h.index.Rebuild(r.Context(), h.store); err != nil {
		h.log.Error().Err(err).Msg("failed to rebuild face index")
		respondError(w, http.StatusInternalServerError, "failed to rebuild face index")
		return
	}
	if h.stats != nil {
		h.stats.InvalidateCache()
	}

	resp := RebuildIndexResponse{
		Success:    true,
		Identities: h.index.Count(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	h.log.Info().Int("identities", resp.Identities).Int64("duration_ms", resp.DurationMs).Msg("face index rebuilt")
	respondJSON(w, http.StatusOK, resp)
}

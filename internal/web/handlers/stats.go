package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const statsCacheTTL = 10 * time.Second

// IdentityCounter counts enrolled identities.
type IdentityCounter interface {
	Count(ctx context.Context) (int, error)
}

// IndexSizer reports the number of embeddings in the face index.
type IndexSizer interface {
	Count() int
}

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	store     IdentityCounter
	index     IndexSizer // nil when the face index is disabled
	model     string
	dim       int
	threshold float64
	log       zerolog.Logger
	cache     statsCache
}

// StatsOptions describes the static part of the stats response.
type StatsOptions struct {
	Model     string
	Dim       int
	Threshold float64
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store IdentityCounter, index IndexSizer, opts StatsOptions, log zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		store:     store,
		index:     index,
		model:     opts.Model,
		dim:       opts.Dim,
		threshold: opts.Threshold,
		log:       log,
	}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	Identities int     `json:"identities"`
	IndexSize  *int    `json:"index_size,omitempty"`
	Model      string  `json:"model"`
	Dim        int     `json:"dim"`
	Threshold  float64 `json:"threshold"`
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	count, err := h.store.Count(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count identities")
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	stats := &StatsResponse{
		Identities: count,
		Model:      h.model,
		Dim:        h.dim,
		Threshold:  h.threshold,
	}
	if h.index != nil {
		size := h.index.Count()
		stats.IndexSize = &size
	}

	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

type countingStore struct {
	count int
	err   error
	calls int
}

func (s *countingStore) Count(ctx context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type fixedIndex int

func (i fixedIndex) Count() int { return int(i) }

var testStatsOptions = StatsOptions{Model: "buffalo_l", Dim: 512, Threshold: 1.1}

func TestStatsHandler_Get_Success(t *testing.T) {
	handler := NewStatsHandler(&countingStore{count: 3}, fixedIndex(3), testStatsOptions, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats.Identities != 3 {
		t.Errorf("expected identities=3, got %d", stats.Identities)
	}
	if stats.IndexSize == nil || *stats.IndexSize != 3 {
		t.Errorf("expected index_size=3, got %v", stats.IndexSize)
	}
	if stats.Model != "buffalo_l" || stats.Dim != 512 || stats.Threshold != 1.1 {
		t.Errorf("unexpected model info: %+v", stats)
	}
}

func TestStatsHandler_Get_NoIndex(t *testing.T) {
	handler := NewStatsHandler(&countingStore{count: 1}, nil, testStatsOptions, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats.IndexSize != nil {
		t.Errorf("expected no index_size, got %d", *stats.IndexSize)
	}
}

func TestStatsHandler_Get_StoreError(t *testing.T) {
	handler := NewStatsHandler(&countingStore{err: errors.New("db down")}, nil, testStatsOptions, zerolog.Nop())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestStatsHandler_Get_Caching(t *testing.T) {
	store := &countingStore{count: 2}
	handler := NewStatsHandler(store, nil, testStatsOptions, zerolog.Nop())

	for range 3 {
		recorder := httptest.NewRecorder()
		handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
		assertStatusCode(t, recorder, http.StatusOK)
	}
	if store.calls != 1 {
		t.Errorf("expected 1 store call with caching, got %d", store.calls)
	}

	handler.InvalidateCache()
	handler.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if store.calls != 2 {
		t.Errorf("expected a fresh store call after invalidation, got %d", store.calls)
	}
}

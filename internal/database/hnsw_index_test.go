package database

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// memoryReader is a minimal IdentityReader for index tests.
type memoryReader struct {
	identities []StoredIdentity
	err        error
}

func (r *memoryReader) FindByIdentifier(_ context.Context, identifier string) (*StoredIdentity, error) {
	for i := range r.identities {
		if r.identities[i].Identifier == identifier {
			return &r.identities[i], nil
		}
	}
	return nil, nil
}

func (r *memoryReader) Count(_ context.Context) (int, error) {
	return len(r.identities), r.err
}

func (r *memoryReader) GetAll(_ context.Context) ([]StoredIdentity, error) {
	return r.identities, r.err
}

func axisEmbedding(dim, axis int, value float32) []float32 {
	emb := make([]float32, dim)
	emb[axis] = value
	return emb
}

func sampleIdentities(dim int) []StoredIdentity {
	return []StoredIdentity{
		{Identifier: "alice", Embedding: axisEmbedding(dim, 0, 1)},
		{Identifier: "bob", Embedding: axisEmbedding(dim, 1, 1)},
		{Identifier: "carol", Embedding: axisEmbedding(dim, 2, 1)},
	}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EuclideanDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("EuclideanDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHNSWIndex_FindNearest(t *testing.T) {
	idx := NewHNSWIndex(8)
	if err := idx.BuildFromIdentities(sampleIdentities(8)); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	query := axisEmbedding(8, 1, 0.9)
	neighbors, err := idx.FindNearest(context.Background(), query, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].Identifier != "bob" {
		t.Errorf("expected bob nearest, got %s", neighbors[0].Identifier)
	}
	if math.Abs(neighbors[0].Distance-0.1) > 1e-6 {
		t.Errorf("expected distance 0.1, got %v", neighbors[0].Distance)
	}
	if neighbors[1].Distance < neighbors[0].Distance {
		t.Error("neighbors must be sorted by distance")
	}
}

func TestHNSWIndex_EmptyIndex(t *testing.T) {
	idx := NewHNSWIndex(4)

	neighbors, err := idx.FindNearest(context.Background(), make([]float32, 4), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("expected no neighbors, got %d", len(neighbors))
	}
}

func TestHNSWIndex_DimensionGuard(t *testing.T) {
	idx := NewHNSWIndex(4)

	if err := idx.Add("alice", make([]float32, 3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}
	if _, err := idx.FindNearest(context.Background(), make([]float32, 5), 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}

	bad := []StoredIdentity{{Identifier: "x", Embedding: make([]float32, 2)}}
	if err := idx.BuildFromIdentities(bad); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on build, got %v", err)
	}
}

func TestHNSWIndex_Add(t *testing.T) {
	idx := NewHNSWIndex(4)
	if err := idx.Add("alice", axisEmbedding(4, 0, 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := idx.Add("bob", axisEmbedding(4, 3, 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if idx.Count() != 2 {
		t.Errorf("expected count 2, got %d", idx.Count())
	}

	neighbors, err := idx.FindNearest(context.Background(), axisEmbedding(4, 3, 1), 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Identifier != "bob" || neighbors[0].Distance != 0 {
		t.Errorf("unexpected neighbors: %+v", neighbors)
	}
}

func TestOpenHNSWIndex_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "faces.hnsw")
	reader := &memoryReader{identities: sampleIdentities(8)}

	idx, loaded, err := OpenHNSWIndex(ctx, reader, 8, path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if loaded {
		t.Error("expected fresh build when no file exists")
	}
	if err := idx.SaveWithMetadata(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	metadata, err := LoadHNSWMetadata(path)
	if err != nil {
		t.Fatalf("load metadata failed: %v", err)
	}
	if metadata.IdentityCount != 3 || metadata.Dim != 8 {
		t.Errorf("unexpected metadata: %+v", metadata)
	}

	reopened, loaded, err := OpenHNSWIndex(ctx, reader, 8, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if !loaded {
		t.Error("expected index to be loaded from disk")
	}
	if reopened.Count() != 3 {
		t.Errorf("expected 3 identities, got %d", reopened.Count())
	}

	// A store with a different count invalidates the saved graph.
	reader.identities = append(reader.identities, StoredIdentity{
		Identifier: "dave", Embedding: axisEmbedding(8, 3, 1),
	})
	rebuilt, loaded, err := OpenHNSWIndex(ctx, reader, 8, path)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if loaded {
		t.Error("expected stale index to be rebuilt")
	}
	if rebuilt.Count() != 4 {
		t.Errorf("expected 4 identities, got %d", rebuilt.Count())
	}
}

func TestOpenHNSWIndex_StoreError(t *testing.T) {
	reader := &memoryReader{err: errors.New("connection refused")}

	if _, _, err := OpenHNSWIndex(context.Background(), reader, 8, ""); err == nil {
		t.Error("expected error when store fails")
	}
}

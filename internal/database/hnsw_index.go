package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	IdentityCount int       `json:"identity_count"`
	Dim           int       `json:"dim"`
	BuildTime     time.Time `json:"build_time"`
	Version       int       `json:"version"`
}

const hnswMetadataVersion = 1

// HNSWIndex is an in-memory approximate nearest neighbour index over enrolled
// embeddings, keyed by identifier and using euclidean distance.
type HNSWIndex struct {
	graph *hnsw.Graph[string]
	dim   int
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index for embeddings of length dim.
func NewHNSWIndex(dim int) *HNSWIndex {
	return &HNSWIndex{graph: newGraph(), dim: dim}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// BuildFromIdentities replaces the index content with the given identities.
// Identities whose embedding length differs from the index dimension are rejected.
func (h *HNSWIndex) BuildFromIdentities(identities []StoredIdentity) error {
	g := newGraph()
	for i := range identities {
		id := &identities[i]
		if err := CheckDimension(id.Embedding, h.dim); err != nil {
			return fmt.Errorf("identity %q: %w", id.Identifier, err)
		}
		g.Add(hnsw.MakeNode(id.Identifier, id.Embedding))
	}

	h.mu.Lock()
	h.graph = g
	h.mu.Unlock()
	return nil
}

// Rebuild reloads all identities from the store and rebuilds the graph.
func (h *HNSWIndex) Rebuild(ctx context.Context, reader IdentityReader) error {
	identities, err := reader.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}
	return h.BuildFromIdentities(identities)
}

// Add inserts or replaces a single embedding.
func (h *HNSWIndex) Add(identifier string, embedding []float32) error {
	if err := CheckDimension(embedding, h.dim); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph.Add(hnsw.MakeNode(identifier, embedding))
	return nil
}

// FindNearest returns up to limit identities closest to the embedding, nearest first.
// Distances are recomputed exactly, the graph only selects candidates.
func (h *HNSWIndex) FindNearest(ctx context.Context, embedding []float32, limit int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err := CheckDimension(embedding, h.dim); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph.Len() == 0 {
		return nil, nil
	}

	nodes := h.graph.Search(embedding, limit*HNSWSearchMultiplier)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		neighbors = append(neighbors, Neighbor{
			Identifier: n.Key,
			Distance:   EuclideanDistance(embedding, n.Value),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// Count returns the number of indexed identities.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph.Len()
}

// Dim returns the embedding dimension of the index.
func (h *HNSWIndex) Dim() int {
	return h.dim
}

// SaveWithMetadata persists the graph to path and a JSON metadata file to path+".meta".
func (h *HNSWIndex) SaveWithMetadata(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph.Len() == 0 {
		// Remove existing files if index is empty (best-effort cleanup).
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close HNSW index file: %w", err)
	}

	metadata := HNSWIndexMetadata{
		IdentityCount: h.graph.Len(),
		Dim:           h.dim,
		BuildTime:     time.Now().UTC(),
		Version:       hnswMetadataVersion,
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}

// Load replaces the graph with the one saved at path.
func (h *HNSWIndex) Load(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("HNSW index file not found: %s", path)
	}

	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	h.mu.Lock()
	h.graph = saved.Graph
	h.mu.Unlock()
	return nil
}

// OpenHNSWIndex returns an index for the identities in reader. When path is set
// and its metadata matches the store (same count and dimension) the saved graph
// is loaded, otherwise the index is built from the store. The returned bool
// reports whether the index came from disk.
func OpenHNSWIndex(ctx context.Context, reader IdentityReader, dim int, path string) (*HNSWIndex, bool, error) {
	idx := NewHNSWIndex(dim)

	if path != "" {
		count, err := reader.Count(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to count identities: %w", err)
		}
		metadata, err := LoadHNSWMetadata(path)
		if err == nil && metadata.IdentityCount == count && metadata.Dim == dim &&
			metadata.Version == hnswMetadataVersion {
			if err := idx.Load(path); err == nil && idx.Count() == count {
				return idx, true, nil
			}
		}
	}

	if err := idx.Rebuild(ctx, reader); err != nil {
		return nil, false, err
	}
	return idx, false, nil
}

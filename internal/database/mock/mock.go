// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// MockIdentityStore is an in-memory implementation of database.IdentityWriter
// and database.NearestFinder. Uniqueness is enforced under the store mutex.
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity
	order      []string

	// Dim, when non-zero, rejects embeddings of any other length
	Dim int

	// Error injection
	FindError        error
	CountError       error
	GetAllError      error
	CreateError      error
	FindNearestError error

	// CreateCalls counts Create invocations, including failed ones
	CreateCalls int
}

// NewMockIdentityStore creates a new empty mock store
func NewMockIdentityStore(dim int) *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.StoredIdentity),
		Dim:        dim,
	}
}

// AddIdentity adds an identity directly, bypassing uniqueness checks
func (m *MockIdentityStore) AddIdentity(identity database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.Identifier]; !ok {
		m.order = append(m.order, identity.Identifier)
	}
	m.identities[identity.Identifier] = &identity
}

// FindByIdentifier retrieves an identity, returns nil if not found
func (m *MockIdentityStore) FindByIdentifier(ctx context.Context, identifier string) (*database.StoredIdentity, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[identifier]
	if !ok {
		return nil, nil
	}
	found := *identity
	return &found, nil
}

// Count returns the total number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// GetAll returns all identities in insertion order
func (m *MockIdentityStore) GetAll(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredIdentity, 0, len(m.order))
	for _, identifier := range m.order {
		result = append(result, *m.identities[identifier])
	}
	return result, nil
}

// Create stores a new identity
func (m *MockIdentityStore) Create(ctx context.Context, identity *database.StoredIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++

	if m.CreateError != nil {
		return m.CreateError
	}
	if m.Dim > 0 {
		if err := database.CheckDimension(identity.Embedding, m.Dim); err != nil {
			return err
		}
	}
	if _, ok := m.identities[identity.Identifier]; ok {
		return database.ErrDuplicateIdentifier
	}

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	identity.Dim = len(identity.Embedding)

	stored := *identity
	m.identities[identity.Identifier] = &stored
	m.order = append(m.order, identity.Identifier)
	return nil
}

// FindNearest returns the closest identities by exhaustive search
func (m *MockIdentityStore) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.Neighbor, error) {
	if m.FindNearestError != nil {
		return nil, m.FindNearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]database.Neighbor, 0, len(m.identities))
	for _, identifier := range m.order {
		neighbors = append(neighbors, database.Neighbor{
			Identifier: identifier,
			Distance:   database.EuclideanDistance(embedding, m.identities[identifier].Embedding),
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

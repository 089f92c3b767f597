package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// FindByIdentifier retrieves an identity by identifier, returns nil if not found
	FindByIdentifier(ctx context.Context, identifier string) (*StoredIdentity, error)
	// Count returns the total number of identities stored
	Count(ctx context.Context) (int, error)
	// GetAll returns every stored identity ordered by creation time
	GetAll(ctx context.Context) ([]StoredIdentity, error)
}

// IdentityWriter provides write access to enrolled identities
type IdentityWriter interface {
	IdentityReader

	// Create stores a new identity. The store enforces identifier uniqueness
	// atomically and returns ErrDuplicateIdentifier on conflict, or
	// ErrDimensionMismatch when the embedding length differs from the store's.
	// ID and CreatedAt are filled in when empty.
	Create(ctx context.Context, identity *StoredIdentity) error
}

// NearestFinder finds the enrolled identities closest to an embedding
type NearestFinder interface {
	FindNearest(ctx context.Context, embedding []float32, limit int) ([]Neighbor, error)
}

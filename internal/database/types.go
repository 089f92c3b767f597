package database

import (
	"time"

	"github.com/google/uuid"
)

// StoredIdentity represents one enrolled identity stored in the database
type StoredIdentity struct {
	ID          uuid.UUID
	Identifier  string // unique, immutable after creation
	DisplayName string
	Credential  string // encoded by the credential policy (plain or bcrypt hash)
	Embedding   []float32
	Model       string
	Dim         int
	CreatedAt   time.Time
}

// Neighbor is an enrolled identity close to a query embedding
type Neighbor struct {
	Identifier string
	Distance   float64 // euclidean
}

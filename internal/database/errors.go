package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentifier is returned by Create when the identifier already exists
	ErrDuplicateIdentifier = errors.New("identifier already exists")

	// ErrDimensionMismatch is returned when an embedding length differs from the store's dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CheckDimension returns ErrDimensionMismatch when embedding is not exactly dim long.
func CheckDimension(embedding []float32, dim int) error {
	if len(embedding) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(embedding))
	}
	return nil
}

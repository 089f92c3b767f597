package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// PostgreSQL error codes
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

const identityColumns = `id, identifier, display_name, credential, embedding, model, dim, created_at`

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
	dim  int
}

// NewIdentityRepository creates a repository accepting embeddings of length dim.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// FindByIdentifier retrieves an identity by identifier, returns nil if not found.
func (r *IdentityRepository) FindByIdentifier(ctx context.Context, identifier string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE identifier = $1`, identifier)

	identity, err := scanIdentityRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// Count returns the total number of identities stored.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// GetAll retrieves all identities ordered by creation time.
func (r *IdentityRepository) GetAll(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// Create inserts a new identity. Uniqueness is enforced by the
// identities_identifier_key constraint.
func (r *IdentityRepository) Create(ctx context.Context, identity *database.StoredIdentity) error {
	if err := database.CheckDimension(identity.Embedding, r.dim); err != nil {
		return err
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	identity.Dim = len(identity.Embedding)

	query := `
		INSERT INTO identities (id, identifier, display_name, credential, embedding, model, dim)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Identifier,
		identity.DisplayName,
		identity.Credential,
		pgvector.NewVector(identity.Embedding),
		identity.Model,
		identity.Dim,
	).Scan(&createdAt)
	if err != nil {
		return classifyError(err)
	}

	identity.CreatedAt = createdAt
	return nil
}

// FindNearest returns up to limit identities ordered by L2 distance to embedding.
func (r *IdentityRepository) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.Neighbor, error) {
	if err := database.CheckDimension(embedding, r.dim); err != nil {
		return nil, err
	}

	query := `
		SELECT identifier, embedding <-> $1::vector AS distance
		FROM identities
		WHERE dim = $2
		ORDER BY distance
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), r.dim, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest identities: %w", err)
	}
	defer rows.Close()

	var neighbors []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		if err := rows.Scan(&n.Identifier, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return neighbors, nil
}

// classifyError maps constraint violations to database errors.
func classifyError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return database.ErrDuplicateIdentifier
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", database.ErrDimensionMismatch, pqErr.Message)
		}
	}
	return fmt.Errorf("insert identity: %w", err)
}

// scanIdentityRow scans a single row into a StoredIdentity.
func scanIdentityRow(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var vec pgvector.Vector

	err := scanner.Scan(
		&identity.ID,
		&identity.Identifier,
		&identity.DisplayName,
		&identity.Credential,
		&vec,
		&identity.Model,
		&identity.Dim,
		&identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return identity, err //nolint:wrapcheck
	}
	if err != nil {
		return identity, fmt.Errorf("scan identity: %w", err)
	}

	identity.Embedding = vec.Slice()
	return identity, nil
}

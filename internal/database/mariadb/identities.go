package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// MySQL error numbers
const erDupEntry = 1062

const identityColumns = `id, identifier, display_name, credential, embedding, model, dim, created_at`

// IdentityRepository provides MariaDB-backed identity storage.
// Embeddings are stored as little-endian float32 blobs.
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
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE identifier = ?`, identifier)

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
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// GetAll retrieves all identities ordered by creation time.
func (r *IdentityRepository) GetAll(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
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
// identities_identifier_key unique key.
func (r *IdentityRepository) Create(ctx context.Context, identity *database.StoredIdentity) error {
	if err := database.CheckDimension(identity.Embedding, r.dim); err != nil {
		return err
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	identity.Dim = len(identity.Embedding)

	query := `
		INSERT INTO identities (id, identifier, display_name, credential, embedding, model, dim, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		identity.ID.String(),
		identity.Identifier,
		identity.DisplayName,
		identity.Credential,
		encodeEmbedding(identity.Embedding),
		identity.Model,
		identity.Dim,
		identity.CreatedAt,
	)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// FindNearest scans all embeddings of the configured dimension and returns
// the closest ones. MariaDB has no vector operator, so this is linear in the
// number of identities.
func (r *IdentityRepository) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.Neighbor, error) {
	if err := database.CheckDimension(embedding, r.dim); err != nil {
		return nil, err
	}

	rows, err := r.pool.db.QueryContext(ctx, "SELECT identifier, embedding FROM identities WHERE dim = ?", r.dim)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var neighbors []database.Neighbor
	for rows.Next() {
		var identifier string
		var blob []byte
		if err := rows.Scan(&identifier, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		stored, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("identity %q: %w", identifier, err)
		}
		neighbors = append(neighbors, database.Neighbor{
			Identifier: identifier,
			Distance:   database.EuclideanDistance(embedding, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// classifyError maps a duplicate key error to ErrDuplicateIdentifier.
func classifyError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == erDupEntry {
		return database.ErrDuplicateIdentifier
	}
	return fmt.Errorf("insert identity: %w", err)
}

func scanIdentityRow(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var id string
	var blob []byte

	err := scanner.Scan(
		&id,
		&identity.Identifier,
		&identity.DisplayName,
		&identity.Credential,
		&blob,
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

	if identity.ID, err = uuid.Parse(id); err != nil {
		return identity, fmt.Errorf("parse identity id %q: %w", id, err)
	}
	if identity.Embedding, err = decodeEmbedding(blob); err != nil {
		return identity, fmt.Errorf("identity %q: %w", identity.Identifier, err)
	}
	return identity, nil
}

// encodeEmbedding packs the embedding as little-endian IEEE 754 float32 values.
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return embedding, nil
}

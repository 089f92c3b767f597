package faceid

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// RegisterRequest holds the registration input. Photo is the raw encoded image.
type RegisterRequest struct {
	Identifier  string
	DisplayName string
	Credential  string
	Photo       []byte
}

// Register enrolls a new identity. On any error nothing is written.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*database.StoredIdentity, error) {
	identity, err := s.register(ctx, req)
	s.metrics.RecordRegistration(Outcome(err))
	return identity, err
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*database.StoredIdentity, error) {
	identifier := normalizeText(req.Identifier)
	displayName := normalizeText(req.DisplayName)

	if err := requireFields(
		field{"identifier", identifier != ""},
		field{"display name", displayName != ""},
		field{"credential", notBlank(req.Credential)},
		field{"photo", len(req.Photo) > 0},
	); err != nil {
		return nil, err
	}

	embedding, err := s.extractor.Extract(ctx, req.Photo)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}

	existing, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, storageError("find identity", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, identifier)
	}

	if err := s.checkDuplicateFace(ctx, identifier, embedding); err != nil {
		return nil, err
	}

	credential, err := s.creds.Encode(req.Credential)
	if err != nil {
		return nil, err
	}

	identity := &database.StoredIdentity{
		Identifier:  identifier,
		DisplayName: displayName,
		Credential:  credential,
		Embedding:   embedding,
		Model:       s.model,
		Dim:         len(embedding),
	}

	if err := s.store.Create(ctx, identity); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateIdentifier):
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, identifier)
		case errors.Is(err, database.ErrDimensionMismatch):
			return nil, fmt.Errorf("store identity: %w", err)
		default:
			return nil, storageError("create identity", err)
		}
	}

	if adder, ok := s.index.(indexAdder); ok {
		if err := adder.Add(identity.Identifier, identity.Embedding); err != nil {
			s.log.Warn().Err(err).Str("identifier", identifier).Msg("failed to add identity to face index")
		}
	}

	s.log.Info().
		Str("identifier", identifier).
		Str("id", identity.ID.String()).
		Str("model", s.model).
		Msg("identity registered")

	return identity, nil
}

// checkDuplicateFace fails with ErrDuplicateFace when another identity's
// embedding is within the match threshold.
func (s *Service) checkDuplicateFace(ctx context.Context, identifier string, embedding Embedding) error {
	if !s.dupCheck || s.index == nil {
		return nil
	}

	neighbors, err := s.index.FindNearest(ctx, embedding, 2)
	if err != nil {
		return storageError("search face index", err)
	}

	for _, n := range neighbors {
		if n.Identifier == identifier || !s.matcher.IsMatch(n.Distance) {
			continue
		}
		s.log.Info().
			Str("identifier", identifier).
			Str("existing", n.Identifier).
			Float64("distance", n.Distance).
			Msg("registration rejected, face already enrolled")
		return fmt.Errorf("%w (distance %.4f)", ErrDuplicateFace, n.Distance)
	}
	return nil
}

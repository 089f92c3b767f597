package faceid

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// VerifyRequest holds the verification input. Photo is the raw encoded image.
type VerifyRequest struct {
	Identifier string
	Credential string
	Photo      []byte
}

// Result is the outcome of a completed verification. A rejected face is a
// Result with Accepted false, not an error.
type Result struct {
	Identifier string
	Accepted   bool
	Distance   float64
	Threshold  float64
}

// Verify checks a claimed identity against a fresh photo. Failures are
// reported in order: validation, face extraction, unknown identity,
// credential mismatch. Verification never writes to the store.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	result, err := s.verify(ctx, req)

	switch {
	case err != nil:
		s.metrics.RecordVerification(Outcome(err))
	case result.Accepted:
		s.metrics.RecordVerification("accepted")
	default:
		s.metrics.RecordVerification("rejected")
	}
	return result, err
}

func (s *Service) verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	identifier := normalizeText(req.Identifier)

	if err := requireFields(
		field{"identifier", identifier != ""},
		field{"credential", notBlank(req.Credential)},
		field{"photo", len(req.Photo) > 0},
	); err != nil {
		return nil, err
	}

	probe, err := s.extractor.Extract(ctx, req.Photo)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}

	stored, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, storageError("find identity", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, identifier)
	}

	if !s.creds.Matches(stored.Credential, req.Credential) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, identifier)
	}

	if err := database.CheckDimension(stored.Embedding, len(probe)); err != nil {
		return nil, fmt.Errorf("stored embedding of %s: %w", identifier, err)
	}

	distance, accepted := s.matcher.Compare(probe, stored.Embedding)
	s.metrics.ObserveDistance(distance)

	s.log.Info().
		Str("identifier", identifier).
		Bool("accepted", accepted).
		Float64("distance", distance).
		Float64("threshold", s.matcher.Threshold).
		Msg("verification completed")

	return &Result{
		Identifier: identifier,
		Accepted:   accepted,
		Distance:   distance,
		Threshold:  s.matcher.Threshold,
	}, nil
}

package faceid

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-verifier/internal/database"
)

var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidImage is returned when the photo cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoFaceDetected is returned when the photo contains no detectable face.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrMultipleFaces is returned when multi-face photos are rejected and the photo has several faces.
	ErrMultipleFaces = errors.New("multiple faces detected")
	// ErrDuplicateIdentity is returned when the identifier is already registered.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrDuplicateFace is returned when the face already belongs to another identity.
	ErrDuplicateFace = errors.New("face already registered to another identity")
	// ErrIdentityNotFound is returned when verifying an unknown identifier.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidCredential is returned when the credential does not match.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrStorage wraps identity store failures.
	ErrStorage = errors.New("storage error")
	// ErrExtractionTimeout is returned when embedding extraction exceeds its time budget.
	ErrExtractionTimeout = errors.New("face extraction timed out")
	// ErrExtractorBusy is returned when no extraction slot frees up in time.
	ErrExtractorBusy = errors.New("face extractor busy")
	// ErrDimensionMismatch is returned when an embedding has the wrong length.
	ErrDimensionMismatch = database.ErrDimensionMismatch
)

// Outcome returns a short label for err, used for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, ErrMultipleFaces):
		return "multiple_faces"
	case errors.Is(err, ErrDuplicateIdentity):
		return "duplicate_identity"
	case errors.Is(err, ErrDuplicateFace):
		return "duplicate_face"
	case errors.Is(err, ErrIdentityNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrExtractionTimeout):
		return "timeout"
	case errors.Is(err, ErrExtractorBusy):
		return "busy"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

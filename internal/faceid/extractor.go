package faceid

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-verifier/internal/database"
)

// ExtractorOptions configures a ModelExtractor.
type ExtractorOptions struct {
	Dim                 int  // required embedding length
	MaxImageSize        int  // long side limit before the detector, 0 = no resizing
	RejectMultipleFaces bool // fail with ErrMultipleFaces instead of using the best face
	JPEGOnly            bool // re-encode non-JPEG input, for detectors that only read JPEG
}

// ModelExtractor extracts one embedding per image with a FaceDetector.
// The detector is the shared model handle and is never modified.
type ModelExtractor struct {
	detector FaceDetector
	decoder  ImageDecoder
	opts     ExtractorOptions
}

// NewModelExtractor creates an extractor. A nil decoder selects StdDecoder.
func NewModelExtractor(detector FaceDetector, decoder ImageDecoder, opts ExtractorOptions) *ModelExtractor {
	if decoder == nil {
		decoder = StdDecoder{}
	}
	return &ModelExtractor{detector: detector, decoder: decoder, opts: opts}
}

// Extract detects faces in the image and returns the embedding of the face
// with the highest detection score. Ties keep the first detected face.
func (e *ModelExtractor) Extract(ctx context.Context, image []byte) (Embedding, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrValidation)
	}

	prepared, err := PrepareImage(e.decoder, image, e.opts.MaxImageSize, e.opts.JPEGOnly)
	if err != nil {
		return nil, err
	}

	faces, err := e.detector.DetectFaces(ctx, prepared)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr //nolint:wrapcheck
		}
		return nil, fmt.Errorf("face detection: %w", err)
	}

	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}
	if len(faces) > 1 && e.opts.RejectMultipleFaces {
		return nil, fmt.Errorf("%w: %d faces", ErrMultipleFaces, len(faces))
	}

	best := bestFace(faces)
	if e.opts.Dim > 0 {
		if err := database.CheckDimension(best.Embedding, e.opts.Dim); err != nil {
			return nil, fmt.Errorf("model %s: %w", e.detector.Model(), err)
		}
	}

	embedding := make(Embedding, len(best.Embedding))
	copy(embedding, best.Embedding)
	return embedding, nil
}

// Model returns the name of the underlying face model.
func (e *ModelExtractor) Model() string {
	return e.detector.Model()
}

func bestFace(faces []DetectedFace) DetectedFace {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}
	return best
}

// Package faceid implements face based identity registration and verification:
// embedding extraction, euclidean matching and the two pipelines built on them.
package faceid

import (
	"context"
)

// Embedding is a fixed-length face descriptor produced by the model.
type Embedding []float32

// DetectedFace is one face found by a FaceDetector.
type DetectedFace struct {
	Embedding []float32
	Score     float64   // detection confidence
	BBox      []float64 // [x1, y1, x2, y2], optional
}

// FaceDetector is the face model: it finds faces in an encoded image and
// computes their embeddings. Implementations must be safe for concurrent use.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
	Model() string
}

// Extractor turns an encoded image into exactly one embedding.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Embedding, error)
}

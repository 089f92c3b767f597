//go:build dlib

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

// DlibDetector runs the dlib ResNet face recognition model in process.
// It only accepts JPEG input.
type DlibDetector struct {
	rec   *face.Recognizer
	model string
	mu    sync.Mutex // dlib recognizer is not safe for concurrent use
}

// NewDlibDetector loads the dlib models from modelsDir.
func NewDlibDetector(modelsDir, model string) (*DlibDetector, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelsDir, err)
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &DlibDetector{rec: rec, model: model}, nil
}

// DetectFaces implements faceid.FaceDetector. dlib reports no detection
// score, the face area is used instead so the largest face wins.
func (d *DlibDetector) DetectFaces(ctx context.Context, imageData []byte) ([]faceid.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(imageData)
	d.mu.Unlock()
	if err != nil {
		var loadErr face.ImageLoadError
		if errors.As(err, &loadErr) {
			return nil, fmt.Errorf("%w: %w", faceid.ErrInvalidImage, err)
		}
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	detected := make([]faceid.DetectedFace, 0, len(faces))
	for _, f := range faces {
		r := f.Rectangle
		embedding := make([]float32, len(f.Descriptor))
		copy(embedding, f.Descriptor[:])
		detected = append(detected, faceid.DetectedFace{
			Embedding: embedding,
			Score:     float64(r.Dx() * r.Dy()),
			BBox:      []float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)},
		})
	}
	return detected, nil
}

// Model returns the model name recorded with embeddings.
func (d *DlibDetector) Model() string {
	return d.model
}

// Close frees the dlib recognizer.
func (d *DlibDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
}

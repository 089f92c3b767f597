//go:build !dlib

package embedding

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

// ErrDlibUnavailable is returned when the binary was built without the dlib tag.
var ErrDlibUnavailable = errors.New("dlib backend not compiled in, rebuild with -tags dlib")

// DlibDetector is unavailable in builds without the dlib tag.
type DlibDetector struct{}

// NewDlibDetector always fails in builds without the dlib tag.
func NewDlibDetector(modelsDir, model string) (*DlibDetector, error) {
	return nil, ErrDlibUnavailable
}

func (d *DlibDetector) DetectFaces(ctx context.Context, imageData []byte) ([]faceid.DetectedFace, error) {
	return nil, ErrDlibUnavailable
}

func (d *DlibDetector) Model() string { return "" }

func (d *DlibDetector) Close() {}

package faceid

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"
)

const testDim = 4

// makePNG encodes a w x h image filled with a single gray level.
func makePNG(t *testing.T, w, h int, level uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// makeColorPNG encodes an image with a horizontal gradient so resizing is visible.
func makeColorPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: 128, B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func vec(values ...float32) Embedding {
	return Embedding(values)
}

// fakeDetector returns faces registered for exact image bytes.
type fakeDetector struct {
	mu       sync.Mutex
	faces    map[string][]DetectedFace
	fallback []DetectedFace // returned for unknown images
	err      error
	received [][]byte
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{faces: make(map[string][]DetectedFace)}
}

func (d *fakeDetector) on(image []byte, faces ...DetectedFace) {
	d.faces[string(image)] = faces
}

func (d *fakeDetector) DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, image)
	if d.err != nil {
		return nil, d.err
	}
	if faces, ok := d.faces[string(image)]; ok {
		return faces, nil
	}
	return d.fallback, nil
}

func (d *fakeDetector) Model() string { return "fake" }

// fakeExtractor maps photo bytes to embeddings; unknown photos have no face.
type fakeExtractor struct {
	mu         sync.Mutex
	embeddings map[string]Embedding
	calls      int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{embeddings: make(map[string]Embedding)}
}

func (f *fakeExtractor) set(photo string, e Embedding) {
	f.embeddings[photo] = e
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte) (Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	e, ok := f.embeddings[string(image)]
	if !ok {
		return nil, ErrNoFaceDetected
	}
	return e, nil
}

// blockingExtractor blocks until released or the context ends.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingExtractor() *blockingExtractor {
	return &blockingExtractor{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingExtractor) Extract(ctx context.Context, image []byte) (Embedding, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return vec(1, 2, 3, 4), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitStarted(t *testing.T, b *blockingExtractor) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("extraction did not start")
	}
}

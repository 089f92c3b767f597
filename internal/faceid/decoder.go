package faceid

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// ImageDecoder turns encoded image bytes into pixels.
type ImageDecoder interface {
	DecodeConfig(data []byte) (image.Config, string, error)
	Decode(data []byte) (image.Image, string, error)
}

// StdDecoder decodes jpeg, png, gif, bmp, tiff and webp.
type StdDecoder struct{}

func (StdDecoder) DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode image header: %w", err)
	}
	return cfg, format, nil
}

func (StdDecoder) Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// PrepareImage validates data and returns the bytes to hand to the detector.
// Images fitting within maxSize are returned unchanged unless jpegOnly is set
// and they are not JPEG. Larger images are downscaled to fit maxSize on the
// long side and re-encoded as JPEG. A maxSize of zero disables resizing.
func PrepareImage(dec ImageDecoder, data []byte, maxSize int, jpegOnly bool) ([]byte, error) {
	cfg, format, err := dec.DecodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	fits := maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize)
	if fits && (!jpegOnly || format == "jpeg") {
		return data, nil
	}

	img, _, err := dec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if !fits {
		img = resizeToFit(img, maxSize)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToFit scales img so that its long side equals maxSize, keeping aspect ratio.
func resizeToFit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

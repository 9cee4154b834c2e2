// Package photo turns arbitrary uploaded image bytes into the canonical
// profile-photo form: JPEG, bounded dimensions, metadata stripped.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"net/http"

	"github.com/disintegration/imaging"
)

var (
	// ErrTooLarge rejects inputs over the byte budget, before any decode.
	ErrTooLarge = errors.New("image too large")
	// ErrUnsupportedFormat rejects bytes that are not JPEG, PNG, or GIF.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Constraints configure a normalization pass.
type Constraints struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Result is the canonical output plus the size accounting callers report
// back to the uploader. ReductionPercent is negative when the re-encode
// grew the payload; policy on that belongs to the caller.
type Result struct {
	Data             []byte
	Width            int
	Height           int
	OriginalSize     int
	OutputSize       int
	ReductionPercent float64
}

// Normalize decodes, constrains, and re-encodes an image.
//
// The pass is deterministic for fixed input and constraints: the size check
// happens before decode, EXIF orientation is applied and then dropped with
// the rest of the metadata by the re-encode, scaling only ever shrinks
// (aspect ratio preserved, Lanczos), and transparent sources are flattened
// onto white before the JPEG encode.
func Normalize(data []byte, c Constraints) (*Result, error) {
	if c.MaxBytes > 0 && int64(len(data)) > c.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), c.MaxBytes)
	}

	sniffed := http.DetectContentType(data)
	switch sniffed {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, sniffed)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > c.MaxWidth || bounds.Dy() > c.MaxHeight {
		img = imaging.Fit(img, c.MaxWidth, c.MaxHeight, imaging.Lanczos)
		bounds = img.Bounds()
	}

	// PNG and GIF may carry an alpha channel; JPEG cannot. Composite onto
	// white rather than letting the encoder drop alpha to black.
	if sniffed != "image/jpeg" {
		flat := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
		img = imaging.OverlayCenter(flat, img, 1.0)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := buf.Bytes()
	return &Result{
		Data:             out,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		OriginalSize:     len(data),
		OutputSize:       len(out),
		ReductionPercent: reduction(len(data), len(out)),
	}, nil
}

// reduction computes the size delta as a percentage of the original,
// rounded to one decimal place. May be zero or negative.
func reduction(original, output int) float64 {
	if original == 0 {
		return 0
	}
	pct := float64(original-output) / float64(original) * 100
	return math.Round(pct*10) / 10
}

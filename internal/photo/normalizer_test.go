package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"testing"
)

func testConstraints() Constraints {
	return Constraints{MaxBytes: 5 << 20, MaxWidth: 200, MaxHeight: 150, Quality: 85}
}

func fillRect(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fillRect(w, h, color.RGBA{R: 90, G: 120, B: 60, A: 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, fillRect(w, h, c)); err != nil {
		t.Fatalf("failed to encode png fixture: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, fillRect(w, h, color.RGBA{R: 200, G: 30, B: 30, A: 255}), nil); err != nil {
		t.Fatalf("failed to encode gif fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable JPEG: %v", err)
	}
	return img
}

func TestNormalizeKeepsInConstraintImages(t *testing.T) {
	input := jpegBytes(t, 100, 80)

	res, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if res.Width != 100 || res.Height != 80 {
		t.Errorf("dimensions = %dx%d, want 100x80 (no upscaling, no needless downscaling)", res.Width, res.Height)
	}
	if res.OriginalSize != len(input) {
		t.Errorf("OriginalSize = %d, want %d", res.OriginalSize, len(input))
	}
	if res.OutputSize != len(res.Data) {
		t.Errorf("OutputSize = %d, want %d", res.OutputSize, len(res.Data))
	}
	if ct := http.DetectContentType(res.Data); ct != "image/jpeg" {
		t.Errorf("output content type = %s, want image/jpeg", ct)
	}
}

func TestNormalizeScalesDownPreservingAspect(t *testing.T) {
	// 800x300 against 200x150: limiting factor is width, so 200x75.
	input := pngBytes(t, 800, 300, color.RGBA{R: 10, G: 10, B: 200, A: 255})

	res, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if res.Width != 200 || res.Height != 75 {
		t.Errorf("dimensions = %dx%d, want 200x75", res.Width, res.Height)
	}

	out := decodeJPEG(t, res.Data)
	if out.Bounds().Dx() != res.Width || out.Bounds().Dy() != res.Height {
		t.Errorf("encoded dimensions %v disagree with reported %dx%d", out.Bounds(), res.Width, res.Height)
	}
}

func TestNormalizeSupportsGIF(t *testing.T) {
	res, err := Normalize(gifBytes(t, 50, 50), testConstraints())
	if err != nil {
		t.Fatalf("Normalize(gif) error = %v", err)
	}
	if res.Width != 50 || res.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 50x50", res.Width, res.Height)
	}
}

func TestNormalizeFlattensTransparencyToWhite(t *testing.T) {
	input := pngBytes(t, 10, 10, color.RGBA{}) // fully transparent

	res, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	out := decodeJPEG(t, res.Data)
	r, g, b, _ := out.At(5, 5).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent area = rgb(%d,%d,%d), want near-white", r>>8, g>>8, b>>8)
	}
}

func TestNormalizeTooLarge(t *testing.T) {
	c := testConstraints()
	input := jpegBytes(t, 100, 100)
	c.MaxBytes = int64(len(input)) - 1

	_, err := Normalize(input, c)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Normalize() error = %v, want ErrTooLarge", err)
	}
}

func TestNormalizeUnsupportedFormat(t *testing.T) {
	for _, input := range [][]byte{
		[]byte("definitely not an image"),
		{0x25, 0x50, 0x44, 0x46, 0x2d, 0x31, 0x2e, 0x34}, // %PDF-1.4
	} {
		_, err := Normalize(input, testConstraints())
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Normalize(%q...) error = %v, want ErrUnsupportedFormat", input[:8], err)
		}
	}
}

func TestNormalizeReductionMayBeNegative(t *testing.T) {
	// A tiny PNG re-encoded as JPEG grows; the result must report that
	// honestly rather than clamping at zero.
	input := pngBytes(t, 2, 2, color.RGBA{R: 255, A: 255})

	res, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if res.OutputSize <= res.OriginalSize {
		t.Fatalf("OutputSize = %d, want > %d (JPEG headers alone outweigh a 2x2 PNG)", res.OutputSize, res.OriginalSize)
	}
	if res.ReductionPercent >= 0 {
		t.Errorf("ReductionPercent = %v, want negative", res.ReductionPercent)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	input := pngBytes(t, 320, 240, color.RGBA{R: 40, G: 90, B: 160, A: 255})

	first, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := Normalize(input, testConstraints())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if !bytes.Equal(first.Data, second.Data) {
		t.Error("two passes over the same input produced different bytes")
	}
}

func TestDecodeInput(t *testing.T) {
	payload := []byte("hello photo bytes")
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		input   string
		max     int64
		want    []byte
		wantErr error
	}{
		{"plain base64", encoded, 100, payload, nil},
		{"data url", "data:image/png;base64," + encoded, 100, payload, nil},
		{"surrounding whitespace", "  " + encoded + "\n", 100, payload, nil},
		{"empty", "", 100, nil, ErrBadEncoding},
		{"not base64", "!!!not-base64!!!", 100, nil, ErrBadEncoding},
		{"over budget", encoded, int64(len(payload)) - 1, nil, ErrTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInput(tc.input, tc.max)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("DecodeInput() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInput() error = %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("DecodeInput() = %q, want %q", got, tc.want)
			}
		})
	}
}

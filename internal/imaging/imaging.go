// Package imaging normalizes item photos before storage: format checking,
// downscaling and re-encoding, so a phone photo does not bloat the
// database.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// maxDimension is the longest allowed edge for stored photos.
const maxDimension = 800

// jpegQuality is the compression quality for re-encoded output.
const jpegQuality = 80

// maxUploadBytes bounds the raw upload size.
const maxUploadBytes = 10 << 20

// Normalize reads an uploaded photo, verifies it is a JPEG or PNG by
// sniffing the bytes, scales it down to fit maxDimension and re-encodes
// it as JPEG. Returns the encoded bytes and their MIME type.
func Normalize(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxUploadBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxUploadBytes)
	}

	// Sniff the real content type; client headers are not trusted.
	switch detected := http.DetectContentType(data); detected {
	case "image/jpeg", "image/png":
	default:
		return nil, "", fmt.Errorf("unsupported image format %s, need JPEG or PNG", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	img = fit(img, maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fit scales the image down so neither edge exceeds maxDim, preserving
// aspect ratio. Images already within bounds pass through untouched.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

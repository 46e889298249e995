package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"invoice-annotator/pkg/geometry"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoPreview is returned when a page carries no rendered preview.
var ErrNoPreview = errors.New("page has no preview image")

// DecodeImage decodes the page's base64 preview. A data URL prefix is
// tolerated.
func (p Page) DecodeImage() (image.Image, error) {
	payload := p.Preview
	if payload == "" {
		return nil, ErrNoPreview
	}
	if i := strings.Index(payload, "base64,"); i >= 0 {
		payload = payload[i+len("base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("page %d preview: %w", p.Index, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("page %d preview (%s): %w", p.Index, p.PreviewMIME, err)
	}
	return img, nil
}

// LoadImage decodes an image file (PNG, JPEG, GIF, TIFF, BMP or WebP).
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// IntrinsicSize returns the coordinate space the page's tokens live in: the
// backend-reported preview size when present, otherwise the bitmap's own
// size. img may be nil.
func (p Page) IntrinsicSize(img image.Image) geometry.Size {
	if p.ImageWidth > 0 && p.ImageHeight > 0 {
		return geometry.NewSize(p.ImageWidth, p.ImageHeight)
	}
	if img == nil {
		return geometry.Size{}
	}
	b := img.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

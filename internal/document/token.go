// Package document holds the extraction result a reviewer annotates: OCR
// tokens, structured field values, their positions, and the rendered pages.
package document

import "invoice-annotator/pkg/geometry"

// Token is one OCR-recognized text span. Coordinates are intrinsic pixels of
// the page image the extraction backend measured them on. A token is
// identified by its index in the page's token list.
type Token struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box returns the token's bounding box in intrinsic coordinates.
func (t Token) Box() geometry.Rect {
	return geometry.NewRect(t.X, t.Y, t.Width, t.Height)
}

// Hittable reports whether the token can be clicked. Tokens without text or
// with a zero-size box are never drawn or hit-tested.
func (t Token) Hittable() bool {
	return t.Text != "" && t.Width > 0 && t.Height > 0
}

// BBox is a bounding box as serialized by the extraction backend.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect converts the box to a geometry.Rect.
func (b BBox) Rect() geometry.Rect {
	return geometry.NewRect(b.X, b.Y, b.Width, b.Height)
}

// Package colorutil provides shared color utilities for the annotation overlays.
package colorutil

import (
	"image/color"
)

// Overlay colors used throughout the application.
var (
	Black      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Accent     = color.RGBA{R: 59, G: 130, B: 246, A: 255}  // selected tokens, armed field
	Neutral    = color.RGBA{R: 156, G: 163, B: 175, A: 140} // idle token outline
	FieldBox   = color.RGBA{R: 16, G: 185, B: 129, A: 255}  // structured field value
	ClickMark  = color.RGBA{R: 239, G: 68, B: 68, A: 255}   // click that matched nothing
	Background = color.RGBA{R: 64, G: 64, B: 64, A: 255}
)

// WithAlpha returns c with its alpha channel replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// Blend composites src over dst using src's alpha and returns an opaque color.
func Blend(dst, src color.RGBA) color.RGBA {
	if src.A == 255 {
		return src
	}
	if src.A == 0 {
		return color.RGBA{R: dst.R, G: dst.G, B: dst.B, A: 255}
	}
	a := float64(src.A) / 255.0
	inv := 1 - a
	return color.RGBA{
		R: uint8(float64(src.R)*a + float64(dst.R)*inv + 0.5),
		G: uint8(float64(src.G)*a + float64(dst.G)*inv + 0.5),
		B: uint8(float64(src.B)*a + float64(dst.B)*inv + 0.5),
		A: 255,
	}
}

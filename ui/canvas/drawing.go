package canvas

import (
	"image"
	"image/color"

	"invoice-annotator/pkg/colorutil"
)

// blendPixel composites c over the pixel at (x, y). Out-of-bounds pixels are
// skipped.
func blendPixel(output *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(output.Rect) {
		return
	}
	if c.A == 255 {
		output.SetRGBA(x, y, c)
		return
	}
	output.SetRGBA(x, y, colorutil.Blend(output.RGBAAt(x, y), c))
}

// fillRect blends c over every pixel of r.
func fillRect(output *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(output.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blendPixel(output, x, y, c)
		}
	}
}

// drawOutline draws a rectangle border of the given thickness inside r.
func drawOutline(output *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	if thickness*2 >= r.Dx() || thickness*2 >= r.Dy() {
		fillRect(output, r, c)
		return
	}
	fillRect(output, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), c)
	fillRect(output, image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), c)
	fillRect(output, image.Rect(r.Min.X, r.Min.Y+thickness, r.Min.X+thickness, r.Max.Y-thickness), c)
	fillRect(output, image.Rect(r.Max.X-thickness, r.Min.Y+thickness, r.Max.X, r.Max.Y-thickness), c)
}

// drawCrosshair draws lines through the center of r.
func drawCrosshair(output *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	cx := (r.Min.X + r.Max.X) / 2
	cy := (r.Min.Y + r.Max.Y) / 2
	half := thickness / 2
	fillRect(output, image.Rect(r.Min.X, cy-half, r.Max.X, cy-half+thickness), c)
	fillRect(output, image.Rect(cx-half, r.Min.Y, cx-half+thickness, r.Max.Y), c)
}

// drawOverlayRect draws one overlay rectangle with its fill and outline.
func drawOverlayRect(output *image.RGBA, o OverlayRect) {
	r := image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height)
	switch o.Fill {
	case FillTint:
		fillRect(output, r, o.FillColor)
		drawOutline(output, r, o.Color, o.Border)
	case FillTarget:
		drawCrosshair(output, r, o.FillColor, o.Border)
	default:
		drawOutline(output, r, o.Color, o.Border)
	}
}

package canvas

import (
	"image/color"
	"math"

	"invoice-annotator/internal/surface"
	"invoice-annotator/pkg/colorutil"
)

// FillPattern indicates how to fill a rectangle.
type FillPattern int

const (
	FillNone   FillPattern = iota // Just outline
	FillTint                      // Translucent fill under the outline
	FillTarget                    // Crosshairs through center (click marker)
)

// OverlayRect is a mark converted to raster pixels.
type OverlayRect struct {
	X, Y, Width, Height int
	Border              int
	Color               color.RGBA // outline
	Fill                FillPattern
	FillColor           color.RGBA
}

// markStyle returns the outline color and fill for a mark kind.
func markStyle(kind surface.MarkKind) (color.RGBA, FillPattern, color.RGBA) {
	switch kind {
	case surface.MarkTokenHover:
		return colorutil.Accent, FillTint, colorutil.WithAlpha(colorutil.Accent, 40)
	case surface.MarkTokenSelected:
		return colorutil.Accent, FillTint, colorutil.WithAlpha(colorutil.Accent, 70)
	case surface.MarkField:
		return colorutil.WithAlpha(colorutil.FieldBox, 200), FillNone, color.RGBA{}
	case surface.MarkFieldArmed:
		return colorutil.Accent, FillTint, colorutil.WithAlpha(colorutil.FieldBox, 50)
	case surface.MarkClick:
		return colorutil.ClickMark, FillTarget, colorutil.ClickMark
	default:
		return colorutil.Neutral, FillNone, color.RGBA{}
	}
}

// overlayRects converts marks from displayed units to raster pixels. sx and
// sy are raster pixels per displayed unit.
func overlayRects(marks []surface.Mark, sx, sy float64) []OverlayRect {
	rects := make([]OverlayRect, 0, len(marks))
	scale := math.Min(sx, sy)
	for _, m := range marks {
		outline, fill, fillColor := markStyle(m.Kind)
		border := int(math.Round(float64(m.Border) * scale))
		if border < 1 {
			border = 1
		}
		x1 := int(math.Round(m.Box.X * sx))
		y1 := int(math.Round(m.Box.Y * sy))
		x2 := int(math.Round((m.Box.X + m.Box.Width) * sx))
		y2 := int(math.Round((m.Box.Y + m.Box.Height) * sy))
		rects = append(rects, OverlayRect{
			X:         x1,
			Y:         y1,
			Width:     max(1, x2-x1),
			Height:    max(1, y2-y1),
			Border:    border,
			Color:     outline,
			Fill:      fill,
			FillColor: fillColor,
		})
	}
	return rects
}

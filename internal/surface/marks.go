package surface

import (
	"math"

	"invoice-annotator/internal/hittest"
	"invoice-annotator/pkg/geometry"
)

// MarkKind says how an overlay rectangle is drawn.
type MarkKind int

const (
	MarkToken         MarkKind = iota // Idle token outline
	MarkTokenHover                    // Token under the pointer
	MarkTokenSelected                 // Token in the selection
	MarkField                         // Structured field value box
	MarkFieldArmed                    // Box of the armed field
	MarkClick                         // Click that matched nothing
)

// clickMarkSize is the side of the square drawn for an unmatched click.
const clickMarkSize = 8.0

// Mark is one overlay rectangle in container coordinates.
type Mark struct {
	Kind   MarkKind
	Box    geometry.Rect
	Border int
	Index  int // token or field index; -1 for the click marker
}

// borderWidth scales a border with the zoom so outlines stay proportionate
// when zoomed out, never below one pixel.
func borderWidth(base float64, zoom int) int {
	return int(math.Max(1, math.Round(base*float64(zoom)/100)))
}

// Marks lists everything to draw over the page, bottom to top: field boxes,
// idle tokens, the hovered token, selected tokens, then the click marker.
// It returns nil while the viewport is unmeasured.
func (s *Surface) Marks() []Mark {
	if !s.vp.Ready() {
		return nil
	}
	zoom := s.vp.ZoomPercent()
	armed, _ := s.machine.Armed()

	var marks []Mark
	for i, t := range hittest.FieldTargets(s.fields, s.vp) {
		if !t.Valid {
			continue
		}
		kind := MarkField
		if s.fields[i].Key == armed {
			kind = MarkFieldArmed
		}
		marks = append(marks, Mark{Kind: kind, Box: t.Box, Border: 2, Index: i})
	}

	targets := hittest.TokenTargets(s.page.Tokens, s.vp)
	var hovered, selected []Mark
	for i, t := range targets {
		if !t.Valid {
			continue
		}
		switch {
		case s.machine.IsSelected(i):
			selected = append(selected, Mark{Kind: MarkTokenSelected, Box: t.Box, Border: borderWidth(2, zoom), Index: i})
		case i == s.hover:
			hovered = append(hovered, Mark{Kind: MarkTokenHover, Box: t.Box, Border: borderWidth(1, zoom), Index: i})
		default:
			marks = append(marks, Mark{Kind: MarkToken, Box: t.Box, Border: borderWidth(1, zoom), Index: i})
		}
	}
	marks = append(marks, hovered...)
	marks = append(marks, selected...)

	if s.marker != nil {
		half := clickMarkSize / 2
		marks = append(marks, Mark{
			Kind:   MarkClick,
			Box:    geometry.NewRect(s.marker.X-half, s.marker.Y-half, clickMarkSize, clickMarkSize),
			Border: 1,
			Index:  -1,
		})
	}
	return marks
}

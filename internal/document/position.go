package document

import (
	"math"

	"invoice-annotator/pkg/geometry"
)

// VirtualLines is the number of evenly spaced lines a page is divided into
// when deriving a line number from a vertical position.
const VirtualLines = 50

// Position records where on the page a value was sourced from. It is only
// meaningful against the intrinsic dimensions stored with it; consumers that
// scale it must use ImageWidth/ImageHeight, never the displayed size.
type Position struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	CharPercent float64 `json:"char_percent"`
	LinePercent float64 `json:"line_percent"`
	LineNumber  int     `json:"line_number"`
	CharOffset  int     `json:"char_offset"`
	TotalLines  int     `json:"total_lines"`
	LineLength  int     `json:"line_length"`
	BBox        *BBox   `json:"bbox,omitempty"`
	ImageWidth  float64 `json:"image_width"`
	ImageHeight float64 `json:"image_height"`
}

// TokenPosition derives the Position of a token on a page with the given
// intrinsic size. It returns nil when the size is unknown.
func TokenPosition(t Token, intrinsic geometry.Size) *Position {
	if intrinsic.IsEmpty() {
		return nil
	}
	return &Position{
		X:           t.X,
		Y:           t.Y,
		CharPercent: t.X / intrinsic.Width * 100,
		LinePercent: t.Y / intrinsic.Height * 100,
		LineNumber:  int(math.Floor(t.Y / intrinsic.Height * VirtualLines)),
		CharOffset:  int(math.Floor(t.X)),
		TotalLines:  VirtualLines,
		LineLength:  int(math.Floor(intrinsic.Width)),
		BBox:        &BBox{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height},
		ImageWidth:  intrinsic.Width,
		ImageHeight: intrinsic.Height,
	}
}

// FieldBoxPosition derives the Position of a structured field value box.
// Percentages reported by the backend win over ones computed from the box.
// It returns nil when the field has no position or the size is unknown.
func FieldBoxPosition(fp *FieldPosition, intrinsic geometry.Size) *Position {
	if fp == nil || intrinsic.IsEmpty() {
		return nil
	}

	var x, y float64
	if fp.BBox != nil {
		x, y = fp.BBox.X, fp.BBox.Y
	} else {
		x = fp.CharPercent / 100 * intrinsic.Width
		y = fp.LinePercent / 100 * intrinsic.Height
	}

	pos := &Position{
		X:           x,
		Y:           y,
		CharPercent: fp.CharPercent,
		LinePercent: fp.LinePercent,
		LineNumber:  fp.LineNumber,
		CharOffset:  int(math.Floor(x)),
		TotalLines:  fp.TotalLines,
		LineLength:  int(math.Floor(intrinsic.Width)),
		ImageWidth:  intrinsic.Width,
		ImageHeight: intrinsic.Height,
	}
	if pos.CharPercent == 0 {
		pos.CharPercent = x / intrinsic.Width * 100
	}
	if pos.LinePercent == 0 {
		pos.LinePercent = y / intrinsic.Height * 100
	}
	if pos.TotalLines == 0 {
		pos.TotalLines = VirtualLines
	}
	if fp.BBox != nil {
		b := *fp.BBox
		pos.BBox = &b
	}
	return pos
}

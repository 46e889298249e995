package viewport

import (
	"math"

	"invoice-annotator/pkg/geometry"
)

// BoxMargin is added on every side of a displayed token box. OCR boxes sit
// tight around the glyphs; the margin is presentation only and never feeds
// back into token coordinates.
const BoxMargin = 1.0

// Intrinsic is a pointer position expressed in intrinsic pixels and as a
// percentage of the intrinsic image size.
type Intrinsic struct {
	Point   geometry.Point2D
	Percent geometry.Point2D
}

// DisplayTransform returns the transform from intrinsic pixels to container
// pixels. ok is false while the image is not measured.
func DisplayTransform(s State) (t geometry.AffineTransform, ok bool) {
	if !s.Ready() {
		return geometry.AffineTransform{}, false
	}
	d := s.Displayed()
	scale := geometry.Scale(d.Width/s.Intrinsic.Width, d.Height/s.Intrinsic.Height)
	return geometry.Translation(s.Offset.X, s.Offset.Y).Compose(scale), true
}

// ToDisplayBox converts an intrinsic box to the rectangle drawn for it in
// container coordinates, expanded by BoxMargin. ok is false while the image
// is not measured.
func ToDisplayBox(box geometry.Rect, s State) (r geometry.Rect, ok bool) {
	t, ok := DisplayTransform(s)
	if !ok {
		return geometry.Rect{}, false
	}
	scaled := t.ApplyRect(box)
	return geometry.Rect{
		X:      scaled.X - BoxMargin,
		Y:      scaled.Y - BoxMargin,
		Width:  math.Max(1, scaled.Width+2*BoxMargin),
		Height: math.Max(1, scaled.Height+2*BoxMargin),
	}, true
}

// ToIntrinsic converts a pointer position relative to the displayed image's
// top-left corner into intrinsic pixels and percentages. The scale uses the
// displayed (post-zoom) size, the same frame ToDisplayBox uses.
func ToIntrinsic(p geometry.Point2D, s State) (Intrinsic, bool) {
	if !s.Ready() {
		return Intrinsic{}, false
	}
	d := s.Displayed()
	pt := geometry.NewPoint2D(
		p.X*s.Intrinsic.Width/d.Width,
		p.Y*s.Intrinsic.Height/d.Height,
	)
	return Intrinsic{
		Point: pt,
		Percent: geometry.NewPoint2D(
			pt.X/s.Intrinsic.Width*100,
			pt.Y/s.Intrinsic.Height*100,
		),
	}, true
}

// ContainerPoint converts a point relative to the visible part of the
// container into container content coordinates.
func ContainerPoint(view geometry.Point2D, s State) geometry.Point2D {
	return view.Add(s.Scroll)
}

// ImagePoint converts a container point to a point relative to the
// displayed image's top-left corner.
func ImagePoint(container geometry.Point2D, s State) geometry.Point2D {
	return container.Sub(s.Offset)
}

// ContainerToIntrinsic maps a container point straight to intrinsic space.
func ContainerToIntrinsic(container geometry.Point2D, s State) (Intrinsic, bool) {
	return ToIntrinsic(ImagePoint(container, s), s)
}

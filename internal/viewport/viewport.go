// Package viewport converts between the document's intrinsic (OCR) pixel
// space, the zoomed image as displayed, and the scrollable container that
// holds it.
//
// All conversions use one frame: the displayed size is the post-zoom size
// (Layout scaled by Zoom). Boxes are scaled intrinsic→displayed with it and
// pointers are scaled displayed→intrinsic with it, so a click on the centre
// of a drawn box maps back into that box at every zoom level.
package viewport

import (
	"math"

	"invoice-annotator/pkg/geometry"
)

// Zoom limits in percent.
const (
	MinZoom     = 50
	MaxZoom     = 200
	DefaultZoom = 100
	ZoomStep    = 25
)

// State holds the rendering parameters needed for coordinate conversion.
// It is recomputed on image load, zoom change and container resize and is
// never persisted.
type State struct {
	// Intrinsic is the coordinate space of the token boxes.
	Intrinsic geometry.Size
	// Layout is the image element's size before the zoom transform.
	Layout geometry.Size
	// Offset is the image's top-left corner within the container content.
	Offset geometry.Point2D
	// Scroll is the container's scroll offset.
	Scroll geometry.Point2D
	// Zoom is in percent. Zero means DefaultZoom.
	Zoom int
}

// ClampZoom limits a zoom percentage to [MinZoom, MaxZoom].
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// ZoomIn returns the next zoom step up.
func ZoomIn(zoom int) int {
	return ClampZoom(zoom + ZoomStep)
}

// ZoomOut returns the next zoom step down.
func ZoomOut(zoom int) int {
	return ClampZoom(zoom - ZoomStep)
}

// ZoomPercent returns the effective, clamped zoom.
func (s State) ZoomPercent() int {
	if s.Zoom == 0 {
		return DefaultZoom
	}
	return ClampZoom(s.Zoom)
}

// ZoomFactor returns the zoom as a scale factor (1.0 at 100%).
func (s State) ZoomFactor() float64 {
	return float64(s.ZoomPercent()) / 100
}

// Displayed returns the image size as drawn, after the zoom transform.
func (s State) Displayed() geometry.Size {
	return s.Layout.Scale(s.ZoomFactor())
}

// Ready reports whether both the intrinsic and displayed sizes are known.
// Until then no geometry is available and the surface is not interactive.
func (s State) Ready() bool {
	return !s.Intrinsic.IsEmpty() && !s.Displayed().IsEmpty()
}

// WithZoom returns a copy of s at another zoom level.
func (s State) WithZoom(zoom int) State {
	s.Zoom = ClampZoom(zoom)
	return s
}

// FitLayout returns the pre-zoom layout size of an image with the given
// natural size inside a container of the given width: natural size, shrunk
// proportionally when wider than the container. A non-positive available
// width leaves the natural size unchanged.
func FitLayout(natural geometry.Size, availableWidth float64) geometry.Size {
	if natural.IsEmpty() {
		return geometry.Size{}
	}
	if availableWidth <= 0 || natural.Width <= availableWidth {
		return natural
	}
	ratio := availableWidth / natural.Width
	return geometry.NewSize(availableWidth, math.Round(natural.Height*ratio))
}

// AnchorScroll returns the scroll offset that keeps the content under the
// anchor point (relative to the visible area) fixed when s is re-zoomed to
// newZoom. The result is never negative.
func AnchorScroll(s State, newZoom int, anchor geometry.Point2D) geometry.Point2D {
	oldFactor := s.ZoomFactor()
	newFactor := float64(ClampZoom(newZoom)) / 100

	onImage := ContainerPoint(anchor, s).Sub(s.Offset)
	rescaled := onImage.Scale(newFactor / oldFactor)
	scroll := s.Offset.Add(rescaled).Sub(anchor)

	return geometry.NewPoint2D(math.Max(0, scroll.X), math.Max(0, scroll.Y))
}

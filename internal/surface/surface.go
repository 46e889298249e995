// Package surface is the annotation surface behind the document canvas. It
// owns the viewport and the selection machine for one view, routes clicks
// through the hit tester into the machine, and describes what to draw.
// It has no toolkit dependency; ui/canvas adapts it to fyne.
package surface

import (
	"invoice-annotator/internal/document"
	"invoice-annotator/internal/hittest"
	"invoice-annotator/internal/selection"
	"invoice-annotator/internal/viewport"
	"invoice-annotator/pkg/geometry"
)

// Target says what a click landed on.
type Target int

const (
	TargetNone  Target = iota // Nothing; a marker is shown
	TargetToken               // A raw OCR token, toggled in the selection
	TargetField               // A structured field value box
)

func (t Target) String() string {
	switch t {
	case TargetToken:
		return "token"
	case TargetField:
		return "field"
	default:
		return "none"
	}
}

// ClickResult describes how a click was handled.
type ClickResult struct {
	Target    Target
	Hit       hittest.Result
	Field     string // set for TargetField
	Intrinsic viewport.Intrinsic
	Ready     bool // false while the viewport is unmeasured; nothing happened
}

// Surface is not safe for concurrent use. The document canvas drives it
// from its event loop.
type Surface struct {
	machine *selection.Machine
	opts    hittest.Options

	vp     viewport.State
	page   document.Page
	fields []document.FieldBox

	hover  int
	marker *geometry.Point2D
}

// New creates a surface driving the given machine.
func New(machine *selection.Machine, opts hittest.Options) *Surface {
	return &Surface{
		machine: machine,
		opts:    opts,
		vp:      viewport.State{Zoom: viewport.DefaultZoom},
		hover:   -1,
	}
}

// Machine returns the selection machine.
func (s *Surface) Machine() *selection.Machine {
	return s.machine
}

// SetPage shows a page. intrinsic is the coordinate space of its tokens and
// field boxes. The selection is cleared because token indices are per page.
func (s *Surface) SetPage(page document.Page, fields []document.FieldBox, intrinsic geometry.Size) {
	s.page = page
	s.fields = fields
	s.vp.Intrinsic = intrinsic
	s.hover = -1
	s.marker = nil
	s.machine.SetPage(page.Tokens, intrinsic)
}

// Page returns the page being shown.
func (s *Surface) Page() document.Page {
	return s.page
}

// Fields returns the structured field boxes on the page.
func (s *Surface) Fields() []document.FieldBox {
	return s.fields
}

// SetLayout records the image's pre-zoom size and its offset in the container.
func (s *Surface) SetLayout(layout geometry.Size, offset geometry.Point2D) {
	s.vp.Layout = layout
	s.vp.Offset = offset
}

// SetScroll records the container's scroll offset.
func (s *Surface) SetScroll(scroll geometry.Point2D) {
	s.vp.Scroll = scroll
}

// SetZoom sets the zoom percentage and returns the clamped value applied.
func (s *Surface) SetZoom(zoom int) int {
	s.vp = s.vp.WithZoom(zoom)
	return s.vp.Zoom
}

// Viewport returns the current viewport state.
func (s *Surface) Viewport() viewport.State {
	return s.vp
}

// Click handles a click at a container point.
//
// With a field armed, tokens are tested first and a hit toggles the token.
// Otherwise, or when no token matched, structured field boxes are tested and
// a hit arms that field with the box's position. A click that matches
// nothing only leaves a marker.
func (s *Surface) Click(p geometry.Point2D) ClickResult {
	if !s.vp.Ready() {
		return ClickResult{Hit: hittest.Miss}
	}
	in, _ := viewport.ContainerToIntrinsic(p, s.vp)
	res := ClickResult{Hit: hittest.Miss, Intrinsic: in, Ready: true}

	if _, armed := s.machine.Armed(); armed {
		if hit := hittest.Tokens(p, s.page.Tokens, s.vp, s.opts); hit.Found() {
			s.marker = nil
			s.machine.Dispatch(selection.TokenClick{Index: hit.Index})
			res.Target = TargetToken
			res.Hit = hit
			return res
		}
	}

	if hit := hittest.Fields(p, s.fields, s.vp, s.opts); hit.Found() {
		f := s.fields[hit.Index]
		s.marker = nil
		s.machine.Dispatch(selection.StructuredBoxClick{
			Key:      f.Key,
			Position: document.FieldBoxPosition(f.Position, s.vp.Intrinsic),
		})
		res.Target = TargetField
		res.Field = f.Key
		res.Hit = hit
		return res
	}

	marker := p
	s.marker = &marker
	return res
}

// Hover updates the token under the pointer and reports whether it changed.
// Only exact box hits count; hover has no tolerance.
func (s *Surface) Hover(p geometry.Point2D) bool {
	idx := -1
	if s.vp.Ready() {
		hit := hittest.Resolve(p, hittest.TokenTargets(s.page.Tokens, s.vp), hittest.Options{}, s.vp.ZoomPercent())
		if hit.Found() {
			idx = hit.Index
		}
	}
	changed := idx != s.hover
	s.hover = idx
	return changed
}

// ClearHover forgets the hovered token and reports whether one was set.
func (s *Surface) ClearHover() bool {
	changed := s.hover != -1
	s.hover = -1
	return changed
}

// Hovered returns the hovered token index, or -1.
func (s *Surface) Hovered() int {
	return s.hover
}

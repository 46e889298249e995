// Package hittest decides which box, if any, a click on the document refers to.
//
// Resolution is two-staged. A click inside a box (grown by Padding) selects
// the first such box in list order; overlapping boxes are not re-ranked by
// area or distance, so a click on a shared edge deterministically resolves
// to the earlier token. Failing that, the box whose centre is nearest
// wins if it lies within Radius. Radius is given in unzoomed pixels and is
// scaled by the zoom factor because comparisons happen in displayed pixels.
package hittest

import (
	"math"

	"invoice-annotator/internal/document"
	"invoice-annotator/internal/viewport"
	"invoice-annotator/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DefaultPadding is the tolerance around a box that still counts as inside.
	DefaultPadding = 5.0
	// DefaultRadius is the nearest-centre fallback distance at 100% zoom.
	DefaultRadius = 50.0
)

// Options tunes hit resolution.
type Options struct {
	Padding float64
	Radius  float64
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{Padding: DefaultPadding, Radius: DefaultRadius}
}

// Kind says how a click was matched.
type Kind int

const (
	KindNone    Kind = iota // Nothing matched; the click is only a visual marker
	KindInside              // Click fell within a (padded) box
	KindNearest             // Click was within Radius of a box centre
)

func (k Kind) String() string {
	switch k {
	case KindInside:
		return "inside"
	case KindNearest:
		return "nearest"
	default:
		return "none"
	}
}

// Result is the outcome of a hit test. Index is -1 when nothing matched.
type Result struct {
	Index    int
	Kind     Kind
	Distance float64 // distance to the box centre, for KindNearest
}

// Miss is the result for a click that matched nothing.
var Miss = Result{Index: -1, Kind: KindNone}

// Found reports whether the click matched a box.
func (r Result) Found() bool {
	return r.Kind != KindNone && r.Index >= 0
}

// Target is one candidate box in container coordinates. Invalid targets keep
// their slot so indices stay aligned with the caller's list.
type Target struct {
	Box   geometry.Rect
	Valid bool
}

// Resolve finds the target a click at p refers to. zoom is in percent.
func Resolve(p geometry.Point2D, targets []Target, opts Options, zoom int) Result {
	for i, t := range targets {
		if !t.Valid {
			continue
		}
		if t.Box.Inflate(opts.Padding).Contains(p) {
			return Result{Index: i, Kind: KindInside}
		}
	}

	radius := opts.Radius * float64(zoom) / 100
	best := Miss
	minDist := math.Inf(1)
	click := r2.Vec{X: p.X, Y: p.Y}

	for i, t := range targets {
		if !t.Valid {
			continue
		}
		c := t.Box.Center()
		d := r2.Norm(r2.Sub(click, r2.Vec{X: c.X, Y: c.Y}))
		if d < radius && d < minDist {
			minDist = d
			best = Result{Index: i, Kind: KindNearest, Distance: d}
		}
	}
	return best
}

// TokenTargets maps tokens to their displayed boxes. Tokens without text or
// with an empty box, and every token while the viewport is unmeasured, are
// marked invalid.
func TokenTargets(tokens []document.Token, s viewport.State) []Target {
	targets := make([]Target, len(tokens))
	for i, tok := range tokens {
		if !tok.Hittable() {
			continue
		}
		box, ok := viewport.ToDisplayBox(tok.Box(), s)
		targets[i] = Target{Box: box, Valid: ok}
	}
	return targets
}

// FieldTargets maps structured field boxes to their displayed boxes.
func FieldTargets(fields []document.FieldBox, s viewport.State) []Target {
	targets := make([]Target, len(fields))
	for i, f := range fields {
		if f.Position == nil || f.Position.BBox == nil {
			continue
		}
		r := f.Position.BBox.Rect()
		if r.IsEmpty() {
			continue
		}
		box, ok := viewport.ToDisplayBox(r, s)
		targets[i] = Target{Box: box, Valid: ok}
	}
	return targets
}

// Tokens resolves a click at container point p against a page's tokens.
func Tokens(p geometry.Point2D, tokens []document.Token, s viewport.State, opts Options) Result {
	return Resolve(p, TokenTargets(tokens, s), opts, s.ZoomPercent())
}

// Fields resolves a click at container point p against structured field boxes.
func Fields(p geometry.Point2D, fields []document.FieldBox, s viewport.State, opts Options) Result {
	return Resolve(p, FieldTargets(fields, s), opts, s.ZoomPercent())
}

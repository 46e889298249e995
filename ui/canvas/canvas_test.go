package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-annotator/internal/document"
	"invoice-annotator/internal/hittest"
	"invoice-annotator/internal/selection"
	"invoice-annotator/internal/surface"
	"invoice-annotator/pkg/colorutil"
)

// The preview bitmap is half the intrinsic size, as when the backend
// renders a downscaled preview of an 800x1000 scan.
var testPage = document.Page{
	ImageWidth:  800,
	ImageHeight: 1000,
	Tokens: []document.Token{
		{Text: "ACME", X: 100, Y: 50, Width: 80, Height: 20},
		{Text: "Corp", X: 200, Y: 50, Width: 60, Height: 20},
	},
}

var testFields = []document.FieldBox{
	{Key: "totalAmount", Value: "99.00", Position: &document.FieldPosition{
		BBox: &document.BBox{X: 400, Y: 600, Width: 100, Height: 20},
	}},
}

type canvasHarness struct {
	dc     *DocumentCanvas
	values []selection.ValueSelection
	counts []int
}

func whitePage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 400, 500))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func newCanvasHarness(t *testing.T, settle time.Duration) *canvasHarness {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	h := &canvasHarness{}
	m := selection.NewMachine(selection.Callbacks{
		OnValueSelect:     func(v selection.ValueSelection) { h.values = append(h.values, v) },
		OnSelectionChange: func(n int) { h.counts = append(h.counts, n) },
	})
	h.dc = NewDocumentCanvas(surface.New(m, hittest.DefaultOptions()), nil, settle, nil)
	t.Cleanup(h.dc.Dispose)
	h.dc.SetPage(testPage, testFields, whitePage())
	return h
}

func (h *canvasHarness) tap(x, y float32) {
	h.dc.content.Tapped(&fyne.PointEvent{Position: fyne.NewPos(x, y)})
}

// onLoop runs fn on the canvas loop and waits for it, for reading state
// while another goroutine may be draining the loop.
func (h *canvasHarness) onLoop(fn func()) {
	done := make(chan struct{})
	h.dc.loop.Post(func() {
		fn()
		close(done)
	})
	<-done
}

func TestCanvasInertUntilSettled(t *testing.T) {
	h := newCanvasHarness(t, time.Hour)
	h.dc.Arm("vendorName")

	var clicks int
	h.dc.OnClick(func(surface.ClickResult) { clicks++ })
	h.tap(70, 30)

	assert.Zero(t, clicks)
	assert.Empty(t, h.values)
	assert.Equal(t, placeholderSize, h.dc.imgSize)
}

func TestCanvasMeasuresNaturalSize(t *testing.T) {
	h := newCanvasHarness(t, 0)

	vp := h.dc.Surface().Viewport()
	assert.Equal(t, 400.0, vp.Layout.Width)
	assert.Equal(t, 500.0, vp.Layout.Height)
	assert.Equal(t, fyne.NewSize(400, 500), h.dc.imgSize)
}

func TestCanvasTokenClicksAssignArmedField(t *testing.T) {
	h := newCanvasHarness(t, 0)
	h.dc.Arm("vendorName")

	var last surface.ClickResult
	h.dc.OnClick(func(res surface.ClickResult) { last = res })

	// Token 0 is drawn at (49,24) 42x12 on the half-size preview.
	h.tap(70, 30)
	require.Len(t, h.values, 1)
	assert.Equal(t, surface.TargetToken, last.Target)
	assert.Equal(t, "ACME", h.values[0].Text)
	assert.Equal(t, "vendorName", h.values[0].Field)
	require.NotNil(t, h.values[0].Position)
	assert.Equal(t, 100.0, h.values[0].Position.X)
	assert.Equal(t, 800.0, h.values[0].Position.ImageWidth)

	h.tap(115, 30)
	require.Len(t, h.values, 2)
	assert.Equal(t, "ACME Corp", h.values[1].Text)
	assert.Equal(t, []int{0, 1, 2}, h.counts)
}

func TestCanvasFieldBoxClick(t *testing.T) {
	h := newCanvasHarness(t, 0)

	h.tap(220, 305)

	require.Len(t, h.values, 1)
	assert.Equal(t, selection.ValueStructuredBox, h.values[0].Kind)
	assert.Equal(t, "totalAmount", h.values[0].Field)
	armed, ok := h.dc.Surface().Machine().Armed()
	assert.True(t, ok)
	assert.Equal(t, "totalAmount", armed)
}

func TestCanvasArmIsIdempotent(t *testing.T) {
	h := newCanvasHarness(t, 0)

	h.dc.Arm("iban")
	h.dc.Arm("iban")
	assert.Equal(t, []int{0}, h.counts)

	h.dc.Disarm()
	h.dc.Disarm()
	assert.Equal(t, []int{0, 0}, h.counts)
}

func TestCanvasZoom(t *testing.T) {
	h := newCanvasHarness(t, 0)
	var zooms []int
	h.dc.OnZoomChange(func(z int) { zooms = append(zooms, z) })

	h.dc.ZoomIn()
	assert.Equal(t, 125, h.dc.Zoom())
	assert.Equal(t, fyne.NewSize(500, 625), h.dc.imgSize)

	for i := 0; i < 10; i++ {
		h.dc.ZoomIn()
	}
	assert.Equal(t, 200, h.dc.Zoom())

	h.dc.SetZoom(10)
	assert.Equal(t, 50, h.dc.Zoom())
	assert.Equal(t, []int{125, 150, 175, 200, 50}, zooms)
}

func TestCanvasZoomedClickStillHitsToken(t *testing.T) {
	h := newCanvasHarness(t, 0)
	h.dc.Arm("vendorName")
	h.dc.SetZoom(50)

	// At 50% token 0 is drawn at 25,12.5 20x5 plus margin.
	h.tap(35, 15)

	require.Len(t, h.values, 1)
	assert.Equal(t, "ACME", h.values[0].Text)
}

func TestCanvasHover(t *testing.T) {
	h := newCanvasHarness(t, 0)

	h.dc.content.MouseMoved(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(70, 30)}})
	assert.Equal(t, 0, h.dc.Surface().Hovered())

	h.dc.content.MouseOut()
	assert.Equal(t, -1, h.dc.Surface().Hovered())
}

func TestCanvasDrawsSelection(t *testing.T) {
	h := newCanvasHarness(t, 0)
	h.dc.Arm("vendorName")
	h.tap(70, 30)

	out := h.dc.draw(400, 500).(*image.RGBA)

	assert.Equal(t, colorutil.Accent, out.RGBAAt(49, 24), "selected token outline")
	bg := out.RGBAAt(5, 5)
	assert.GreaterOrEqual(t, bg.R, uint8(250), "page pixels are drawn")
}

func TestCanvasDrawWithoutPage(t *testing.T) {
	test.NewApp()
	m := selection.NewMachine(selection.Callbacks{})
	dc := NewDocumentCanvas(surface.New(m, hittest.DefaultOptions()), nil, 0, nil)

	out := dc.draw(10, 10).(*image.RGBA)
	assert.Equal(t, colorutil.Background, out.RGBAAt(3, 3))
}

func TestCanvasSettleAndTapsShareTheLoop(t *testing.T) {
	h := newCanvasHarness(t, time.Millisecond)
	h.dc.Arm("vendorName")

	// The settle measurement fires on a timer goroutine while taps arrive.
	deadline := time.Now().Add(30 * time.Millisecond)
	for time.Now().Before(deadline) {
		h.tap(70, 30)
	}

	assert.Eventually(t, func() bool {
		var ready bool
		h.onLoop(func() { ready = h.dc.Surface().Viewport().Ready() })
		return ready
	}, time.Second, time.Millisecond)

	h.tap(70, 30)
	var values int
	h.onLoop(func() { values = len(h.values) })
	assert.NotZero(t, values)
}

func TestCanvasMeasureAfterDisposeIsNoop(t *testing.T) {
	h := newCanvasHarness(t, time.Hour)

	h.dc.Dispose()
	h.dc.settled()

	assert.True(t, h.dc.Surface().Viewport().Layout.IsEmpty())
	assert.Equal(t, placeholderSize, h.dc.imgSize)
}

func TestCanvasPostsFromCallbacksRunAfterTheClick(t *testing.T) {
	h := newCanvasHarness(t, 0)
	h.dc.Arm("vendorName")

	// A click callback that re-enters the canvas must not deadlock.
	var zoomAfterClick int
	h.dc.OnClick(func(surface.ClickResult) {
		h.dc.ZoomIn()
		zoomAfterClick = h.dc.Zoom()
	})
	h.tap(70, 30)

	assert.Equal(t, 100, zoomAfterClick, "zoom is applied after the click returns")
	assert.Equal(t, 125, h.dc.Zoom())
}

// Package canvas provides the document canvas: a zoomable page image with
// token and field overlays that turns taps into selection events.
package canvas

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/document"
	"invoice-annotator/internal/logging"
	"invoice-annotator/internal/surface"
	"invoice-annotator/internal/viewport"
	"invoice-annotator/pkg/colorutil"
	"invoice-annotator/pkg/geometry"
)

var placeholderSize = fyne.NewSize(400, 300)

// DocumentCanvas displays one page and its overlays.
//
// Every change to the surface runs on the canvas event loop: taps, hover,
// wheel and scroll events, page and zoom changes, and the settle
// measurement posted from the timer goroutine. The raster is drawn from the
// frame published at the end of each change, so drawing never reads the
// surface.
type DocumentCanvas struct {
	widget.BaseWidget

	surface  *surface.Surface
	loop     *app.Loop
	log      *logging.Logger
	settler  *viewport.Settler
	disposed atomic.Bool

	// Page bitmap and its natural size. Owned by the loop.
	img         image.Image
	natural     geometry.Size
	measuredFor float32 // container width the layout was fitted to

	frameMu sync.Mutex
	frame   frame

	// Last scaled copy of the bitmap; only draw touches it.
	scaleMu    sync.Mutex
	scaled     *image.RGBA
	scaledFrom image.Image
	scaledSize image.Point

	// Display state
	raster  *fynecanvas.Raster
	content *pageContent
	scroll  *zoomScroll
	imgSize fyne.Size

	// Callbacks
	onZoomChange func(zoom int)
	onClick      func(res surface.ClickResult)
}

// frame is what the raster draws: a copy taken on the loop.
type frame struct {
	img       image.Image
	displayed geometry.Size
	zoom      int
	marks     []surface.Mark
}

// zoomScroll is a widget that wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *DocumentCanvas
}

func newZoomScroll(content fyne.CanvasObject, dc *DocumentCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: dc}
	scroll.OnScrolled = func(p fyne.Position) {
		dc.loop.Post(func() { dc.surface.SetScroll(toPoint(p)) })
	}
	zs.ExtendBaseWidget(zs)
	return zs
}

// Scrolled zooms around the pointer. Positions are relative to the visible area.
func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	anchor := toPoint(ev.Position)
	var step func(int) int
	switch {
	case ev.Scrolled.DY > 0:
		step = viewport.ZoomIn
	case ev.Scrolled.DY < 0:
		step = viewport.ZoomOut
	default:
		return
	}
	dc := zs.canvas
	dc.loop.Post(func() {
		dc.zoomAround(step(dc.surface.Viewport().ZoomPercent()), anchor)
	})
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// pageContent wraps the raster to handle pointer events. Its positions are
// container content coordinates because the page sits at its origin.
type pageContent struct {
	widget.BaseWidget
	canvas *DocumentCanvas
	raster *fynecanvas.Raster
}

var (
	_ fyne.Tappable     = (*pageContent)(nil)
	_ desktop.Hoverable = (*pageContent)(nil)
)

func newPageContent(dc *DocumentCanvas, raster *fynecanvas.Raster) *pageContent {
	pc := &pageContent{canvas: dc, raster: raster}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pageContent) CreateRenderer() fyne.WidgetRenderer {
	return &pageContentRenderer{content: pc}
}

func (pc *pageContent) MinSize() fyne.Size {
	return pc.raster.MinSize()
}

// Tapped handles left-click events.
func (pc *pageContent) Tapped(ev *fyne.PointEvent) {
	// Workaround for Fyne bug: reject clicks outside widget bounds
	size := pc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	p := toPoint(ev.Position)
	pc.canvas.loop.Post(func() { pc.canvas.click(p) })
}

func (pc *pageContent) MouseIn(ev *desktop.MouseEvent) {
	pc.MouseMoved(ev)
}

func (pc *pageContent) MouseMoved(ev *desktop.MouseEvent) {
	p := toPoint(ev.Position)
	pc.canvas.loop.Post(func() { pc.canvas.hover(p) })
}

func (pc *pageContent) MouseOut() {
	dc := pc.canvas
	dc.loop.Post(func() {
		if dc.surface.ClearHover() {
			dc.publish()
		}
	})
}

type pageContentRenderer struct {
	content *pageContent
}

func (r *pageContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *pageContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *pageContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *pageContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *pageContentRenderer) Destroy() {}

// NewDocumentCanvas creates a canvas over a surface. Changes run on loop,
// which the host shares for its own event handling; a nil loop gives the
// canvas one of its own. settleDelay is how long after an image load the
// layout is measured.
func NewDocumentCanvas(s *surface.Surface, loop *app.Loop, settleDelay time.Duration, log *logging.Logger) *DocumentCanvas {
	if log == nil {
		log = logging.Discard()
	}
	if loop == nil {
		loop = app.NewLoop()
	}
	dc := &DocumentCanvas{
		surface: s,
		loop:    loop,
		log:     log,
		settler: viewport.NewSettler(settleDelay),
		imgSize: placeholderSize,
		frame:   frame{zoom: s.Viewport().ZoomPercent()},
	}

	dc.raster = fynecanvas.NewRaster(dc.draw)
	dc.raster.ScaleMode = fynecanvas.ImageScalePixels
	dc.raster.SetMinSize(dc.imgSize)

	dc.content = newPageContent(dc, dc.raster)
	dc.scroll = newZoomScroll(dc.content, dc)

	dc.ExtendBaseWidget(dc)
	return dc
}

// Surface returns the annotation surface behind the canvas. Callers outside
// the loop must not change it.
func (dc *DocumentCanvas) Surface() *surface.Surface {
	return dc.surface
}

// SetPage shows a page. img is the decoded page bitmap; the layout is
// measured once the settle delay has passed, and the canvas ignores clicks
// until then.
func (dc *DocumentCanvas) SetPage(page document.Page, fields []document.FieldBox, img image.Image) {
	dc.loop.Post(func() { dc.setPage(page, fields, img) })
}

func (dc *DocumentCanvas) setPage(page document.Page, fields []document.FieldBox, img image.Image) {
	if dc.disposed.Load() {
		return
	}
	dc.img = img
	dc.natural = geometry.Size{}
	if img != nil {
		b := img.Bounds()
		dc.natural = geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	}

	intrinsic := page.IntrinsicSize(img)
	dc.surface.SetPage(page, fields, intrinsic)
	dc.surface.SetLayout(geometry.Size{}, geometry.Point2D{})
	dc.updateContentSize()
	dc.publish()

	dc.log.Debug("page set", "page", page.Index, "tokens", len(page.Tokens),
		"fields", len(fields), "intrinsic", intrinsic, "natural", dc.natural)
	dc.settler.Schedule(dc.settled)
}

// settled runs on the settle timer goroutine.
func (dc *DocumentCanvas) settled() {
	dc.loop.Post(dc.measure)
}

// measure fits the page to the container width and records the layout.
// It does nothing once the canvas is disposed.
func (dc *DocumentCanvas) measure() {
	if dc.disposed.Load() {
		return
	}
	width := dc.scroll.Size().Width
	dc.measuredFor = width
	layout := viewport.FitLayout(dc.natural, float64(width))
	dc.surface.SetLayout(layout, geometry.Point2D{})
	dc.updateContentSize()
	dc.publish()
	dc.log.Debug("layout measured", "layout", layout, "available", width)
}

// Arm makes key the field that token clicks are collected for. Arming the
// field that is already armed changes nothing.
func (dc *DocumentCanvas) Arm(key string) {
	dc.loop.Post(func() {
		m := dc.surface.Machine()
		if armed, ok := m.Armed(); ok && armed == key {
			return
		}
		m.Arm(key)
		dc.publish()
	})
}

// Disarm stops collecting token clicks and clears the selection.
func (dc *DocumentCanvas) Disarm() {
	dc.loop.Post(func() {
		m := dc.surface.Machine()
		if _, ok := m.Armed(); !ok {
			return
		}
		m.Disarm()
		dc.publish()
	})
}

// Dispose cancels the pending settle callback. A measurement already
// posted to the loop finds the canvas disposed and does nothing.
func (dc *DocumentCanvas) Dispose() {
	dc.disposed.Store(true)
	dc.settler.Dispose()
}

// Container returns the canvas for embedding in layouts. Its renderer
// re-fits the page when the available width changes.
func (dc *DocumentCanvas) Container() fyne.CanvasObject {
	return dc
}

// Zoom returns the zoom percent of the last published frame.
func (dc *DocumentCanvas) Zoom() int {
	dc.frameMu.Lock()
	defer dc.frameMu.Unlock()
	return dc.frame.zoom
}

// SetZoom sets the zoom percent, keeping the centre of the visible area fixed.
func (dc *DocumentCanvas) SetZoom(zoom int) {
	dc.loop.Post(func() { dc.zoomAround(zoom, dc.centre()) })
}

// ZoomIn increases the zoom level.
func (dc *DocumentCanvas) ZoomIn() {
	dc.loop.Post(func() {
		dc.zoomAround(viewport.ZoomIn(dc.surface.Viewport().ZoomPercent()), dc.centre())
	})
}

// ZoomOut decreases the zoom level.
func (dc *DocumentCanvas) ZoomOut() {
	dc.loop.Post(func() {
		dc.zoomAround(viewport.ZoomOut(dc.surface.Viewport().ZoomPercent()), dc.centre())
	})
}

func (dc *DocumentCanvas) centre() geometry.Point2D {
	size := dc.scroll.Size()
	return geometry.NewPoint2D(float64(size.Width)/2, float64(size.Height)/2)
}

func (dc *DocumentCanvas) zoomAround(zoom int, anchor geometry.Point2D) {
	vp := dc.surface.Viewport()
	zoom = viewport.ClampZoom(zoom)
	if zoom == vp.ZoomPercent() {
		return
	}
	scroll := viewport.AnchorScroll(vp, zoom, anchor)
	dc.surface.SetZoom(zoom)
	dc.updateContentSize()

	dc.scroll.scroll.Offset = fyne.NewPos(float32(scroll.X), float32(scroll.Y))
	dc.scroll.scroll.Refresh()
	dc.surface.SetScroll(toPoint(dc.scroll.scroll.Offset))
	dc.publish()

	if dc.onZoomChange != nil {
		dc.onZoomChange(zoom)
	}
}

// OnZoomChange sets a callback for zoom changes. It runs on the loop.
func (dc *DocumentCanvas) OnZoomChange(callback func(zoom int)) {
	dc.onZoomChange = callback
}

// OnClick sets a callback run on the loop after every handled click.
func (dc *DocumentCanvas) OnClick(callback func(res surface.ClickResult)) {
	dc.onClick = callback
}

func (dc *DocumentCanvas) click(p geometry.Point2D) {
	res := dc.surface.Click(p)
	if !res.Ready {
		return
	}
	dc.log.Debug("click", "target", res.Target, "hit", res.Hit.Kind, "index", res.Hit.Index,
		"x", res.Intrinsic.Point.X, "y", res.Intrinsic.Point.Y)
	dc.publish()
	if dc.onClick != nil {
		dc.onClick(res)
	}
}

func (dc *DocumentCanvas) hover(p geometry.Point2D) {
	if dc.surface.Hover(p) {
		dc.publish()
	}
}

// CheckResize re-fits the page when the container width changed.
func (dc *DocumentCanvas) CheckResize(size fyne.Size) {
	if size.Width <= 0 {
		return
	}
	dc.loop.Post(func() {
		if dc.img == nil || size.Width == dc.measuredFor {
			return
		}
		if !dc.surface.Viewport().Layout.IsEmpty() {
			dc.measure()
		}
	})
}

// Refresh refreshes the canvas display.
func (dc *DocumentCanvas) Refresh() {
	dc.raster.Refresh()
}

// publish copies what the raster needs out of the surface and redraws.
// It runs on the loop.
func (dc *DocumentCanvas) publish() {
	vp := dc.surface.Viewport()
	f := frame{
		img:       dc.img,
		displayed: vp.Displayed(),
		zoom:      vp.ZoomPercent(),
		marks:     dc.surface.Marks(),
	}
	dc.frameMu.Lock()
	dc.frame = f
	dc.frameMu.Unlock()
	dc.raster.Refresh()
}

func (dc *DocumentCanvas) currentFrame() frame {
	dc.frameMu.Lock()
	defer dc.frameMu.Unlock()
	return dc.frame
}

// updateContentSize updates the content size based on layout and zoom.
func (dc *DocumentCanvas) updateContentSize() {
	d := dc.surface.Viewport().Displayed()
	if d.IsEmpty() {
		dc.imgSize = placeholderSize
	} else {
		dc.imgSize = fyne.NewSize(float32(d.Width), float32(d.Height))
	}

	dc.raster.SetMinSize(dc.imgSize)
	dc.raster.Resize(dc.imgSize)
	if dc.content != nil {
		dc.content.Resize(dc.imgSize)
		dc.content.Refresh()
	}
	if dc.scroll != nil {
		dc.scroll.Refresh()
	}
}

// draw is the raster drawing function. w and h are device pixels, which
// differ from the displayed size on scaled screens.
func (dc *DocumentCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(output, output.Bounds(), colorutil.Background)

	f := dc.currentFrame()
	if f.img == nil || f.displayed.IsEmpty() || w == 0 || h == 0 {
		return output
	}

	xdraw.Copy(output, image.Point{}, dc.scaledImage(f.img, w, h), image.Rect(0, 0, w, h), xdraw.Src, nil)

	sx := float64(w) / f.displayed.Width
	sy := float64(h) / f.displayed.Height
	for _, r := range overlayRects(f.marks, sx, sy) {
		drawOverlayRect(output, r)
	}
	return output
}

// scaledImage returns img scaled to w x h, reusing the last scale when
// neither the bitmap nor the size has changed.
func (dc *DocumentCanvas) scaledImage(img image.Image, w, h int) *image.RGBA {
	dc.scaleMu.Lock()
	defer dc.scaleMu.Unlock()

	size := image.Pt(w, h)
	if dc.scaled != nil && dc.scaledFrom == img && dc.scaledSize == size {
		return dc.scaled
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	dc.scaled = dst
	dc.scaledFrom = img
	dc.scaledSize = size
	return dst
}

// CreateRenderer implements fyne.Widget.
func (dc *DocumentCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &documentCanvasRenderer{canvas: dc}
}

type documentCanvasRenderer struct {
	canvas *DocumentCanvas
}

func (r *documentCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	r.canvas.CheckResize(size)
}

func (r *documentCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *documentCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *documentCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *documentCanvasRenderer) Destroy() {
	r.canvas.Dispose()
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(p.X), float64(p.Y))
}

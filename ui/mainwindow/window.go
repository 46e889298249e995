// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/config"
	"invoice-annotator/internal/document"
	"invoice-annotator/internal/logging"
	"invoice-annotator/internal/selection"
	"invoice-annotator/internal/surface"
	"invoice-annotator/internal/version"
	"invoice-annotator/ui/canvas"
	"invoice-annotator/ui/panels"
	"invoice-annotator/ui/prefs"
)

const (
	appTitle           = "Invoice Annotator"
	defaultSplitOffset = 0.65
	defaultWidth       = 1280
	defaultHeight      = 860
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs
	cfg   *config.Config
	log   *logging.Logger
	loop  *app.Loop

	canvas    *canvas.DocumentCanvas
	sidePanel *panels.SidePanel
	split     *container.Split
	statusBar *widget.Label

	pageLabel *widget.Label
	zoomLabel *widget.Label
	prevBtn   *widget.Button
	nextBtn   *widget.Button

	watcher *app.ExtractionWatcher
}

// New creates a new main window. User input, the settle timer and file
// reloads are all applied on one event loop shared with the canvas.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, cfg *config.Config, log *logging.Logger) *MainWindow {
	if log == nil {
		log = logging.Discard()
	}
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
		cfg:    cfg,
		log:    log,
		loop:   app.NewLoop(),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeys()

	w, h := p.WindowSize(defaultWidth, defaultHeight)
	mw.Resize(fyne.NewSize(w, h))
	mw.SetOnClosed(mw.onClosed)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	machine := selection.NewMachine(selection.Callbacks{
		OnValueSelect:     mw.state.HandleValueSelect,
		OnSelectionChange: mw.state.SetSelectionCount,
	})
	surf := surface.New(machine, mw.cfg.HitOptions())
	mw.canvas = canvas.NewDocumentCanvas(surf, mw.loop, mw.cfg.SettleDelay, mw.log.With("canvas"))
	mw.canvas.OnZoomChange(func(zoom int) { mw.state.SetZoom(zoom) })
	mw.canvas.OnClick(mw.onCanvasClick)

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.loop)
	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	// Canvas area with toolbar on top
	canvasArea := container.NewBorder(
		toolbar,               // top
		nil,                   // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	// Main layout: canvas | field form
	mw.split = container.NewHSplit(canvasArea, mw.sidePanel.Container())
	mw.split.SetOffset(mw.prefs.SplitOffset(defaultSplitOffset))

	// Main container with status bar at bottom
	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.split,                          // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with page and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.prevBtn = widget.NewButton("<", mw.onPrevPage)
	mw.nextBtn = widget.NewButton(">", mw.onNextPage)
	mw.pageLabel = widget.NewLabel("")
	mw.zoomLabel = widget.NewLabel(zoomText(mw.state.ZoomPercent()))

	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)
	resetBtn := widget.NewButton("100%", mw.onResetZoom)

	mw.updatePageControls()

	return container.NewHBox(
		widget.NewLabel("Page:"),
		mw.prevBtn,
		mw.pageLabel,
		mw.nextBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		mw.zoomLabel,
		zoomInBtn,
		resetBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Extraction...", mw.onOpen),
		fyne.NewMenuItem("Reload", mw.onReload),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onResetZoom),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Page", mw.onPrevPage),
		fyne.NewMenuItem("Next Page", mw.onNextPage),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDocumentLoaded, func(data interface{}) {
		e, path := mw.state.Document()
		if e == nil {
			return
		}
		mw.SetTitle(appTitle + " - " + filepath.Base(path))
		status := fmt.Sprintf("Loaded %s", e)
		if note := mw.state.TruncationNote(); note != "" {
			status += ". " + note
		}
		mw.updateStatus(status)
	})

	mw.state.On(app.EventPageChanged, func(data interface{}) {
		if i, ok := data.(int); ok {
			mw.showPage(i)
		}
	})

	mw.state.On(app.EventZoomChanged, func(data interface{}) {
		if zoom, ok := data.(int); ok {
			mw.canvas.SetZoom(zoom)
			mw.zoomLabel.SetText(zoomText(zoom))
			mw.prefs.SetZoom(zoom)
		}
	})

	// The machine may already be armed when the field came from a box click;
	// Arm is a no-op then.
	mw.state.On(app.EventFieldArmed, func(data interface{}) {
		key, _ := data.(string)
		if key == "" {
			mw.canvas.Disarm()
			mw.updateStatus("Field picking stopped")
			return
		}
		mw.canvas.Arm(key)
		mw.updateStatus("Picking " + document.FieldLabel(key))
	})
}

// setupKeys binds keyboard shortcuts on the window canvas.
func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			mw.loop.Post(func() { _ = mw.state.ArmField("") })
		case fyne.KeyPageDown:
			mw.onNextPage()
		case fyne.KeyPageUp:
			mw.onPrevPage()
		}
	})
	mw.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case '+', '=':
			mw.onZoomIn()
		case '-':
			mw.onZoomOut()
		}
	})
}

// Open loads an extraction file on the event loop and, when configured,
// watches it. Failures are logged and shown in the status bar.
func (mw *MainWindow) Open(path string) {
	mw.loop.Post(func() {
		if err := mw.open(path); err != nil {
			mw.log.Error("failed to load extraction", "path", path, "err", err)
			mw.updateStatus(err.Error())
		}
	})
}

// SetZoom applies a zoom percent on the event loop.
func (mw *MainWindow) SetZoom(zoom int) {
	mw.loop.Post(func() { mw.state.SetZoom(zoom) })
}

func (mw *MainWindow) open(path string) error {
	if err := mw.state.LoadExtraction(path); err != nil {
		return err
	}
	mw.prefs.SetLastExtraction(path)
	if mw.cfg.Watch {
		mw.watch(path)
	}
	return nil
}

func (mw *MainWindow) watch(path string) {
	mw.stopWatching()
	w, err := app.NewExtractionWatcher(path, app.DefaultWatchDebounce, mw.log.With("watch"))
	if err != nil {
		mw.log.Warn("cannot watch extraction", "path", path, "err", err)
		return
	}
	// The reload is posted from a fresh goroutine so the watcher goroutine
	// never drains the loop; Stop, which may run on the loop, waits for it.
	w.OnChange(func() {
		go mw.loop.Post(func() {
			mw.log.Info("extraction changed on disk, reloading", "path", path)
			if err := mw.state.ReloadExtraction(); err != nil {
				mw.log.Error("reload failed", "path", path, "err", err)
				mw.updateStatus("Reload failed: " + err.Error())
			}
		})
	})
	if err := w.Start(); err != nil {
		mw.log.Warn("cannot watch extraction", "path", path, "err", err)
		return
	}
	mw.watcher = w
}

func (mw *MainWindow) stopWatching() {
	if mw.watcher != nil {
		mw.watcher.Stop()
		mw.watcher = nil
	}
}

// showPage pushes page i of the loaded document to the canvas.
func (mw *MainWindow) showPage(i int) {
	defer mw.updatePageControls()

	page, err := mw.state.CurrentPage()
	if err != nil {
		mw.log.Warn("no page to show", "page", i, "err", err)
		return
	}
	img, err := mw.pageImage(page)
	if err != nil {
		mw.log.Warn("page has no image", "page", i, "err", err)
		mw.updateStatus(fmt.Sprintf("Page %d has no preview image", i+1))
	}
	mw.canvas.SetPage(page, mw.state.FieldBoxes(i), img)
	if key := mw.state.Armed(); key != "" {
		mw.canvas.Arm(key)
	} else {
		mw.canvas.Disarm()
	}
}

// pageImage decodes the page preview, falling back to the configured image
// file when the extraction carries none.
func (mw *MainWindow) pageImage(page document.Page) (image.Image, error) {
	img, err := page.DecodeImage()
	if errors.Is(err, document.ErrNoPreview) && mw.cfg.ImagePath != "" {
		return document.LoadImage(mw.cfg.ImagePath)
	}
	return img, err
}

func (mw *MainWindow) updatePageControls() {
	n := mw.state.PageCount()
	i := mw.state.Page()
	if n == 0 {
		mw.pageLabel.SetText("-")
		mw.prevBtn.Disable()
		mw.nextBtn.Disable()
		return
	}
	mw.pageLabel.SetText(fmt.Sprintf("%d / %d", i+1, n))
	if i > 0 {
		mw.prevBtn.Enable()
	} else {
		mw.prevBtn.Disable()
	}
	if i < n-1 {
		mw.nextBtn.Enable()
	} else {
		mw.nextBtn.Disable()
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) onCanvasClick(res surface.ClickResult) {
	switch res.Target {
	case surface.TargetToken:
		mw.updateStatus(fmt.Sprintf("Word %d (%s match)", res.Hit.Index, res.Hit.Kind))
	case surface.TargetField:
		mw.updateStatus("Selected value box of " + document.FieldLabel(res.Field))
	default:
		mw.updateStatus(fmt.Sprintf("Clicked at %.0f, %.0f (%.1f%%, %.1f%%)",
			res.Intrinsic.Point.X, res.Intrinsic.Point.Y,
			res.Intrinsic.Percent.X, res.Intrinsic.Percent.Y))
	}
}

// getLastDir returns the directory of the last extraction as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.LastExtraction()
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(path)))
	if err != nil {
		return nil
	}
	return listable
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.loop.Post(func() {
			if err := mw.open(path); err != nil {
				dialog.ShowError(err, mw.Window)
			}
		})
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onReload() {
	mw.loop.Post(func() {
		if err := mw.state.ReloadExtraction(); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onPrevPage() {
	mw.loop.Post(func() { mw.state.PrevPage() })
}

func (mw *MainWindow) onNextPage() {
	mw.loop.Post(func() { mw.state.NextPage() })
}

func (mw *MainWindow) onZoomIn() {
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onResetZoom() {
	mw.canvas.SetZoom(100)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s\n\n"+
			"Review extracted invoice fields against the scanned page.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Info(appTitle), version.BuildTime, version.GitCommit),
		mw.Window)
}

func (mw *MainWindow) onClosed() {
	mw.stopWatching()
	mw.canvas.Dispose()

	size := mw.Canvas().Size()
	mw.prefs.SetWindowSize(size.Width, size.Height)
	mw.prefs.SetSplitOffset(mw.split.Offset)
	if err := mw.prefs.SaveIfChanged(); err != nil {
		mw.log.Warn("saving preferences failed", "path", mw.prefs.Path(), "err", err)
	}
}

func zoomText(zoom int) string {
	return fmt.Sprintf("%d%%", zoom)
}

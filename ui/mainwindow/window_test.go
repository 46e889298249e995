package mainwindow

import (
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/config"
	"invoice-annotator/ui/prefs"
)

// A 4x5 white PNG.
const tinyPreview = "iVBORw0KGgoAAAANSUhEUgAAAAQAAAAFCAIAAADtz9qMAAAAD0lEQVR4nGP4jwQYyOAAAJcMO8Vnj837AAAAAElFTkSuQmCC"

const truncatedExtraction = `{
  "page_count": 4,
  "pages_truncated": true,
  "file_preview": "` + tinyPreview + `",
  "file_preview_mime": "image/png",
  "preview_image_width": 800,
  "preview_image_height": 1000,
  "all_extracted_text": [{"text": "ACME", "x": 100, "y": 50, "width": 80, "height": 20}]
}`

func newTestWindow(t *testing.T) *MainWindow {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	p, err := prefs.LoadFrom(filepath.Join(t.TempDir(), "preferences.json"))
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Watch = false
	cfg.SettleDelay = 0

	mw := New(a, app.NewState(nil), p, cfg, nil)
	t.Cleanup(mw.canvas.Dispose)
	return mw
}

func TestStatusReportsTruncatedPages(t *testing.T) {
	mw := newTestWindow(t)
	path := filepath.Join(t.TempDir(), "long.json")
	require.NoError(t, os.WriteFile(path, []byte(truncatedExtraction), 0o644))

	mw.Open(path)

	assert.Contains(t, mw.statusBar.Text, "Previews cover 1 of 4 pages")
	assert.Equal(t, "1 / 1", mw.pageLabel.Text)
	assert.True(t, mw.nextBtn.Disabled())
	assert.Equal(t, path, mw.prefs.LastExtraction())
}

func TestOpenFailureShowsInStatus(t *testing.T) {
	mw := newTestWindow(t)

	mw.Open(filepath.Join(t.TempDir(), "missing.json"))

	assert.Contains(t, mw.statusBar.Text, "load extraction")
	assert.Equal(t, "-", mw.pageLabel.Text)
}

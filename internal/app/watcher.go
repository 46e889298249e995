package app

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"invoice-annotator/internal/logging"
)

// DefaultWatchDebounce collapses the burst of events editors and exporters
// produce for a single save.
const DefaultWatchDebounce = 250 * time.Millisecond

// ExtractionWatcher watches an extraction file and triggers a callback once
// the file settles after a write. The parent directory is watched so that
// atomic replace-by-rename saves are seen as well.
type ExtractionWatcher struct {
	path     string
	debounce time.Duration
	log      *logging.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	onChange func() // Called from the watch goroutine
}

// NewExtractionWatcher creates a watcher for the file at path.
func NewExtractionWatcher(path string, debounce time.Duration, log *logging.Logger) (*ExtractionWatcher, error) {
	if log == nil {
		log = logging.Discard()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &ExtractionWatcher{
		path:     filepath.Clean(abs),
		debounce: debounce,
		log:      log,
	}, nil
}

// OnChange sets the callback to invoke when the file changed.
// The callback runs on a background goroutine.
func (w *ExtractionWatcher) OnChange(callback func()) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Path returns the absolute path being watched.
func (w *ExtractionWatcher) Path() string {
	return w.path
}

// Start begins watching in a background goroutine.
func (w *ExtractionWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop()
	w.log.Info("watching extraction", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher goroutine and waits for it to exit.
func (w *ExtractionWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.watcher.Close()
	w.stopCh = nil
}

func (w *ExtractionWatcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("extraction event", "op", ev.Op, "name", ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "path", w.path, "err", err)

		case <-fire:
			fire = nil
			w.mu.Lock()
			cb := w.onChange
			w.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}

func (w *ExtractionWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

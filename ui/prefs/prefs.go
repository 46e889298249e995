// Package prefs persists UI preferences between sessions as JSON.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"invoice-annotator/internal/viewport"
)

const (
	appDir    = "invoice-annotator"
	prefsFile = "preferences.json"

	keyZoom           = "zoom"
	keyWindowWidth    = "window_width"
	keyWindowHeight   = "window_height"
	keySplitOffset    = "split_offset"
	keyLastExtraction = "last_extraction"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
	dirty  bool
}

// DefaultPath returns ~/.config/invoice-annotator/preferences.json or the
// platform equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, prefsFile)
}

// LoadFrom reads preferences from path. A missing file yields empty
// preferences and no error; an unreadable or corrupt file yields empty
// preferences and the error.
func LoadFrom(path string) (*Prefs, error) {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		p.values = make(map[string]interface{})
		return p, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	return p, nil
}

// Path returns the file the preferences are saved to.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.Lock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.dirty = false
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// SaveIfChanged saves only when a setter changed a value since the last save.
func (p *Prefs) SaveIfChanged() error {
	p.mu.RLock()
	dirty := p.dirty
	p.mu.RUnlock()
	if !dirty {
		return nil
	}
	return p.Save()
}

func (p *Prefs) number(key string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch n := p.values[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	if p.values[key] != val {
		p.values[key] = val
		p.dirty = true
	}
	p.mu.Unlock()
}

// Zoom returns the last zoom percent, or fallback when unset.
func (p *Prefs) Zoom(fallback int) int {
	if n, ok := p.number(keyZoom); ok {
		return viewport.ClampZoom(int(n))
	}
	return fallback
}

// SetZoom stores the zoom percent.
func (p *Prefs) SetZoom(zoom int) {
	p.set(keyZoom, float64(viewport.ClampZoom(zoom)))
}

// WindowSize returns the last window size, or the fallback when unset.
func (p *Prefs) WindowSize(fallbackW, fallbackH float32) (float32, float32) {
	w, okW := p.number(keyWindowWidth)
	h, okH := p.number(keyWindowHeight)
	if !okW || !okH || w <= 0 || h <= 0 {
		return fallbackW, fallbackH
	}
	return float32(w), float32(h)
}

// SetWindowSize stores the window size.
func (p *Prefs) SetWindowSize(w, h float32) {
	p.set(keyWindowWidth, float64(w))
	p.set(keyWindowHeight, float64(h))
}

// SplitOffset returns the canvas/form split position, or fallback when unset.
func (p *Prefs) SplitOffset(fallback float64) float64 {
	if n, ok := p.number(keySplitOffset); ok && n > 0 && n < 1 {
		return n
	}
	return fallback
}

// SetSplitOffset stores the split position.
func (p *Prefs) SetSplitOffset(offset float64) {
	p.set(keySplitOffset, offset)
}

// LastExtraction returns the path of the last reviewed extraction file.
func (p *Prefs) LastExtraction() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.values[keyLastExtraction].(string)
	return s
}

// SetLastExtraction stores the path of the reviewed extraction file.
func (p *Prefs) SetLastExtraction(path string) {
	p.set(keyLastExtraction, path)
}

// Package app provides the annotation session state and its event bus.
package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"invoice-annotator/internal/document"
	"invoice-annotator/internal/logging"
	"invoice-annotator/internal/selection"
	"invoice-annotator/internal/viewport"
)

// State holds one review session: the loaded extraction, the page being
// shown, and the values and positions the reviewer has assigned.
type State struct {
	mu sync.RWMutex

	SessionID      string
	ExtractionPath string
	Extraction     *document.Extraction

	PageIndex int
	Zoom      int

	// Field the next token selection is assigned to; "" when none.
	SelectedField string
	// Current value per registered field key.
	Values map[string]string
	// Source position per field, for fields assigned on the page.
	Positions map[string]*document.Position
	// Tokens in the current selection.
	SelectedCount int

	log       *logging.Logger
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventDocumentLoaded   EventType = iota // data: *document.Extraction
	EventPageChanged                       // data: int page index
	EventZoomChanged                       // data: int zoom percent
	EventFieldArmed                        // data: string field key ("" when disarmed)
	EventFieldChanged                      // data: string field key
	EventSelectionChanged                  // data: int selected token count
)

// EventListener is a callback for application events.
type EventListener func(data interface{})

// NewState creates a new empty session.
func NewState(log *logging.Logger) *State {
	if log == nil {
		log = logging.Discard()
	}
	id := uuid.NewString()
	return &State{
		SessionID: id,
		Zoom:      viewport.DefaultZoom,
		Values:    make(map[string]string),
		Positions: make(map[string]*document.Position),
		log:       log.With("session-" + id[:8]),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadExtraction reads an extraction file and makes it the session document.
func (s *State) LoadExtraction(path string) error {
	e, err := document.Load(path)
	if err != nil {
		return fmt.Errorf("load extraction: %w", err)
	}
	s.SetExtraction(e, path, false)
	return nil
}

// ReloadExtraction re-reads the current extraction file, keeping the page
// when it still exists. Assigned values are reset to the file's values.
func (s *State) ReloadExtraction() error {
	s.mu.RLock()
	path := s.ExtractionPath
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("reload extraction: no file loaded")
	}
	e, err := document.Load(path)
	if err != nil {
		return fmt.Errorf("reload extraction: %w", err)
	}
	s.SetExtraction(e, path, true)
	return nil
}

// SetExtraction replaces the session document. Field values start from the
// extracted values; positions and the armed field are cleared. With keepPage
// the current page index survives if the new document still has it.
func (s *State) SetExtraction(e *document.Extraction, path string, keepPage bool) {
	s.mu.Lock()
	page := 0
	if keepPage && s.PageIndex < len(e.Pages()) {
		page = s.PageIndex
	}
	s.Extraction = e
	s.ExtractionPath = path
	s.PageIndex = page
	s.Values = e.InitialValues()
	s.Positions = make(map[string]*document.Position)
	s.SelectedField = ""
	s.SelectedCount = 0
	s.mu.Unlock()

	s.log.Info("document loaded", "path", path, "doc", e, "page", page)
	s.Emit(EventDocumentLoaded, e)
	s.Emit(EventPageChanged, page)
}

// Document returns the loaded extraction and its path; nil when none.
func (s *State) Document() (*document.Extraction, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Extraction, s.ExtractionPath
}

// FieldBoxes returns the structured field boxes drawn on page i.
func (s *State) FieldBoxes(i int) []document.FieldBox {
	s.mu.RLock()
	e := s.Extraction
	s.mu.RUnlock()
	if e == nil {
		return nil
	}
	return e.FieldBoxes(i)
}

// TruncationNote describes pages that have no preview to navigate to, or
// returns "" when every page can be shown.
func (s *State) TruncationNote() string {
	s.mu.RLock()
	e := s.Extraction
	s.mu.RUnlock()
	if e == nil {
		return ""
	}
	shown, total := len(e.Pages()), e.TotalPages()
	if !e.PagesTruncated && total <= shown {
		return ""
	}
	return fmt.Sprintf("Previews cover %d of %d pages", shown, total)
}

// PageCount is the number of rendered pages available for navigation.
func (s *State) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Extraction == nil {
		return 0
	}
	return len(s.Extraction.Pages())
}

// CurrentPage returns the page being shown.
func (s *State) CurrentPage() (document.Page, error) {
	s.mu.RLock()
	e, i := s.Extraction, s.PageIndex
	s.mu.RUnlock()
	if e == nil {
		return document.Page{}, document.ErrNoPages
	}
	return e.Page(i)
}

// SetPage switches to page i.
func (s *State) SetPage(i int) error {
	s.mu.Lock()
	if s.Extraction == nil {
		s.mu.Unlock()
		return document.ErrNoPages
	}
	if n := len(s.Extraction.Pages()); i < 0 || i >= n {
		s.mu.Unlock()
		return fmt.Errorf("set page: %w: %d of %d", document.ErrPageOutOfRange, i, n)
	}
	if i == s.PageIndex {
		s.mu.Unlock()
		return nil
	}
	s.PageIndex = i
	s.mu.Unlock()

	s.Emit(EventPageChanged, i)
	return nil
}

// NextPage moves forward one page; it is a no-op on the last page.
func (s *State) NextPage() bool {
	s.mu.RLock()
	next := s.PageIndex + 1
	s.mu.RUnlock()
	return s.SetPage(next) == nil
}

// PrevPage moves back one page; it is a no-op on the first page.
func (s *State) PrevPage() bool {
	s.mu.RLock()
	prev := s.PageIndex - 1
	s.mu.RUnlock()
	return s.SetPage(prev) == nil
}

// Page returns the current page index.
func (s *State) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PageIndex
}

// SetZoom clamps and stores the zoom percent, returning the stored value.
func (s *State) SetZoom(zoom int) int {
	zoom = viewport.ClampZoom(zoom)
	s.mu.Lock()
	changed := zoom != s.Zoom
	s.Zoom = zoom
	s.mu.Unlock()

	if changed {
		s.Emit(EventZoomChanged, zoom)
	}
	return zoom
}

// ZoomPercent returns the stored zoom percent.
func (s *State) ZoomPercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Zoom
}

// ArmField makes key the field that token selections are assigned to. An
// empty key disarms. Unknown keys are rejected.
func (s *State) ArmField(key string) error {
	if key != "" {
		if _, ok := document.LookupField(key); !ok {
			return fmt.Errorf("arm field: unknown field %q", key)
		}
	}
	s.mu.Lock()
	if s.SelectedField == key {
		s.mu.Unlock()
		return nil
	}
	s.SelectedField = key
	s.mu.Unlock()

	s.log.Debug("field armed", "field", key)
	s.Emit(EventFieldArmed, key)
	return nil
}

// Armed returns the armed field key.
func (s *State) Armed() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedField
}

// HandleValueSelect applies an assignment emitted by the selection machine.
//
// Token selections replace the armed field's value with the trimmed text and
// record the position; blank text is ignored. A structured box arms its field
// and records the box position without touching the value. A clear unsets the
// armed field's value and position.
func (s *State) HandleValueSelect(v selection.ValueSelection) {
	switch v.Kind {
	case selection.ValueTokens:
		text := strings.TrimSpace(v.Text)
		s.mu.Lock()
		field := s.fieldFor(v)
		if field == "" || text == "" {
			s.mu.Unlock()
			return
		}
		s.Values[field] = text
		if v.Position != nil {
			s.Positions[field] = v.Position
		}
		s.mu.Unlock()

		s.log.Debug("value assigned", "field", field, "text", text)
		s.Emit(EventFieldChanged, field)

	case selection.ValueCleared:
		s.mu.Lock()
		field := s.fieldFor(v)
		if field == "" {
			s.mu.Unlock()
			return
		}
		s.Values[field] = ""
		delete(s.Positions, field)
		s.mu.Unlock()

		s.log.Debug("value cleared", "field", field)
		s.Emit(EventFieldChanged, field)

	case selection.ValueStructuredBox:
		if v.Field == "" {
			return
		}
		s.mu.Lock()
		armedChanged := s.SelectedField != v.Field
		s.SelectedField = v.Field
		if v.Position != nil {
			s.Positions[v.Field] = v.Position
		}
		s.mu.Unlock()

		if armedChanged {
			s.Emit(EventFieldArmed, v.Field)
		}
		s.Emit(EventFieldChanged, v.Field)
	}
}

// fieldFor picks the field an assignment applies to. Caller holds mu.
func (s *State) fieldFor(v selection.ValueSelection) string {
	if v.Field != "" {
		return v.Field
	}
	return s.SelectedField
}

// SetSelectionCount records the number of selected tokens.
func (s *State) SetSelectionCount(n int) {
	s.mu.Lock()
	changed := n != s.SelectedCount
	s.SelectedCount = n
	s.mu.Unlock()

	if changed {
		s.Emit(EventSelectionChanged, n)
	}
}

// SelectionCount returns the number of selected tokens.
func (s *State) SelectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedCount
}

// SetFieldValue stores a value typed by the reviewer. A typed value has no
// source position on the page.
func (s *State) SetFieldValue(key, value string) {
	s.mu.Lock()
	if s.Values[key] == value {
		s.mu.Unlock()
		return
	}
	s.Values[key] = value
	delete(s.Positions, key)
	s.mu.Unlock()

	s.Emit(EventFieldChanged, key)
}

// Value returns the current value of a field.
func (s *State) Value(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Values[key]
}

// Position returns the recorded position of a field, or nil.
func (s *State) Position(key string) *document.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Positions[key]
}

// MissingRequired lists required fields that have no value, in registry order.
func (s *State) MissingRequired() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, f := range document.Fields {
		if f.Required && strings.TrimSpace(s.Values[f.Key]) == "" {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

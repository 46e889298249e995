// Package selection tracks which field is armed and which tokens are
// selected for it, and reports the aggregated value whenever either changes.
//
// The machine has two states: Idle (no field armed) and Armed(field). Every
// input is one of the Event variants and goes through Dispatch. Invalid
// input, such as a token click while Idle or an out-of-range index, is
// ignored; nothing here returns an error.
package selection

import (
	"sort"
	"strings"

	"invoice-annotator/internal/document"
	"invoice-annotator/pkg/geometry"
)

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

// ArmField arms a field and empties the selection.
type ArmField struct {
	Key string
}

// Disarm returns the machine to Idle and empties the selection.
type Disarm struct{}

// TokenClick toggles a token of the current page.
type TokenClick struct {
	Index int
}

// StructuredBoxClick is a click on an extracted field's value box.
type StructuredBoxClick struct {
	Key      string
	Position *document.Position
}

func (ArmField) isEvent()           {}
func (Disarm) isEvent()             {}
func (TokenClick) isEvent()         {}
func (StructuredBoxClick) isEvent() {}

// ValueKind tells the host how to interpret a ValueSelection.
type ValueKind int

const (
	// ValueTokens carries the aggregate text of the selected tokens.
	ValueTokens ValueKind = iota
	// ValueCleared means the selection became empty; the field is unset.
	ValueCleared
	// ValueStructuredBox means a field's own value box was clicked.
	ValueStructuredBox
)

func (k ValueKind) String() string {
	switch k {
	case ValueTokens:
		return "tokens"
	case ValueCleared:
		return "cleared"
	case ValueStructuredBox:
		return "structured-box"
	default:
		return "unknown"
	}
}

// ValueSelection is emitted to the host whenever the value for a field
// changes. Field is the armed field for token selections and clears, and
// the clicked field for structured boxes. Position is nil for clears.
type ValueSelection struct {
	Kind     ValueKind
	Field    string
	Position *document.Position
	Text     string
}

// Callbacks receive the machine's output. Either may be nil.
type Callbacks struct {
	OnValueSelect     func(ValueSelection)
	OnSelectionChange func(count int)
}

// Machine is the selection state machine for one document view. It is not
// safe for concurrent use; all events arrive on the UI event goroutine.
type Machine struct {
	cb Callbacks

	armed    string
	selected map[int]struct{}

	tokens    []document.Token
	intrinsic geometry.Size
}

// NewMachine creates an Idle machine.
func NewMachine(cb Callbacks) *Machine {
	return &Machine{
		cb:       cb,
		selected: make(map[int]struct{}),
	}
}

// SetPage replaces the token list the selection indexes into. Indices are
// only meaningful within one page, so a non-empty selection is cleared.
func (m *Machine) SetPage(tokens []document.Token, intrinsic geometry.Size) {
	m.tokens = tokens
	m.intrinsic = intrinsic
	if len(m.selected) > 0 {
		m.selected = make(map[int]struct{})
		m.notifyCount()
	}
}

// Dispatch applies one event.
func (m *Machine) Dispatch(ev Event) {
	switch e := ev.(type) {
	case ArmField:
		m.arm(e.Key)
	case Disarm:
		m.disarm()
	case TokenClick:
		m.toggle(e.Index)
	case StructuredBoxClick:
		m.structuredBox(e.Key, e.Position)
	}
}

// Arm is shorthand for Dispatch(ArmField{key}). An empty key disarms.
func (m *Machine) Arm(key string) {
	m.Dispatch(ArmField{Key: key})
}

// Disarm is shorthand for Dispatch(Disarm{}).
func (m *Machine) Disarm() {
	m.Dispatch(Disarm{})
}

// Toggle is shorthand for Dispatch(TokenClick{index}).
func (m *Machine) Toggle(index int) {
	m.Dispatch(TokenClick{Index: index})
}

// Armed returns the armed field, if any.
func (m *Machine) Armed() (string, bool) {
	return m.armed, m.armed != ""
}

// IsSelected reports whether a token index is selected.
func (m *Machine) IsSelected(index int) bool {
	_, ok := m.selected[index]
	return ok
}

// Count returns the number of selected tokens.
func (m *Machine) Count() int {
	return len(m.selected)
}

// Selected returns the selected token indices in list order.
func (m *Machine) Selected() []int {
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (m *Machine) arm(key string) {
	if key == "" {
		m.disarm()
		return
	}
	m.armed = key
	m.selected = make(map[int]struct{})
	m.notifyCount()
}

func (m *Machine) disarm() {
	m.armed = ""
	m.selected = make(map[int]struct{})
	m.notifyCount()
}

func (m *Machine) toggle(index int) {
	if m.armed == "" || index < 0 || index >= len(m.tokens) || !m.tokens[index].Hittable() {
		return
	}

	if _, ok := m.selected[index]; ok {
		delete(m.selected, index)
	} else {
		m.selected[index] = struct{}{}
	}

	m.notifyCount()
	m.emit(m.aggregate())
}

// structuredBox arms the clicked field unless it is already armed, in which
// case the current selection is kept. Either way the box's own position is
// reported for the field.
func (m *Machine) structuredBox(key string, pos *document.Position) {
	if key == "" {
		return
	}
	if m.armed != key {
		m.arm(key)
	}
	m.emit(ValueSelection{Kind: ValueStructuredBox, Field: key, Position: pos})
}

// aggregate joins the selected tokens' text in list order and takes the
// position of the first selected token in list order.
func (m *Machine) aggregate() ValueSelection {
	if len(m.selected) == 0 {
		return ValueSelection{Kind: ValueCleared, Field: m.armed}
	}

	var texts []string
	var first *document.Token
	for i := range m.tokens {
		if _, ok := m.selected[i]; !ok {
			continue
		}
		if first == nil {
			first = &m.tokens[i]
		}
		texts = append(texts, m.tokens[i].Text)
	}

	return ValueSelection{
		Kind:     ValueTokens,
		Field:    m.armed,
		Position: document.TokenPosition(*first, m.intrinsic),
		Text:     strings.Join(texts, " "),
	}
}

func (m *Machine) emit(v ValueSelection) {
	if m.cb.OnValueSelect != nil {
		m.cb.OnValueSelect(v)
	}
}

func (m *Machine) notifyCount() {
	if m.cb.OnSelectionChange != nil {
		m.cb.OnSelectionChange(len(m.selected))
	}
}

package selection

import (
	"testing"

	"invoice-annotator/internal/document"
	"invoice-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	values []ValueSelection
	counts []int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnValueSelect:     func(v ValueSelection) { r.values = append(r.values, v) },
		OnSelectionChange: func(n int) { r.counts = append(r.counts, n) },
	}
}

func (r *recorder) last() ValueSelection {
	return r.values[len(r.values)-1]
}

var pageTokens = []document.Token{
	{Text: "INV-2024-001", X: 100, Y: 50, Width: 120, Height: 20},
	{Text: "Total", X: 100, Y: 300, Width: 60, Height: 20},
	{Text: "ACME", X: 400, Y: 80, Width: 70, Height: 20},
	{Text: "GmbH", X: 480, Y: 80, Width: 60, Height: 20},
	{Text: "", X: 10, Y: 10, Width: 10, Height: 10},
}

var pageSize = geometry.NewSize(800, 1000)

func newMachine(t *testing.T) (*Machine, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewMachine(rec.callbacks())
	m.SetPage(pageTokens, pageSize)
	return m, rec
}

func TestIdleIgnoresTokenClicks(t *testing.T) {
	m, rec := newMachine(t)

	m.Toggle(0)

	_, armed := m.Armed()
	assert.False(t, armed)
	assert.Zero(t, m.Count())
	assert.Empty(t, rec.values)
	assert.Empty(t, rec.counts)
}

func TestArmResetsSelection(t *testing.T) {
	m, rec := newMachine(t)

	m.Arm("vendorName")
	assert.Equal(t, []int{0}, rec.counts)

	m.Toggle(2)
	m.Toggle(3)
	require.Equal(t, 2, m.Count())

	m.Arm("customerName")
	key, armed := m.Armed()
	assert.True(t, armed)
	assert.Equal(t, "customerName", key)
	assert.Zero(t, m.Count())
	assert.Equal(t, 0, rec.counts[len(rec.counts)-1])

	// Re-arming the same field still resets and reports zero.
	m.Toggle(2)
	m.Arm("customerName")
	assert.Zero(t, m.Count())
	assert.Equal(t, 0, rec.counts[len(rec.counts)-1])
}

func TestAggregateFollowsListOrder(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")

	m.Toggle(3)
	m.Toggle(1)
	m.Toggle(2)

	v := rec.last()
	assert.Equal(t, ValueTokens, v.Kind)
	assert.Equal(t, "vendorName", v.Field)
	assert.Equal(t, "Total ACME GmbH", v.Text)
	require.NotNil(t, v.Position)
	assert.Equal(t, 100.0, v.Position.X, "position comes from the first selected token in list order")
	assert.Equal(t, 300.0, v.Position.Y)
	assert.Equal(t, []int{1, 2, 3}, m.Selected())
	assert.Equal(t, []int{0, 1, 2, 3}, rec.counts)
}

func TestUntoggleScenario(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")

	m.Toggle(0)
	m.Toggle(1)
	m.Toggle(0)

	v := rec.last()
	assert.Equal(t, "Total", v.Text)
	assert.Equal(t, 1, m.Count())
	assert.False(t, m.IsSelected(0))
	assert.True(t, m.IsSelected(1))
	require.NotNil(t, v.Position)
	assert.Equal(t, 300.0, v.Position.Y)
}

func TestClearingLastTokenEmitsClear(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("invoiceNumber")

	m.Toggle(0)
	m.Toggle(0)

	v := rec.last()
	assert.Equal(t, ValueCleared, v.Kind)
	assert.Equal(t, "invoiceNumber", v.Field)
	assert.Equal(t, "", v.Text)
	assert.Nil(t, v.Position)
	assert.Equal(t, 0, rec.counts[len(rec.counts)-1])
	assert.Zero(t, m.Count())
}

func TestInvalidTokenIndicesAreIgnored(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")
	before := len(rec.values)

	m.Toggle(-1)
	m.Toggle(len(pageTokens))
	m.Toggle(4) // empty text

	assert.Zero(t, m.Count())
	assert.Len(t, rec.values, before)
}

func TestDisarm(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")
	m.Toggle(2)

	m.Disarm()

	_, armed := m.Armed()
	assert.False(t, armed)
	assert.Zero(t, m.Count())
	assert.Equal(t, 0, rec.counts[len(rec.counts)-1])

	m.Arm("")
	_, armed = m.Armed()
	assert.False(t, armed)
}

func TestStructuredBoxClickArmsField(t *testing.T) {
	m, rec := newMachine(t)
	pos := &document.Position{X: 100, Y: 50}

	m.Dispatch(StructuredBoxClick{Key: "invoiceNumber", Position: pos})

	key, armed := m.Armed()
	assert.True(t, armed)
	assert.Equal(t, "invoiceNumber", key)
	v := rec.last()
	assert.Equal(t, ValueStructuredBox, v.Kind)
	assert.Equal(t, "invoiceNumber", v.Field)
	assert.Same(t, pos, v.Position)
	assert.Equal(t, []int{0}, rec.counts)
}

func TestStructuredBoxClickOnArmedFieldKeepsSelection(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")
	m.Toggle(2)
	counts := len(rec.counts)

	m.Dispatch(StructuredBoxClick{Key: "vendorName", Position: &document.Position{}})
	assert.Equal(t, 1, m.Count())
	assert.Len(t, rec.counts, counts)

	m.Dispatch(StructuredBoxClick{Key: "totalAmount", Position: &document.Position{}})
	assert.Zero(t, m.Count())
	key, _ := m.Armed()
	assert.Equal(t, "totalAmount", key)

	m.Dispatch(StructuredBoxClick{})
	key, _ = m.Armed()
	assert.Equal(t, "totalAmount", key)
}

func TestSetPageClearsSelection(t *testing.T) {
	m, rec := newMachine(t)
	m.Arm("vendorName")
	m.Toggle(2)

	m.SetPage(pageTokens[:2], pageSize)

	assert.Zero(t, m.Count())
	assert.Equal(t, 0, rec.counts[len(rec.counts)-1])
	key, armed := m.Armed()
	assert.True(t, armed, "changing page keeps the armed field")
	assert.Equal(t, "vendorName", key)
}

func TestNilCallbacks(t *testing.T) {
	m := NewMachine(Callbacks{})
	m.SetPage(pageTokens, pageSize)
	assert.NotPanics(t, func() {
		m.Arm("vendorName")
		m.Toggle(0)
		m.Toggle(0)
		m.Disarm()
	})
}

func TestUnknownPageSizeYieldsNilPosition(t *testing.T) {
	rec := &recorder{}
	m := NewMachine(rec.callbacks())
	m.SetPage(pageTokens, geometry.Size{})
	m.Arm("vendorName")
	m.Toggle(2)

	v := rec.last()
	assert.Equal(t, "ACME", v.Text)
	assert.Nil(t, v.Position)
}

func TestValueKindString(t *testing.T) {
	assert.Equal(t, "tokens", ValueTokens.String())
	assert.Equal(t, "cleared", ValueCleared.String())
	assert.Equal(t, "structured-box", ValueStructuredBox.String())
	assert.Equal(t, "unknown", ValueKind(42).String())
}

package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/document"
)

// fieldRow is one invoice field: its value entry and the button that arms it.
type fieldRow struct {
	spec     document.FieldSpec
	entry    *widget.Entry
	pickBtn  *widget.Button
	posLabel *widget.Label
}

// FieldsPanel lists the invoice fields with their current values. Picking a
// field arms it so that words clicked on the page fill it.
type FieldsPanel struct {
	state     *app.State
	loop      *app.Loop
	container fyne.CanvasObject

	rows       map[string]*fieldRow
	countLabel *widget.Label
	hintLabel  *widget.Label
}

// NewFieldsPanel creates the field form. Typed values and picks are applied
// on loop, where the state listeners that refresh the form also run.
func NewFieldsPanel(state *app.State, loop *app.Loop) *FieldsPanel {
	if loop == nil {
		loop = app.NewLoop()
	}
	fp := &FieldsPanel{
		state: state,
		loop:  loop,
		rows:  make(map[string]*fieldRow, len(document.Fields)),
	}
	fp.buildUI()

	state.On(app.EventDocumentLoaded, func(_ interface{}) { fp.Refresh() })
	state.On(app.EventFieldChanged, func(data interface{}) {
		if key, ok := data.(string); ok {
			fp.refreshField(key)
		}
	})
	state.On(app.EventFieldArmed, func(_ interface{}) { fp.refreshArmed() })
	state.On(app.EventSelectionChanged, func(data interface{}) {
		if n, ok := data.(int); ok {
			fp.setCount(n)
		}
	})

	return fp
}

// Container returns the panel container.
func (fp *FieldsPanel) Container() fyne.CanvasObject {
	return fp.container
}

func (fp *FieldsPanel) buildUI() {
	form := container.NewVBox()
	for _, spec := range document.Fields {
		spec := spec
		row := &fieldRow{
			spec:     spec,
			entry:    widget.NewEntry(),
			posLabel: widget.NewLabel(""),
		}
		row.entry.SetPlaceHolder(spec.Label)
		// Writing an entry from refreshField echoes here with the value the
		// state already holds, which SetFieldValue ignores.
		row.entry.OnChanged = func(text string) {
			fp.loop.Post(func() { fp.state.SetFieldValue(spec.Key, text) })
		}
		row.pickBtn = widget.NewButton("Pick", func() {
			fp.loop.Post(func() { fp.togglePick(spec.Key) })
		})
		row.posLabel.TextStyle = fyne.TextStyle{Italic: true}
		fp.rows[spec.Key] = row

		label := spec.Label
		if spec.Required {
			label += " *"
		}
		form.Add(widget.NewLabelWithStyle(label, fyne.TextAlignLeading, fyne.TextStyle{Bold: spec.Required}))
		form.Add(container.NewBorder(nil, nil, nil, row.pickBtn, row.entry))
		form.Add(row.posLabel)
	}

	fp.countLabel = widget.NewLabel(countText(0))
	fp.hintLabel = widget.NewLabel(hintText(""))
	fp.hintLabel.Wrapping = fyne.TextWrapWord

	fp.container = container.NewBorder(
		container.NewVBox(fp.hintLabel, fp.countLabel, widget.NewSeparator()), // top
		nil, nil, nil,
		container.NewVScroll(form),
	)
}

func (fp *FieldsPanel) togglePick(key string) {
	if fp.state.Armed() == key {
		_ = fp.state.ArmField("")
		return
	}
	_ = fp.state.ArmField(key)
}

// Refresh reloads every row from the state.
func (fp *FieldsPanel) Refresh() {
	for key := range fp.rows {
		fp.refreshField(key)
	}
	fp.refreshArmed()
	fp.setCount(fp.state.SelectionCount())
}

func (fp *FieldsPanel) refreshField(key string) {
	row, ok := fp.rows[key]
	if !ok {
		return
	}
	value := fp.state.Value(key)
	if row.entry.Text != value {
		row.entry.SetText(value)
	}
	row.posLabel.SetText(positionText(fp.state.Position(key)))
}

func (fp *FieldsPanel) refreshArmed() {
	armed := fp.state.Armed()
	for key, row := range fp.rows {
		if key == armed {
			row.pickBtn.Importance = widget.HighImportance
			row.pickBtn.SetText("Picking")
		} else {
			row.pickBtn.Importance = widget.MediumImportance
			row.pickBtn.SetText("Pick")
		}
		row.pickBtn.Refresh()
	}
	fp.hintLabel.SetText(hintText(armed))
}

func (fp *FieldsPanel) setCount(n int) {
	fp.countLabel.SetText(countText(n))
}

func countText(n int) string {
	if n == 1 {
		return "1 word selected"
	}
	return fmt.Sprintf("%d words selected", n)
}

func hintText(armed string) string {
	if armed == "" {
		return "Pick a field, then click words on the page. Click a highlighted value box to jump to its field."
	}
	return fmt.Sprintf("Click words on the page to fill %s. Press Esc to stop.", document.FieldLabel(armed))
}

func positionText(pos *document.Position) string {
	if pos == nil {
		return ""
	}
	return fmt.Sprintf("line %d/%d, %.1f%% across", pos.LineNumber, pos.TotalLines, pos.CharPercent)
}

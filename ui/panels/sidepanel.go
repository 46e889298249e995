// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/document"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	// Tab content
	fieldsPanel *FieldsPanel
	infoLabel   *widget.Label
}

// NewSidePanel creates a new side panel. Edits are applied on loop.
func NewSidePanel(state *app.State, loop *app.Loop) *SidePanel {
	sp := &SidePanel{state: state}

	sp.fieldsPanel = NewFieldsPanel(state, loop)
	sp.infoLabel = widget.NewLabel("No document loaded")
	sp.infoLabel.Wrapping = fyne.TextWrapWord

	sp.container = container.NewAppTabs(
		container.NewTabItem("Fields", sp.fieldsPanel.Container()),
		container.NewTabItem("Document", container.NewVScroll(sp.infoLabel)),
	)

	refresh := func(_ interface{}) { sp.refreshInfo() }
	state.On(app.EventDocumentLoaded, refresh)
	state.On(app.EventPageChanged, refresh)
	state.On(app.EventFieldChanged, refresh)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Fields returns the field form.
func (sp *SidePanel) Fields() *FieldsPanel {
	return sp.fieldsPanel
}

func (sp *SidePanel) refreshInfo() {
	sp.infoLabel.SetText(documentInfo(sp.state))
}

func documentInfo(s *app.State) string {
	e, path := s.Document()
	if e == nil {
		return "No document loaded"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", filepath.Base(path))
	fmt.Fprintf(&b, "Page: %d of %d\n", s.Page()+1, s.PageCount())
	if note := s.TruncationNote(); note != "" {
		fmt.Fprintf(&b, "%s\n", note)
	}
	if missing := s.MissingRequired(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, key := range missing {
			labels[i] = document.FieldLabel(key)
		}
		fmt.Fprintf(&b, "Missing: %s\n", strings.Join(labels, ", "))
	}
	fmt.Fprintf(&b, "Session: %s", s.SessionID)
	return b.String()
}

package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"invoice-annotator/pkg/colorutil"
)

// AnnotatorTheme ties the widget accent to the overlay palette so the armed
// field button and the armed box on the page share a color.
type AnnotatorTheme struct{}

var _ fyne.Theme = (*AnnotatorTheme)(nil)

func (t *AnnotatorTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorutil.Accent
	case theme.ColorNameSelection:
		return colorutil.WithAlpha(colorutil.Accent, 0x60)
	case theme.ColorNameSuccess:
		return colorutil.FieldBox
	case theme.ColorNameError:
		return colorutil.ClickMark
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *AnnotatorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *AnnotatorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *AnnotatorTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 14 // page previews are wide; easier to grab
	default:
		return theme.DefaultTheme().Size(name)
	}
}

package mainwindow

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"defect-synth/pkg/colorutil"
)

// ngRed marks actions that cut defects out of the NG image.
var ngRed = color.NRGBA{R: 0xC6, G: 0x28, B: 0x28, A: 0xFF}

// Theme is the editor theme. Accent colours follow the overlay palette so
// a selected widget and a selected region read the same, and spacing is
// tightened to leave room for the two image panes.
type Theme struct {
	base fyne.Theme
}

var _ fyne.Theme = (*Theme)(nil)

// NewTheme returns the editor theme layered over fyne's default.
func NewTheme() *Theme {
	return &Theme{base: theme.DefaultTheme()}
}

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return ngRed
	case theme.ColorNameFocus:
		return withAlpha(colorutil.Yellow, 0x66)
	case theme.ColorNameSelection, theme.ColorNameHover:
		return withAlpha(colorutil.Cyan, 0x40)
	case theme.ColorNameScrollBar:
		return withAlpha(colorutil.White, 0x60)
	case theme.ColorNameBackground:
		if variant == theme.VariantDark {
			// same grey the panes letterbox with
			return colorutil.Gray
		}
	}
	return t.base.Color(name, variant)
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameInlineIcon:
		return 18
	case theme.SizeNameSeparatorThickness:
		return 2
	}
	return t.base.Size(name)
}

func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

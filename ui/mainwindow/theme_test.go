package mainwindow

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2/theme"
	"github.com/stretchr/testify/assert"

	"defect-synth/pkg/colorutil"
)

func TestThemeAccents(t *testing.T) {
	th := NewTheme()
	assert.Equal(t, ngRed, th.Color(theme.ColorNamePrimary, theme.VariantLight))
	assert.Equal(t, color.NRGBA{R: 0, G: 229, B: 255, A: 0x40}, th.Color(theme.ColorNameSelection, theme.VariantDark))

	assert.Equal(t, colorutil.Gray, th.Color(theme.ColorNameBackground, theme.VariantDark))
	assert.Equal(t, theme.DefaultTheme().Color(theme.ColorNameBackground, theme.VariantLight),
		th.Color(theme.ColorNameBackground, theme.VariantLight))
}

func TestThemeSizes(t *testing.T) {
	th := NewTheme()
	assert.Equal(t, float32(3), th.Size(theme.SizeNamePadding))
	assert.Equal(t, theme.DefaultTheme().Size(theme.SizeNameText), th.Size(theme.SizeNameText))
}

package formatter

import (
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderBar renders value as a horizontal bar scaled against peak. The bar
// is green at or above 2/3 of the peak, yellow above 1/3 and dim below.
// A zero value always renders empty.
func RenderBar(value, peak int64, width int) string {
	if width < 1 {
		width = 1
	}
	if value < 0 {
		value = 0
	}
	if peak < value {
		peak = value
	}

	filled := 0
	if peak > 0 {
		filled = int(value * int64(width) / peak)
	}
	if value > 0 && filled == 0 {
		filled = 1
	}

	style := StyleGreen
	switch {
	case peak == 0 || value*3 < peak:
		style = StyleDim
	case value*3 < peak*2:
		style = StyleYellow
	}

	return style.Render(strings.Repeat(filledBlock, filled)) +
		StyleDim.Render(strings.Repeat(emptyBlock, width-filled))
}

package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// gradientLo and gradientHi span the meter's colors, from cool blue (in-tune) to hot red (near
// the technique's limit) across the colorful Lab space, the same way
// go-colorful's blend functions are meant to be used for a meter.
var (
	gradientLo = colorful.Color{R: 0.2, G: 0.4, B: 0.9}
	gradientHi = colorful.Color{R: 0.9, G: 0.2, B: 0.2}
)

// CentsMeter renders a one-line colored bar showing |cents| against a
// maximum (the technique's realizable range). No CLI command calls it.
func CentsMeter(cents, max float64, width int) string {
	if max <= 0 {
		max = 1
	}
	frac := cents / max
	if frac < 0 {
		frac = -frac
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}

	c := gradientLo.BlendLab(gradientHi, frac)
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(strings.Repeat("█", filled))
	rest := strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s %+6.2fc", bar, rest, cents)
}

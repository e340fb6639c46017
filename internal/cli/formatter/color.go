package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// PhaseColor returns the style used for the clock face in each phase.
func PhaseColor(phase domain.TimerPhase) lipgloss.Style {
	switch phase {
	case domain.PhaseRunning:
		return StyleGreen
	case domain.PhasePaused:
		return StyleYellow
	default:
		return StyleDim
	}
}

// PhaseIndicator returns a colored phase label such as "● RUNNING".
func PhaseIndicator(phase domain.TimerPhase) string {
	switch phase {
	case domain.PhaseRunning:
		return StyleGreen.Render("● RUNNING")
	case domain.PhasePaused:
		return StyleYellow.Render("○ PAUSED")
	case domain.PhaseIdle:
		return StyleDim.Render("○ IDLE")
	default:
		return StyleDim.Render("● " + strings.ToUpper(string(phase)))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

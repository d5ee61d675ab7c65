package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha subset used by the panel.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorBase     lipgloss.Color = "#1e1e2e"
)

const (
	colorBrand   = colorPink
	colorFocus   = colorLavender
	colorFlash   = colorYellow
	colorSuccess = colorGreen
	colorError   = colorRed
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	cursorStyle  = lipgloss.NewStyle().Foreground(colorFocus)
	flashStyle   = lipgloss.NewStyle().Background(colorFlash).Foreground(colorBase)
	confirmStyle = lipgloss.NewStyle().Foreground(colorError)
	dimStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	errStyle     = lipgloss.NewStyle().Foreground(colorError)
	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
)

package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

var (
	ListTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(charmtone.Charple.Hex())).
			MarginLeft(2)

	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Malibu.Hex()))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
	Error    = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	Spinner  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex()))

	menuBar = lipgloss.NewStyle().
		Background(lipgloss.Color(charmtone.Charcoal.Hex())).
		Foreground(lipgloss.Color(charmtone.Smoke.Hex())).
		Padding(0, 1)
)

// MenuBar renders the bottom key help line across width columns.
func MenuBar(text string, width int) string {
	return menuBar.Width(width).Render(text)
}

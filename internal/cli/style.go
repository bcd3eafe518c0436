package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#F5F5F5")).
	Background(lipgloss.Color("#2E7D6B")).
	Padding(1, 5).
	MarginBottom(1).
	Align(lipgloss.Center).
	Border(lipgloss.RoundedBorder())

// printHeader renders a banner on w. Commands pass stderr so stdout stays pure JSON.
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

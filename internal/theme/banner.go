package theme

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Banner returns the xsearch banner styled for w's color profile.
func Banner(w io.Writer) string {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#D75FAF"))
	art := r.NewStyle().Foreground(lipgloss.Color("#5FAFD7"))
	rule := r.NewStyle().Foreground(lipgloss.Color("#D7AF00"))

	return "" +
		"  ✦   " + title.Render("XSEARCH") + "   ✦\n" +
		art.Render(" ▀▄▀ █▀ █▀▀ ▄▀█ █▀█ █▀▀ █ █") + "\n" +
		art.Render(" █ █ ▄█ ██▄ █▀█ █▀▄ █▄▄ █▀█") + "\n" +
		rule.Render(" ───────────────────────────") + "\n" +
		"  recent posts, filtered by engagement\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner(w))
}

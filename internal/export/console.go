package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"xsearch/internal/model"
)

const separator = "===================================="

// Console prints one block per record. Styling follows the color profile of
// W, so non-terminal writers receive plain text.
type Console struct {
	W io.Writer
}

func (c Console) Name() string { return "console" }

func (c Console) Export(records []model.EngagementRecord) error {
	r := lipgloss.NewRenderer(c.W)
	name := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFD7"))
	label := r.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	sep := r.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))

	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "#%d %s\n", i+1, name.Render(rec.AuthorName))
		fmt.Fprintf(&b, "%s %s\n", label.Render("ID:"), rec.AuthorID)
		fmt.Fprintf(&b, "%s\n", rec.Text)
		fmt.Fprintf(&b, "%s %d\n", label.Render("Likes:"), rec.LikeCount)
		fmt.Fprintf(&b, "%s %d\n", label.Render("Quotes:"), rec.QuoteCount)
		fmt.Fprintf(&b, "%s %d\n", label.Render("Reposts:"), rec.RetweetCount)
		fmt.Fprintf(&b, "%s\n", rec.CreatedAt.Format(TimestampLayout))
		fmt.Fprintf(&b, "%s\n", sep.Render(separator))
	}
	if _, err := io.WriteString(c.W, b.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	return nil
}

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// List renders a scrolling selection list. It keeps the selected row
// visible inside the viewport.
type List struct {
	Width         int
	Height        int
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	offset        int
}

// NewList creates a list sized to width x height rows.
func NewList(width, height int) List {
	return List{
		Width:  width,
		Height: height,
		SelectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		NormalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
	}
}

// View renders rows with the selection highlighted.
func (l *List) View(rows []string, selected int) string {
	if len(rows) == 0 {
		return l.NormalStyle.Render("(empty)")
	}

	height := l.Height
	if height < 1 {
		height = 1
	}
	// Scroll the viewport to keep the selection visible.
	if selected < l.offset {
		l.offset = selected
	}
	if selected >= l.offset+height {
		l.offset = selected - height + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}

	end := l.offset + height
	if end > len(rows) {
		end = len(rows)
	}

	var sb strings.Builder
	for i := l.offset; i < end; i++ {
		row := truncate(rows[i], l.Width-2)
		if i == selected {
			sb.WriteString(l.SelectedStyle.Render("> " + row))
		} else {
			sb.WriteString(l.NormalStyle.Render("  " + row))
		}
		if i != end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/ui/components"
)

// SearchView renders the query box and the result list.
type SearchView struct {
	Width  int
	Height int
	List   components.List

	HeaderStyle lipgloss.Style
	QueryStyle  lipgloss.Style
	StatusStyle lipgloss.Style
}

func NewSearchView(width, height int) SearchView {
	return SearchView{
		Width:  width,
		Height: height,
		List:   components.NewList(width, height-5),
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		QueryStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
	}
}

func (v *SearchView) SetSize(width, height int) {
	v.Width = width
	v.Height = height
	v.List.Width = width
	v.List.Height = height - 5
}

func (v *SearchView) View(s api.SearchSnapshot) string {
	var sb strings.Builder
	sb.WriteString(v.HeaderStyle.Render("Search"))
	sb.WriteString("\n")
	sb.WriteString(v.QueryStyle.Render(s.Query + "▏"))
	sb.WriteString("\n")

	if s.Status != "" {
		sb.WriteString(v.StatusStyle.Render(s.Status))
		sb.WriteString("\n")
	}

	rows := make([]string, 0, len(s.Results))
	for _, song := range s.Results {
		rows = append(rows, fmt.Sprintf("%s — %s", song.Name, song.Artists))
	}
	sb.WriteString(v.List.View(rows, s.Selected))
	return sb.String()
}

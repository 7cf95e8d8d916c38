package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/ui/components"
)

// PlayerBar is the always-visible playback status line at the bottom
// of the screen.
type PlayerBar struct {
	Width       int
	ProgressBar components.ProgressBar

	TitleStyle  lipgloss.Style
	ArtistStyle lipgloss.Style
	StatusStyle lipgloss.Style
	DimStyle    lipgloss.Style
}

// NewPlayerBar creates the status bar.
func NewPlayerBar(width int) PlayerBar {
	return PlayerBar{
		Width:       width,
		ProgressBar: components.NewProgressBar(width - 4),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		DimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetWidth resizes the bar.
func (v *PlayerBar) SetWidth(width int) {
	v.Width = width
	v.ProgressBar.Width = width - 4
}

// View renders the bar from the player snapshot.
func (v *PlayerBar) View(p api.PlayerSnapshot) string {
	var sb strings.Builder

	if p.SongID == 0 {
		sb.WriteString(v.DimStyle.Render("♪ nothing playing"))
		return sb.String()
	}

	icon := "⏹"
	if p.Playing {
		if p.Paused {
			icon = "⏸"
		} else {
			icon = "▶"
		}
	}
	sb.WriteString(v.StatusStyle.Render(icon + " "))
	sb.WriteString(v.TitleStyle.Render(p.Title))
	sb.WriteString(" ")
	sb.WriteString(v.ArtistStyle.Render(p.Artists))
	if p.QueueLen > 0 && p.QueuePos >= 0 {
		sb.WriteString(v.DimStyle.Render(fmt.Sprintf("  [%d/%d %s]", p.QueuePos+1, p.QueueLen, p.Mode)))
	}
	sb.WriteString("\n")

	v.ProgressBar.SetProgress(p.ElapsedMs, p.TotalMs)
	sb.WriteString(v.ProgressBar.View())
	sb.WriteString(v.DimStyle.Render(fmt.Sprintf("  vol %d%%", int(p.Volume*100))))
	return sb.String()
}

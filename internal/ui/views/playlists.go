package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/ui/components"
)

// PlaylistsView shows the playlist index on the left-hand flow: the
// stub list, then the opened playlist's tracks.
type PlaylistsView struct {
	Width  int
	Height int
	List   components.List

	HeaderStyle lipgloss.Style
	StatusStyle lipgloss.Style
	DimStyle    lipgloss.Style
}

func NewPlaylistsView(width, height int) PlaylistsView {
	return PlaylistsView{
		Width:  width,
		Height: height,
		List:   components.NewList(width, height-4),
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		DimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

func (v *PlaylistsView) SetSize(width, height int) {
	v.Width = width
	v.Height = height
	v.List.Width = width
	v.List.Height = height - 4
}

func (v *PlaylistsView) View(pl api.PlaylistsSnapshot) string {
	var sb strings.Builder

	if pl.OpenID != 0 {
		return v.tracksView(pl)
	}

	sb.WriteString(v.HeaderStyle.Render("Playlists"))
	sb.WriteString("\n")

	rows := make([]string, 0, len(pl.Playlists))
	for _, p := range pl.Playlists {
		mark := " "
		if p.Songs != nil {
			mark = "●" // preloaded
		}
		rows = append(rows, fmt.Sprintf("%s %s (%d)", mark, p.Name, p.TrackCount))
	}
	sb.WriteString(v.List.View(rows, pl.Selected))

	if pl.Status != "" || pl.PreloadStatus != "" {
		sb.WriteString("\n")
		sb.WriteString(v.StatusStyle.Render(pl.Status))
		if pl.PreloadStatus != "" {
			sb.WriteString(v.DimStyle.Render("  " + pl.PreloadStatus))
		}
	}
	return sb.String()
}

func (v *PlaylistsView) tracksView(pl api.PlaylistsSnapshot) string {
	var sb strings.Builder
	sb.WriteString(v.HeaderStyle.Render("Tracks"))
	sb.WriteString("\n")

	if pl.Tracks == nil {
		if pl.TotalTracks > 0 {
			sb.WriteString(v.StatusStyle.Render(
				fmt.Sprintf("loading %d/%d...", pl.LoadedTracks, pl.TotalTracks)))
		} else {
			sb.WriteString(v.StatusStyle.Render("loading..."))
		}
		return sb.String()
	}

	rows := make([]string, 0, len(pl.Tracks))
	for _, s := range pl.Tracks {
		rows = append(rows, fmt.Sprintf("%s — %s", s.Name, s.Artists))
	}
	sb.WriteString(v.List.View(rows, pl.TracksSel))
	return sb.String()
}

package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
)

// LyricsView scrolls timed lyric lines with the current one
// highlighted.
type LyricsView struct {
	Width  int
	Height int

	CurrentStyle lipgloss.Style
	LineStyle    lipgloss.Style
	TransStyle   lipgloss.Style
	DimStyle     lipgloss.Style
}

func NewLyricsView(width, height int) LyricsView {
	return LyricsView{
		Width:  width,
		Height: height,
		CurrentStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		LineStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		TransStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		DimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

func (v *LyricsView) SetSize(width, height int) {
	v.Width = width
	v.Height = height
}

func (v LyricsView) View(l api.LyricsSnapshot) string {
	if len(l.Lines) == 0 {
		return v.DimStyle.Render("no lyrics")
	}

	center := l.Scroll
	if l.Follow && l.Current >= 0 {
		center = l.Current
	}

	height := v.Height
	if height < 3 {
		height = 3
	}
	start := center - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > len(l.Lines) {
		end = len(l.Lines)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := l.Lines[i]
		text := line.Text
		if text == "" {
			text = "·"
		}
		if i == l.Current {
			sb.WriteString(v.CurrentStyle.Render("♪ " + text))
		} else {
			sb.WriteString(v.LineStyle.Render("  " + text))
		}
		if line.Translation != "" {
			sb.WriteString("\n")
			sb.WriteString(v.TransStyle.Render("  " + line.Translation))
		}
		if i != end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders playback position as a filled bar with times.
type ProgressBar struct {
	Width       int
	ElapsedMs   int64
	TotalMs     int64
	BarChar     string
	EmptyChar   string
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a progress bar of the given width.
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress sets the current position.
func (p *ProgressBar) SetProgress(elapsedMs, totalMs int64) {
	p.ElapsedMs = elapsedMs
	p.TotalMs = totalMs
}

// View renders the bar.
func (p ProgressBar) View() string {
	var percent float64
	if p.TotalMs > 0 {
		percent = float64(p.ElapsedMs) / float64(p.TotalMs)
	}
	if percent > 1 {
		percent = 1
	}

	barWidth := p.Width - 14 // leave room for the time display
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	var sb strings.Builder
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, empty)))
	sb.WriteString(" ")
	sb.WriteString(formatMs(p.ElapsedMs))
	sb.WriteString("/")
	sb.WriteString(formatMs(p.TotalMs))
	return sb.String()
}

// formatMs formats milliseconds as MM:SS.
func formatMs(ms int64) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}

package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
)

// LoginView renders the login screen: status line, QR code or cookie
// entry field.
type LoginView struct {
	Width  int
	Height int

	HeaderStyle lipgloss.Style
	StatusStyle lipgloss.Style
	InputStyle  lipgloss.Style
}

func NewLoginView(width, height int) LoginView {
	return LoginView{
		Width:  width,
		Height: height,
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		InputStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
	}
}

func (v LoginView) View(login api.LoginSnapshot) string {
	var sb strings.Builder

	if login.LoggedIn {
		sb.WriteString(v.HeaderStyle.Render("Logged in"))
		if login.Nickname != "" {
			sb.WriteString("\n")
			sb.WriteString("Welcome, " + login.Nickname)
		}
		return sb.String()
	}

	sb.WriteString(v.HeaderStyle.Render("Login"))
	sb.WriteString("\n")
	sb.WriteString(v.StatusStyle.Render(login.Status))
	sb.WriteString("\n\n")

	if login.CookieInputVisible {
		masked := strings.Repeat("*", len(login.CookieInput))
		sb.WriteString(v.InputStyle.Render("MUSIC_U: " + masked + "▏"))
		return sb.String()
	}

	if login.QrASCII != "" {
		sb.WriteString(login.QrASCII)
	}
	return sb.String()
}

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xlfish233/netease-tui/api"
	"github.com/xlfish233/netease-tui/internal/ui/views"
)

// toastDuration is how long a toast stays on screen.
const toastDuration = 3 * time.Second

// Model is the main bubbletea model. It renders snapshots produced by
// the reducer and translates key presses into commands; it owns no
// application state of its own.
type Model struct {
	width  int
	height int

	snapshot *api.Snapshot
	toast    string
	toastAt  time.Time
	errText  string

	loginView     views.LoginView
	playlistsView views.PlaylistsView
	searchView    views.SearchView
	lyricsView    views.LyricsView
	playerBar     views.PlayerBar

	cmds   chan<- api.Command
	events <-chan api.AppEvent

	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
	toastStyle     lipgloss.Style
	errStyle       lipgloss.Style
}

// appEventMsg wraps one reducer event for bubbletea.
type appEventMsg api.AppEvent

// tickMsg redraws the clockwork parts (progress bar, toast expiry).
type tickMsg time.Time

// NewModel wires the model to the reducer's channels.
func NewModel(cmds chan<- api.Command, events <-chan api.AppEvent) Model {
	m := Model{
		width:  80,
		height: 24,
		cmds:   cmds,
		events: events,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		toastStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
	m.loginView = views.NewLoginView(m.width, m.height-6)
	m.playlistsView = views.NewPlaylistsView(m.width, m.height-6)
	m.searchView = views.NewSearchView(m.width, m.height-6)
	m.lyricsView = views.NewLyricsView(m.width, m.height-6)
	m.playerBar = views.NewPlayerBar(m.width)
	return m
}

// Init starts the event listener and the redraw tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen waits for the next reducer event.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return appEventMsg(api.AppEvent{Type: api.AppEvtQuit})
		}
		return appEventMsg(evt)
	}
}

// send forwards a command to the reducer without ever blocking the UI.
func (m Model) send(cmd api.Command) {
	select {
	case m.cmds <- cmd:
	default:
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistsView.SetSize(msg.Width, msg.Height-6)
		m.searchView.SetSize(msg.Width, msg.Height-6)
		m.lyricsView.SetSize(msg.Width, msg.Height-6)
		m.playerBar.SetWidth(msg.Width)

	case tickMsg:
		if m.toast != "" && time.Since(m.toastAt) > toastDuration {
			m.toast = ""
			m.errText = ""
		}
		return m, tick()

	case appEventMsg:
		switch api.AppEvent(msg).Type {
		case api.AppEvtState:
			m.snapshot = msg.State
		case api.AppEvtToast:
			m.toast = msg.Message
			m.toastAt = time.Now()
		case api.AppEvtError:
			m.errText = msg.Message
			m.toastAt = time.Now()
		case api.AppEvtQuit:
			return m, tea.Quit
		}
		return m, m.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey maps key presses to reducer commands, honouring the text
// entry modes.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.send(api.Command{Type: api.CmdQuit})
		return m, nil
	}
	if m.snapshot == nil {
		return m, nil
	}

	if m.snapshot.View == api.ViewLogin && m.snapshot.Login.CookieInputVisible {
		return m.handleCookieEntry(msg)
	}
	if m.snapshot.View == api.ViewSearch {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q":
		m.send(api.Command{Type: api.CmdQuit})
	case "tab":
		m.send(api.Command{Type: api.CmdTabNext})
	case "esc":
		m.send(api.Command{Type: api.CmdBack})

	case "l":
		if m.snapshot.View == api.ViewLogin {
			m.send(api.Command{Type: api.CmdLoginGenerateQr})
		}
	case "c":
		if m.snapshot.View == api.ViewLogin {
			m.send(api.Command{Type: api.CmdLoginToggleCookieInput})
		} else {
			m.send(api.Command{Type: api.CmdPlayerClearCache})
		}
	case "L":
		m.send(api.Command{Type: api.CmdLogout})

	case "up", "k":
		m.moveUp()
	case "down", "j":
		m.moveDown()
	case "enter":
		m.enter()

	case " ":
		m.send(api.Command{Type: api.CmdPlayerTogglePause})
	case "s":
		m.send(api.Command{Type: api.CmdPlayerStop})
	case "n":
		m.send(api.Command{Type: api.CmdPlayerNext})
	case "p":
		m.send(api.Command{Type: api.CmdPlayerPrev})
	case "right":
		m.send(api.Command{Type: api.CmdPlayerSeek, DeltaMs: 5000})
	case "left":
		m.send(api.Command{Type: api.CmdPlayerSeek, DeltaMs: -5000})
	case "+", "=":
		m.send(api.Command{Type: api.CmdPlayerVolume, Delta: 0.05})
	case "-":
		m.send(api.Command{Type: api.CmdPlayerVolume, Delta: -0.05})
	case "m":
		m.send(api.Command{Type: api.CmdPlayerCycleMode})
	case "b":
		m.send(api.Command{Type: api.CmdSettingsCycleBr})
	case "F":
		m.send(api.Command{Type: api.CmdSettingsCrossfade, DeltaMs: 100})
	case "f":
		if m.snapshot.View == api.ViewLyrics {
			m.send(api.Command{Type: api.CmdLyricsToggleFollow})
		} else {
			m.send(api.Command{Type: api.CmdSettingsCrossfade, DeltaMs: -100})
		}
	case "g":
		m.send(api.Command{Type: api.CmdLyricsGotoCurrent})
	case "[":
		m.send(api.Command{Type: api.CmdLyricOffset, DeltaMs: -500})
	case "]":
		m.send(api.Command{Type: api.CmdLyricOffset, DeltaMs: 500})
	}
	return m, nil
}

func (m Model) handleCookieEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.send(api.Command{Type: api.CmdLoginSubmitCookie})
	case tea.KeyEscape:
		m.send(api.Command{Type: api.CmdLoginToggleCookieInput})
	case tea.KeyBackspace:
		m.send(api.Command{Type: api.CmdLoginCookieInputBackspace})
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.send(api.Command{Type: api.CmdLoginCookieInputChar, Char: r})
		}
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.send(api.Command{Type: api.CmdQuit})
	case tea.KeyTab:
		m.send(api.Command{Type: api.CmdTabNext})
	case tea.KeyEnter:
		if len(m.snapshot.Search.Results) > 0 {
			m.send(api.Command{Type: api.CmdSearchPlaySelected})
		} else {
			m.send(api.Command{Type: api.CmdSearchSubmit})
		}
	case tea.KeyUp:
		m.send(api.Command{Type: api.CmdSearchMoveUp})
	case tea.KeyDown:
		m.send(api.Command{Type: api.CmdSearchMoveDown})
	case tea.KeyBackspace:
		m.send(api.Command{Type: api.CmdSearchInputBackspace})
	case tea.KeySpace:
		m.send(api.Command{Type: api.CmdSearchInputChar, Char: ' '})
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.send(api.Command{Type: api.CmdSearchInputChar, Char: r})
		}
	}
	return m, nil
}

func (m Model) moveUp() {
	switch m.snapshot.View {
	case api.ViewPlaylists:
		if m.snapshot.Playlists.OpenID != 0 {
			m.send(api.Command{Type: api.CmdPlaylistTracksMoveUp})
		} else {
			m.send(api.Command{Type: api.CmdPlaylistsMoveUp})
		}
	case api.ViewLyrics:
		m.send(api.Command{Type: api.CmdLyricsMoveUp})
	}
}

func (m Model) moveDown() {
	switch m.snapshot.View {
	case api.ViewPlaylists:
		if m.snapshot.Playlists.OpenID != 0 {
			m.send(api.Command{Type: api.CmdPlaylistTracksMoveDown})
		} else {
			m.send(api.Command{Type: api.CmdPlaylistsMoveDown})
		}
	case api.ViewLyrics:
		m.send(api.Command{Type: api.CmdLyricsMoveDown})
	}
}

func (m Model) enter() {
	switch m.snapshot.View {
	case api.ViewPlaylists:
		if m.snapshot.Playlists.OpenID != 0 {
			m.send(api.Command{Type: api.CmdPlaylistTracksPlaySelected, Index: -1})
		} else {
			m.send(api.Command{Type: api.CmdPlaylistSelect, Index: -1})
		}
	}
}

// View renders the active screen, the tab bar, and the player bar.
func (m Model) View() string {
	if m.snapshot == nil {
		return "starting..."
	}

	var body string
	switch m.snapshot.View {
	case api.ViewLogin:
		body = m.loginView.View(m.snapshot.Login)
	case api.ViewPlaylists:
		body = m.playlistsView.View(m.snapshot.Playlists)
	case api.ViewSearch:
		body = m.searchView.View(m.snapshot.Search)
	case api.ViewLyrics:
		body = m.lyricsView.View(m.snapshot.Lyrics)
	}

	tabs := m.renderTabs()
	bar := m.playerBar.View(m.snapshot.Player)

	notice := ""
	if m.errText != "" {
		notice = m.errStyle.Render(m.errText)
	} else if m.toast != "" {
		notice = m.toastStyle.Render(m.toast)
	}

	bodyHeight := m.height - lipgloss.Height(tabs) - lipgloss.Height(bar) - 2
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	out := tabs + "\n" + body + "\n" + bar
	if notice != "" {
		out += "\n" + notice
	}
	return out
}

func (m Model) renderTabs() string {
	names := []string{"Login", "Playlists", "Search", "Lyrics"}
	var rendered []string
	for i, name := range names {
		if api.View(i) == m.snapshot.View {
			rendered = append(rendered, m.activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, m.tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the UI program and blocks until quit.
func Run(cmds chan<- api.Command, events <-chan api.AppEvent) error {
	p := tea.NewProgram(NewModel(cmds, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/remoterelay/internal/client"
)

// Messages for async operations
type stateMsg client.State
type streamErrMsg struct{ err error }
type streamClosedMsg struct{}
type channelMsg struct {
	channel int
	state   *client.ChannelState
	err     error
}

// WatchSource is what a WatchModel displays and acts on.
type WatchSource struct {
	Title    string
	States   <-chan client.State
	Errs     <-chan error
	Channels int

	// Label names a channel; nil means "channel N".
	Label func(channel int) string

	// Fetch and Set reach the channel API. Either may be nil.
	Fetch func(channel int) (*client.ChannelState, error)
	Set   func(channel int, on bool) (*client.ChannelState, error)
}

type watchKeyMap struct {
	Toggle  key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Refresh},
		{k.Help, k.Quit},
	}
}

// WatchModel follows the /events stream of one controller and lets the
// user switch its relays.
type WatchModel struct {
	src WatchSource

	state      *client.State
	updates    int
	lastUpdate time.Time
	channels   map[int]bool
	err        error
	closed     bool

	Spinner spinner.Model
	Help    help.Model
	keys    watchKeyMap
	Width   int

	now func() time.Time
}

// NewWatchModel creates a model reading from src.
func NewWatchModel(src WatchSource) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	digits := make([]string, 0, src.Channels)
	for ch := 1; ch <= src.Channels; ch++ {
		digits = append(digits, strconv.Itoa(ch))
	}
	toggleHelp := "1"
	if src.Channels > 1 {
		toggleHelp = "1-" + strconv.Itoa(src.Channels)
	}

	keys := watchKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(digits...),
			key.WithHelp(toggleHelp, "toggle relay"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh relays"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
	if src.Set == nil || src.Channels == 0 {
		keys.Toggle.SetEnabled(false)
	}
	if src.Fetch == nil {
		keys.Refresh.SetEnabled(false)
	}

	return WatchModel{
		src:      src,
		channels: make(map[int]bool),
		Spinner:  s,
		Help:     help.New(),
		keys:     keys,
		Width:    GetTerminalWidth(),
		now:      time.Now,
	}
}

// Init starts the spinner, the stream reader and the first relay fetch.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForState(m.src.States, m.src.Errs), m.fetchChannels())
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Help.Width = m.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.Help.ShowAll = !m.Help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetchChannels()
		case key.Matches(msg, m.keys.Toggle):
			ch, err := strconv.Atoi(msg.String())
			if err != nil || ch < 1 || ch > m.src.Channels {
				return m, nil
			}
			return m, setChannel(m.src.Set, ch, !m.channels[ch])
		}
		return m, nil

	case stateMsg:
		s := client.State(msg)
		m.state = &s
		m.updates++
		m.lastUpdate = m.now()
		return m, waitForState(m.src.States, m.src.Errs)

	case streamErrMsg:
		m.err = msg.err
		m.closed = true
		return m, nil

	case streamClosedMsg:
		m.closed = true
		return m, nil

	case channelMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.channels[msg.channel] = msg.state.On()
		return m, nil

	case spinner.TickMsg:
		if m.state != nil || m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the model
func (m WatchModel) View() string {
	var b strings.Builder

	title := m.src.Title
	if title == "" {
		title = "relay controller"
	}
	b.WriteString(HeaderTitleStyle.Render(strings.ToUpper(title)))
	b.WriteString("\n\n")

	switch {
	case m.state == nil && !m.closed:
		b.WriteString("  " + m.Spinner.View() + " Waiting for controller state...\n")
	case m.state != nil:
		b.WriteString(RenderState(m.state))
		b.WriteString("\n")
		b.WriteString(HintStyle.Render(fmt.Sprintf("  %d updates, last at %s", m.updates, m.lastUpdate.Format("15:04:05"))))
		b.WriteString("\n")
	}

	if m.src.Channels > 0 {
		b.WriteString("\n")
		for ch := 1; ch <= m.src.Channels; ch++ {
			b.WriteString("  " + RenderChannel(m.label(ch), m.channels[ch]) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n" + ErrorMessageStyle.Render("  "+FailureMarker+" "+client.GetShortErrorMessage(m.err)) + "\n")
	}
	if m.closed {
		b.WriteString("\n" + HintStyle.Render("  Event stream closed. The controller may be restarting.") + "\n")
	}

	b.WriteString("\n" + m.Help.View(m.keys))
	return b.String()
}

func (m WatchModel) label(ch int) string {
	if m.src.Label != nil {
		return m.src.Label(ch)
	}
	return fmt.Sprintf("channel %d", ch)
}

func (m WatchModel) fetchChannels() tea.Cmd {
	if m.src.Fetch == nil {
		return nil
	}
	cmds := make([]tea.Cmd, 0, m.src.Channels)
	for ch := 1; ch <= m.src.Channels; ch++ {
		ch := ch
		cmds = append(cmds, func() tea.Msg {
			s, err := m.src.Fetch(ch)
			return channelMsg{channel: ch, state: s, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func setChannel(set func(int, bool) (*client.ChannelState, error), ch int, on bool) tea.Cmd {
	return func() tea.Msg {
		s, err := set(ch, on)
		return channelMsg{channel: ch, state: s, err: err}
	}
}

// waitForState blocks for the next snapshot. When the stream ends it
// reports the stream error, if any.
func waitForState(states <-chan client.State, errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if ok {
			return stateMsg(s)
		}
		select {
		case err := <-errs:
			return streamErrMsg{err: err}
		default:
			return streamClosedMsg{}
		}
	}
}

// RunWatch runs the watch screen until the user quits.
func RunWatch(src WatchSource) error {
	_, err := tea.NewProgram(NewWatchModel(src), tea.WithAltScreen()).Run()
	return err
}

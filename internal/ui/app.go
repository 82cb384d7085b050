package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/roomtalk/internal/session"
	"github.com/BioHazard786/roomtalk/internal/transport"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	toastLifetime    = 4 * time.Second
	maxToasts        = 3
	sidebarMinWidth  = 70
	chromeHeight     = 9
	defaultWidth     = 80
	defaultHeight    = 24
	maxMessageLength = 2000
)

// Chat is the session surface the chat screen drives.
type Chat interface {
	Snapshot() session.View
	Updates() <-chan struct{}
	RequestCreateRoom() error
	RequestJoin(roomID, displayName string) error
	SendChat(text string) error
	CopyRoomCode() error
	Leave()
}

type (
	updateMsg       struct{}
	updatesClosed   struct{}
	toastMsg        Toast
	toastExpiredMsg struct{ id int }
	reconnectedMsg  struct{ err error }
)

type shownToast struct {
	id int
	Toast
}

type focusField int

const (
	focusName focusField = iota
	focusCode
)

// ChatModel is the Bubble Tea model for the chat screen
type ChatModel struct {
	chat      Chat
	toasts    <-chan Toast
	reconnect func() error

	view session.View

	nameInput textinput.Model
	codeInput textinput.Model
	compose   textinput.Model
	focus     focusField
	history   viewport.Model
	spinner   spinner.Model

	shown     []shownToast
	nextToast int

	width  int
	height int

	stats     SessionSummary
	roomMsgs  int
	startTime time.Time
	quitting  bool
}

// ChatOptions configures a ChatModel.
type ChatOptions struct {
	Chat   Chat
	Toasts <-chan Toast

	// Reconnect replaces the connection, both when the user leaves a room
	// and when they ask to redial a dead one. It runs off the UI goroutine.
	// Without it, leaving only drops the room locally.
	Reconnect func() error

	// Name and Room prefill the join form.
	Name string
	Room string
}

// NewChatModel creates the model in the pre-session screen
func NewChatModel(opts ChatOptions) *ChatModel {
	name := textinput.New()
	name.Placeholder = "Your name"
	name.Prompt = IconPeer + " "
	name.CharLimit = 32
	name.SetValue(opts.Name)
	name.Focus()

	code := textinput.New()
	code.Placeholder = "Room code"
	code.Prompt = IconRoom + " "
	code.CharLimit = 64
	code.SetValue(opts.Room)

	compose := textinput.New()
	compose.Placeholder = "Type a message..."
	compose.Prompt = IconChat + " "
	compose.CharLimit = maxMessageLength

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := &ChatModel{
		chat:      opts.Chat,
		toasts:    opts.Toasts,
		reconnect: opts.Reconnect,
		nameInput: name,
		codeInput: code,
		compose:   compose,
		spinner:   s,
		history:   viewport.New(defaultWidth, defaultHeight-chromeHeight),
		width:     defaultWidth,
		height:    defaultHeight,
		startTime: time.Now(),
	}
	m.view = opts.Chat.Snapshot()
	return m
}

// Summary reports what the session amounted to so far
func (m *ChatModel) Summary() SessionSummary {
	s := m.stats
	s.Messages += m.roomMsgs
	s.Duration = time.Since(m.startTime)
	return s
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.waitForUpdate(),
		m.waitForToast(),
	)
}

func (m *ChatModel) waitForUpdate() tea.Cmd {
	updates := m.chat.Updates()
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return updatesClosed{}
		}
		return updateMsg{}
	}
}

func (m *ChatModel) waitForToast() tea.Cmd {
	if m.toasts == nil {
		return nil
	}
	toasts := m.toasts
	return func() tea.Msg {
		t, ok := <-toasts
		if !ok {
			return nil
		}
		return toastMsg(t)
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case updateMsg:
		m.refresh()
		cmds = append(cmds, m.waitForUpdate())

	case updatesClosed:
		m.refresh()

	case toastMsg:
		cmds = append(cmds, m.showToast(Toast(msg)), m.waitForToast())

	case toastExpiredMsg:
		for i, t := range m.shown {
			if t.id == msg.id {
				m.shown = append(m.shown[:i], m.shown[i+1:]...)
				break
			}
		}

	case reconnectedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.showToast(Toast{Kind: session.KindError, Message: fmt.Sprintf("Reconnect failed: %v", msg.err)}))
		}
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.updateInputs(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit
	case "ctrl+y":
		if err := m.chat.CopyRoomCode(); errors.Is(err, session.ErrNoRoomCode) {
			return m.showToast(Toast{Kind: session.KindError, Message: "No room code to copy yet"})
		}
		return nil
	}

	switch m.view.Session.Phase {
	case session.PhasePreSession:
		return m.handlePreSessionKey(msg)
	case session.PhaseInRoom:
		return m.handleRoomKey(msg)
	}
	return nil
}

func (m *ChatModel) handlePreSessionKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.toggleFocus()
		return nil
	case "ctrl+n":
		return m.requestFailed(m.chat.RequestCreateRoom())
	case "enter":
		return m.requestFailed(m.chat.RequestJoin(m.codeInput.Value(), m.nameInput.Value()))
	case "ctrl+r":
		if m.view.Connection != transport.StateOpen {
			return m.redial()
		}
		return nil
	}
	return m.updateInputs(msg)
}

func (m *ChatModel) handleRoomKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		text := m.compose.Value()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		// The typed text stays put when the send fails.
		if err := m.chat.SendChat(text); err == nil {
			m.compose.Reset()
		}
		return nil
	case "ctrl+l":
		return m.leave()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return cmd
	}
	return m.updateInputs(msg)
}

// requestFailed toasts phase errors. Transport failures are already
// notified by the session.
func (m *ChatModel) requestFailed(err error) tea.Cmd {
	if errors.Is(err, session.ErrInvalidPhase) || errors.Is(err, session.ErrRequestPending) {
		return m.showToast(Toast{Kind: session.KindError, Message: err.Error()})
	}
	return nil
}

func (m *ChatModel) leave() tea.Cmd {
	if m.reconnect == nil {
		m.chat.Leave()
		return nil
	}
	return m.redial()
}

func (m *ChatModel) redial() tea.Cmd {
	if m.reconnect == nil {
		return nil
	}
	reconnect := m.reconnect
	return func() tea.Msg {
		return reconnectedMsg{err: reconnect()}
	}
}

func (m *ChatModel) toggleFocus() {
	if m.focus == focusName {
		m.focus = focusCode
		m.nameInput.Blur()
		m.codeInput.Focus()
		return
	}
	m.focus = focusName
	m.codeInput.Blur()
	m.nameInput.Focus()
}

func (m *ChatModel) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch m.view.Session.Phase {
	case session.PhasePreSession:
		m.nameInput, cmd = m.nameInput.Update(msg)
		cmds = append(cmds, cmd)
		m.codeInput, cmd = m.codeInput.Update(msg)
		cmds = append(cmds, cmd)
	case session.PhaseInRoom:
		m.compose, cmd = m.compose.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *ChatModel) showToast(t Toast) tea.Cmd {
	m.nextToast++
	id := m.nextToast
	m.shown = append(m.shown, shownToast{id: id, Toast: t})
	if len(m.shown) > maxToasts {
		m.shown = m.shown[len(m.shown)-maxToasts:]
	}
	return tea.Tick(toastLifetime, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// refresh pulls a fresh snapshot from the session and keeps the inputs and
// the statistics in step with it.
func (m *ChatModel) refresh() {
	prev := m.view
	m.view = m.chat.Snapshot()
	v := m.view

	if v.CreatedRoom != "" && v.CreatedRoom != prev.CreatedRoom {
		m.codeInput.SetValue(v.CreatedRoom)
	}

	entered := v.Session.Phase == session.PhaseInRoom &&
		(prev.Session.Phase != session.PhaseInRoom || prev.Session.Room != v.Session.Room)
	left := prev.Session.Phase == session.PhaseInRoom && v.Session.Phase != session.PhaseInRoom

	if entered || left {
		m.stats.Messages += m.roomMsgs
		m.roomMsgs = 0
	}
	if entered {
		m.stats.Rooms++
		m.stats.Room = v.Session.Room
		m.stats.Name = v.Session.DisplayName
		m.nameInput.Blur()
		m.codeInput.Blur()
		m.compose.Focus()
	}
	if left {
		m.compose.Blur()
		m.focus = focusName
		m.nameInput.Focus()
	}

	if v.Session.Phase == session.PhaseInRoom {
		m.roomMsgs = len(v.Messages)
		m.stats.PeakMembers = max(m.stats.PeakMembers, v.MemberCount)
		m.history.SetContent(m.renderMessages())
		m.history.GotoBottom()
	}
}

func (m *ChatModel) layout() {
	w := m.width
	if m.width >= sidebarMinWidth {
		w = m.width - m.sidebarWidth()
	}
	m.history.Width = max(w-4, 10)
	m.history.Height = max(m.height-chromeHeight, 3)
	m.compose.Width = max(w-10, 10)
	if m.view.Session.Phase == session.PhaseInRoom {
		m.history.SetContent(m.renderMessages())
	}
}

func (m *ChatModel) sidebarWidth() int {
	return 30
}

func (m *ChatModel) renderMessages() string {
	msgs := m.view.Messages
	if len(msgs) == 0 {
		return MutedStyle.Render("No messages yet. Say hi!")
	}

	width := m.history.Width
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Mine {
			lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, MineStyle.Render(msg.Text)))
			continue
		}
		lines = append(lines, SenderStyle.Render(msg.Sender)+"\n"+TheirsStyle.Render(msg.Text))
	}
	return strings.Join(lines, "\n")
}

func (m *ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.view.Session.Phase {
	case session.PhasePreSession:
		body = m.preSessionView()
	case session.PhaseAwaitingRoomCreated:
		body = fmt.Sprintf("%s Creating room...", m.spinner.View())
	case session.PhaseAwaitingJoinResult:
		body = fmt.Sprintf("%s Joining %s...", m.spinner.View(), BoldStyle.Render(m.view.PendingRoom))
	case session.PhaseInRoom:
		body = m.roomView()
	}

	var b strings.Builder
	b.WriteString(body)
	if toasts := m.toastView(); toasts != "" {
		b.WriteString("\n\n" + toasts)
	}
	b.WriteString("\n" + FooterStyle.Render(m.helpLine()))
	return ContainerStyle.Render(b.String())
}

func (m *ChatModel) preSessionView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(IconChat + " RoomTalk"))
	b.WriteString("\n")

	if m.view.Connection != transport.StateOpen {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s Connection %s, press ctrl+r to reconnect", IconConnect, m.view.Connection)) + "\n\n")
	}
	if m.view.CreatedRoom != "" {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s Room created: %s", IconSuccess, m.view.CreatedRoom)) + "\n\n")
	}

	nameBox, codeBox := InputBoxStyle, InputBoxStyle
	if m.focus == focusName {
		nameBox = FocusedInputBoxStyle
	} else {
		codeBox = FocusedInputBoxStyle
	}
	b.WriteString(nameBox.Render(m.nameInput.View()) + "\n")
	b.WriteString(codeBox.Render(m.codeInput.View()))
	return b.String()
}

func (m *ChatModel) roomView() string {
	v := m.view
	header := HeaderStyle.Render(fmt.Sprintf("%s %s   %s %d online   %s %s",
		IconRoom, v.Session.Room,
		IconPeople, v.MemberCount,
		IconPeer, v.Session.DisplayName,
	))

	chat := lipgloss.JoinVertical(lipgloss.Left,
		m.history.View(),
		FocusedInputBoxStyle.Render(m.compose.View()),
	)
	if m.width >= sidebarMinWidth {
		members := lipgloss.NewStyle().Width(m.sidebarWidth()).PaddingLeft(2).
			Render(NewMemberTable(v.Members, v.Session.DisplayName).View())
		chat = lipgloss.JoinHorizontal(lipgloss.Top, chat, members)
	}
	return header + "\n" + chat
}

func (m *ChatModel) toastView() string {
	if len(m.shown) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.shown))
	for _, t := range m.shown {
		style, icon := InfoToastStyle, IconInfo
		if t.Kind == session.KindError {
			style, icon = ErrorToastStyle, IconError
		}
		lines = append(lines, style.Render(icon+" "+t.Message))
	}
	return strings.Join(lines, "\n")
}

func (m *ChatModel) helpLine() string {
	switch m.view.Session.Phase {
	case session.PhasePreSession:
		if m.view.Connection != transport.StateOpen {
			return "ctrl+r reconnect • esc quit"
		}
		return "tab switch field • enter join • ctrl+n create room • ctrl+y copy code • esc quit"
	case session.PhaseInRoom:
		return "enter send • pgup/pgdown scroll • ctrl+y copy code • ctrl+l leave • esc quit"
	}
	return "esc quit"
}

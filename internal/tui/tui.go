// Package tui provides the interactive chat view built on Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joss/scanchat/internal/analysis"
	"github.com/joss/scanchat/internal/chat"
	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/logging"
	"github.com/joss/scanchat/internal/render"
	"github.com/joss/scanchat/internal/session"
	strutil "github.com/joss/scanchat/internal/strings"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

var nowFunc = time.Now

// viewMode represents the current screen
type viewMode int

const (
	viewChat viewMode = iota
	viewSessions
	viewHelp
)

// Sender runs one chat exchange. *chat.Orchestrator implements it.
type Sender interface {
	Send(ctx context.Context, in chat.Input, chatID string, authenticated bool) (*chat.Outcome, error)
	View(ctx context.Context, chatID string) *analysis.View
}

// SessionSource is the saved chat history. *session.Manager implements it.
type SessionSource interface {
	List(ctx context.Context, authenticated bool) []*domain.ChatSession
	Get(ctx context.Context, chatID string) (*domain.ChatSession, error)
	Delete(ctx context.Context, chatID string, authenticated bool) error
}

// Options configures the chat view.
type Options struct {
	Sender        Sender
	Sessions      SessionSource
	Renderer      *render.Renderer
	ChatID        string
	Authenticated bool
	WorkDir       string
	// Notifier forwards in-flight thread updates from the orchestrator.
	Notifier *Notifier
}

// ThreadMsg carries the thread of a chat while a send is in flight:
// first with the loading placeholder, then with the final reply.
type ThreadMsg struct {
	ChatID   string
	Messages []domain.Message
}

// Notifier bridges chat.Observer callbacks into the running program.
// Updates before the program starts are dropped.
type Notifier struct {
	mu sync.Mutex
	p  *tea.Program
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Observe matches chat.Observer.
func (n *Notifier) Observe(chatID string, thread []domain.Message) {
	n.mu.Lock()
	p := n.p
	n.mu.Unlock()
	if p == nil {
		return
	}
	msgs := make([]domain.Message, len(thread))
	copy(msgs, thread)
	p.Send(ThreadMsg{ChatID: chatID, Messages: msgs})
}

func (n *Notifier) attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.p = p
}

// Message types
type sentMsg struct {
	outcome *chat.Outcome
	err     error
}
type sessionsMsg []*domain.ChatSession
type loadedMsg struct {
	session *domain.ChatSession
	err     error
}
type deletedMsg struct {
	chatID string
	err    error
}

// Model is the chat TUI model
type Model struct {
	ctx  context.Context
	opts Options

	// State
	view        viewMode
	mode        inputMode
	chatID      string
	thread      []domain.Message
	attached    string
	sending     bool
	notice      string
	err         error
	sessions    []*domain.ChatSession
	selectedIdx int
	ready       bool
	quitting    bool

	// Components
	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model
	picker   *FilePicker
	width    int
	height   int
}

// New creates the chat model. A non-empty opts.ChatID resumes that chat.
func New(ctx context.Context, opts Options) Model {
	if opts.Renderer == nil {
		opts.Renderer = render.New(true)
	}
	if opts.WorkDir == "" {
		opts.WorkDir, _ = os.Getwd()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Ask about the analysis, @ to attach a file, /help"
	ti.CharLimit = chat.MaxTextRunes
	ti.Width = 60
	ti.Focus()

	return Model{
		ctx:      ctx,
		opts:     opts,
		view:     viewChat,
		chatID:   opts.ChatID,
		spinner:  s,
		input:    ti,
		viewport: viewport.New(76, 16),
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.chatID != "" {
		cmds = append(cmds, m.loadThread(m.chatID))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch {
		case m.mode == modeFilePicker:
			return m.updateFilePicker(msg)
		case m.view == viewSessions:
			return m.updateSessions(msg)
		case m.view == viewHelp:
			m.view = viewChat
			return m, nil
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case ThreadMsg:
		if msg.ChatID == m.chatID || (m.sending && m.chatID == "") {
			m.thread = msg.Messages
			m.refresh()
		}
		return m, nil

	case sentMsg:
		return m.handleSent(msg), nil

	case sessionsMsg:
		m.sessions = msg
		if m.selectedIdx >= len(m.sessions) {
			m.selectedIdx = max(len(m.sessions)-1, 0)
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.chatID = msg.session.ChatID
		m.thread = msg.session.Messages
		m.attached = ""
		m.view = viewChat
		m.refresh()
		return m, nil

	case deletedMsg:
		var retry *session.RetryableError
		switch {
		case errors.As(msg.err, &retry):
			m.notice = fmt.Sprintf("Removed locally, server delete failed: %v", retry.Err)
		case msg.err != nil:
			m.err = msg.err
		default:
			m.notice = "Deleted " + msg.chatID
		}
		if msg.chatID == m.chatID {
			m.chatID = ""
			m.thread = nil
			m.refresh()
		}
		return m, m.loadSessions()

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		_, cmd := cmdSessions(&m, "")
		return m, cmd

	case "@":
		if m.input.Value() == "" || strings.HasSuffix(m.input.Value(), " ") {
			m.mode = modeFilePicker
			if m.picker == nil {
				m.picker = NewFilePicker(m.opts.WorkDir, max(m.width-4, 20), 12)
			}
			if err := m.picker.LoadFiles(); err != nil {
				m.err = err
				m.mode = modeChat
			}
			return m, nil
		}

	case "enter":
		return m.handleEnterKey()

	case "?":
		if m.input.Value() == "" {
			m.view = viewHelp
			return m, nil
		}

	case "esc":
		m.notice = ""
		m.err = nil
		return m, nil

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEnterKey() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	if isSlashCommand(value) {
		m.input.SetValue("")
		m.notice, m.err = "", nil
		out, cmd := executeSlashCommand(&m, value)
		m.notice = out
		m.refresh()
		return m, cmd
	}

	if m.sending {
		m.notice = "Still waiting for the previous reply"
		return m, nil
	}
	if strings.TrimSpace(value) == "" && m.attached == "" {
		return m, nil
	}

	m.input.SetValue("")
	m.sending = true
	m.notice, m.err = "", nil
	send := sendCmd(m.ctx, m.opts.Sender, value, m.attached, m.chatID, m.opts.Authenticated)
	return m, tea.Batch(m.spinner.Tick, send)
}

// updateFilePicker handles input when in file picker mode
func (m Model) updateFilePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeChat
		return m, nil

	case tea.KeyEnter:
		if path, ok := m.picker.SelectedItem(); ok {
			m.attached = path
		}
		m.mode = modeChat
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.view = viewChat
	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
	case "down", "j":
		if m.selectedIdx < len(m.sessions)-1 {
			m.selectedIdx++
		}
	case "enter":
		if s := m.selected(); s != nil {
			return m, m.loadThread(s.ChatID)
		}
	case "n":
		cmdNew(&m, "")
		m.view = viewChat
		m.refresh()
	case "d":
		if s := m.selected(); s != nil {
			return m, m.deleteSession(s.ChatID)
		}
	}
	return m, nil
}

func (m Model) handleSent(msg sentMsg) Model {
	m.sending = false
	if msg.err != nil {
		m.err = msg.err
		return m
	}
	m.attached = ""
	if msg.outcome.SaveErr != nil {
		m.notice = fmt.Sprintf("Reply not saved to history: %v", msg.outcome.SaveErr)
	}
	if s := msg.outcome.Session; s != nil {
		m.chatID = s.ChatID
		m.thread = s.Messages
	} else {
		m.thread = append(m.thread, msg.outcome.Reply)
	}
	m.refresh()
	return m
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 3
	footerHeight := 6
	vpHeight := max(msg.Height-headerHeight-footerHeight, 3)

	m.viewport.Width = msg.Width - 4
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 6
	m.opts.Renderer.WithWidth(msg.Width - 8)
	if m.picker != nil {
		m.picker.SetSize(msg.Width-4, 12)
	}
	m.ready = true
	m.refresh()
	return m
}

// refresh re-renders the thread into the viewport.
func (m *Model) refresh() {
	if len(m.thread) == 0 {
		m.viewport.SetContent(infoStyle.Render("No messages yet. Attach a file with @ or ask a question."))
		return
	}
	parts := make([]string, 0, len(m.thread))
	for _, msg := range m.thread {
		parts = append(parts, m.opts.Renderer.Message(msg))
	}
	m.viewport.SetContent(strings.Join(parts, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) selected() *domain.ChatSession {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.sessions) {
		return nil
	}
	return m.sessions[m.selectedIdx]
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Loading..."
	}

	switch m.view {
	case viewSessions:
		return m.viewSessions()
	case viewHelp:
		return m.viewHelp()
	default:
		return m.viewChat()
	}
}

func (m Model) viewChat() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🛡 ScanChat") + "\n")

	chatLabel := "new chat"
	if m.chatID != "" {
		chatLabel = m.chatID
	}
	auth := errorStyle.Render("○") + " local only"
	if m.opts.Authenticated {
		auth = activeStyle.Render("●") + " signed in"
	}
	b.WriteString(infoStyle.Render("  "+chatLabel+" │ ") + auth + "\n")

	b.WriteString(boxStyle.Width(m.width-4).Render(m.viewport.View()) + "\n")

	if m.mode == modeFilePicker && m.picker != nil {
		b.WriteString(m.picker.View() + "\n")
	}

	switch {
	case m.sending:
		b.WriteString(fmt.Sprintf("  %s analyzing...\n", m.spinner.View()))
	case m.err != nil:
		b.WriteString("  " + errorStyle.Render(errorText(m.err)) + "\n")
	case m.notice != "":
		b.WriteString(infoStyle.Render(indentLines(m.notice)) + "\n")
	}
	if m.attached != "" {
		b.WriteString(infoStyle.Render("  📎 "+filepath.Base(m.attached)) + "\n")
	}

	b.WriteString("  " + m.input.View())
	b.WriteString(helpStyle.Render("\n  enter: send │ @: attach │ ctrl+s: sessions │ /help │ ctrl+c: quit"))
	return b.String()
}

func (m Model) viewSessions() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📋 Sessions") + "\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(infoStyle.Render("  No sessions yet\n"))
	}

	labels := groupLabels(m.sessions)
	last := ""
	for i, s := range m.sessions {
		if label := labels[s.ChatID]; label != last {
			b.WriteString(groupStyle.Render("  "+label) + "\n")
			last = label
		}

		cursor := "  "
		style := infoStyle
		if i == m.selectedIdx {
			cursor = "▶ "
			style = activeStyle
		}
		line := fmt.Sprintf("%s%-32s %s (%d msgs)",
			cursor,
			strutil.Truncate(s.Title, 30),
			s.LastUpdated.Local().Format("Jan 02 15:04"),
			s.MessageCount,
		)
		b.WriteString("  " + style.Render(line) + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + infoStyle.Render("  "+m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n  " + errorStyle.Render(errorText(m.err)) + "\n")
	}

	b.WriteString(helpStyle.Render("\n  enter: open │ n: new │ d: delete │ j/k: navigate │ esc: back"))
	return b.String()
}

func (m Model) viewHelp() string {
	help, _ := cmdHelp(&m, "")
	return titleStyle.Render("Help") + "\n\n" + infoStyle.Render(indentLines(help)) +
		helpStyle.Render("\n  press any key to return")
}

// groupLabels maps chat ids to their recency heading.
func groupLabels(sessions []*domain.ChatSession) map[string]string {
	g := session.GroupByRecency(sessions, nowFunc())
	labels := make(map[string]string, len(sessions))
	for _, s := range g.Today {
		labels[s.ChatID] = "Today"
	}
	for _, s := range g.Yesterday {
		labels[s.ChatID] = "Yesterday"
	}
	for _, s := range g.Earlier {
		labels[s.ChatID] = "Earlier"
	}
	return labels
}

func errorText(err error) string {
	var verr *chat.ValidationError
	switch {
	case errors.As(err, &verr) && errors.Is(err, chat.ErrTooLong):
		return fmt.Sprintf("Message is too long (max %d characters)", chat.MaxTextRunes)
	case errors.As(err, &verr):
		return "Type a message or attach a file"
	case errors.Is(err, chat.ErrSendInProgress):
		return "Still waiting for the previous reply"
	}
	return "Error: " + err.Error()
}

func indentLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// Commands

func sendCmd(ctx context.Context, sender Sender, text, path, chatID string, authenticated bool) tea.Cmd {
	return func() tea.Msg {
		// A panic in the send path must still end the spinner.
		var out *chat.Outcome
		err := logging.NewRecoveryHandler("tui").WrapError(func() error {
			var err error
			out, err = sendInput(ctx, sender, text, path, chatID, authenticated)
			return err
		})
		return sentMsg{outcome: out, err: err}
	}
}

func sendInput(ctx context.Context, sender Sender, text, path, chatID string, authenticated bool) (*chat.Outcome, error) {
	in := chat.Input{Text: text}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		in.File = &chat.File{Name: filepath.Base(path), Size: info.Size(), Reader: f}
	}
	return sender.Send(ctx, in, chatID, authenticated)
}

func (m Model) loadSessions() tea.Cmd {
	ctx, src, auth := m.ctx, m.opts.Sessions, m.opts.Authenticated
	return func() tea.Msg {
		return sessionsMsg(src.List(ctx, auth))
	}
}

func (m Model) loadThread(chatID string) tea.Cmd {
	ctx, src := m.ctx, m.opts.Sessions
	return func() tea.Msg {
		s, err := src.Get(ctx, chatID)
		return loadedMsg{session: s, err: err}
	}
}

func (m Model) deleteSession(chatID string) tea.Cmd {
	ctx, src, auth := m.ctx, m.opts.Sessions, m.opts.Authenticated
	return func() tea.Msg {
		return deletedMsg{chatID: chatID, err: src.Delete(ctx, chatID, auth)}
	}
}

// Run starts the chat view and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if opts.Notifier != nil {
		opts.Notifier.attach(p)
		defer opts.Notifier.attach(nil)
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

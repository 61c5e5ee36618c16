package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/catalog"
	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/history"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/session"
	"github.com/hohoca/brachyplan/internal/types"
	"github.com/hohoca/brachyplan/internal/viewer"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeInput
	ModeModelPicker
	ModeSubTubes
	ModeConfirm
	ModeAlert
	ModeRecent
	ModeHistory
	ModeHelp
)

// Focus is the pane receiving keys in normal mode
type Focus int

const (
	FocusChannels Focus = iota
	FocusDwell
	FocusParameters
)

// inputKind tells submitInput what the text prompt edits
type inputKind int

const (
	inputField inputKind = iota
	inputParameter
	inputMove
	inputRotate
	inputFilter
	inputSaveTemplate
	inputLoadTemplate
)

// Options wires the TUI to the planning session
type Options struct {
	Channels *channel.Model
	Catalog  *catalog.Catalog
	Dialogs  *Dialogs
	Session  *session.Manager
	Keybinds *keybinds.Registry

	// History and Bridge are optional
	History *history.Manager
	Bridge  *viewer.Bridge

	Logger *slog.Logger
}

// Model represents the TUI state
type Model struct {
	channels *channel.Model
	catalog  *catalog.Catalog
	dialogs  *Dialogs
	session  *session.Manager
	keys     *keybinds.Registry
	history  *history.Manager
	bridge   *viewer.Bridge
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan tea.Msg

	mode   Mode
	focus  Focus
	width  int
	height int

	filterExpr string

	// Dwell pane
	dwellCursor int
	dwellView   viewport.Model

	// Parameter pane
	paramCursor int

	// Text prompt
	input      textinput.Model
	inputKind  inputKind
	inputField string // channel field or parameter key
	inputTitle string
	inputError string

	// Model picker
	pickerInput   textinput.Model
	pickerResults []types.ModelInfo
	pickerCursor  int

	subTubeBase   string // base channel of the sub-tube modal
	subTubeCursor int

	// Confirm and alert modals. dialogReply is set for requests coming from
	// the channel model, onConfirm for prompts raised by the TUI itself.
	dialogMessage string
	dialogReply   chan bool
	onConfirm     func(bool) tea.Cmd
	returnMode    Mode

	recent       []string
	recentCursor int

	// History and help
	modalView     viewport.Model
	historyEvents []types.ChannelEvent

	statusMsg string
	errorMsg  string
}

// New creates the TUI model
func New(opts Options) *Model {
	if opts.Dialogs == nil {
		opts.Dialogs = NewDialogs()
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Channels == nil {
		opts.Channels = channel.New(channel.Options{Catalog: opts.Catalog, Dialogs: opts.Dialogs, Logger: opts.Logger})
	}
	if opts.Keybinds == nil {
		opts.Keybinds = keybinds.NewDefaultRegistry()
	}
	if opts.Session == nil {
		opts.Session = session.NewManager()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.CharLimit = 256
	picker := textinput.New()
	picker.Placeholder = "search models"
	picker.CharLimit = 64

	m := &Model{
		channels:    opts.Channels,
		catalog:     opts.Catalog,
		dialogs:     opts.Dialogs,
		session:     opts.Session,
		keys:        opts.Keybinds,
		history:     opts.History,
		bridge:      opts.Bridge,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		inbox:       make(chan tea.Msg, InboxBuffer),
		mode:        ModeNormal,
		focus:       FocusChannels,
		input:       input,
		pickerInput: picker,
		dwellView:   viewport.New(30, 20),
		modalView:   viewport.New(80, 20),
	}

	if m.bridge != nil {
		m.bridge.OnProposal = func(ch types.Channel, points []types.Point3D) {
			m.notify(proposalMsg{channelID: ch.ID, number: ch.Number, points: points})
		}
	}
	return m
}

// Init starts listening for dialog requests and background messages
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.dialogs.wait(), m.waitInbox(), textinput.Blink)
}

// Cleanup stops background work started by the TUI
func (m *Model) Cleanup() {
	m.cancel()
}

// notify hands a message from another goroutine to Update. It never blocks;
// when the inbox is full the message is dropped.
func (m *Model) notify(msg tea.Msg) {
	select {
	case m.inbox <- msg:
	default:
		m.logger.Warn("tui inbox full, message dropped")
	}
}

func (m *Model) waitInbox() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.inbox:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewports()

	case dialogMsg:
		m.openDialog(dialogRequest(msg))

	case opDoneMsg:
		cmd = m.handleOpDone(msg)

	case proposalMsg:
		cmd = tea.Batch(m.handleProposal(msg), m.waitInbox())

	case historyLoadedMsg:
		if msg.err != nil {
			m.setError("Failed to load history: " + msg.err.Error())
			m.mode = ModeNormal
			break
		}
		m.historyEvents = msg.events
		m.updateHistoryView()

	case clearStatusMsg:
		m.statusMsg = ""
	}

	return m, cmd
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	case ModeHistory:
		return m.renderHistory()
	case ModeInput:
		return m.renderInputModal()
	case ModeModelPicker:
		return m.renderModelPicker()
	case ModeSubTubes:
		return m.renderSubTubes()
	case ModeConfirm, ModeAlert:
		return m.renderDialog()
	case ModeRecent:
		return m.renderRecent()
	default:
		return m.renderMain()
	}
}

// Custom message types
type opDoneMsg struct {
	status string
	err    error
	recent string // template path to remember on success
}

type proposalMsg struct {
	channelID string
	number    int
	points    []types.Point3D
}

type historyLoadedMsg struct {
	events []types.ChannelEvent
	err    error
}

type clearStatusMsg struct{}

// runAsync runs a channel operation that may ask the user through Dialogs
func (m *Model) runAsync(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return opDoneMsg{status: status, err: err}
	}
}

func (m *Model) handleOpDone(msg opDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.setError(msg.err.Error())
		return nil
	}
	if msg.recent != "" {
		if err := m.session.AddRecentTemplate(msg.recent); err != nil {
			m.logger.Warn("failed to remember template", "path", msg.recent, "error", err)
		}
	}
	m.clampCursors()
	if msg.status == "" {
		return nil
	}
	return m.setStatus(msg.status)
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = truncateStatus(msg)
	m.errorMsg = ""
	return tea.Tick(StatusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m *Model) setError(msg string) {
	m.errorMsg = truncateStatus(msg)
	m.logger.Debug("tui error", "message", msg)
}

func truncateStatus(msg string) string {
	if len(msg) > 100 {
		return msg[:97] + "..."
	}
	return msg
}

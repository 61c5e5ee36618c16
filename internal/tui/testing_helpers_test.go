package tui

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/catalog"
	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/config"
	"github.com/hohoca/brachyplan/internal/session"
	"github.com/hohoca/brachyplan/internal/viewer"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// CreateTestModel creates a Model backed by a temporary session file and
// templates directory. withBridge wires a viewer bridge to the channels.
func CreateTestModel(t *testing.T, withBridge bool) *Model {
	t.Helper()

	tempDir := t.TempDir()

	originalTemplatesDir := config.TemplatesDir
	config.TemplatesDir = filepath.Join(tempDir, "templates")
	t.Cleanup(func() {
		config.TemplatesDir = originalTemplatesDir
	})

	dialogs := NewDialogs()
	cat := catalog.Default()
	n := 0
	channels := channel.New(channel.Options{
		Catalog: cat,
		Dialogs: dialogs,
		Logger:  discardLogger,
		NewID: func() string {
			n++
			return fmt.Sprintf("ch-%d", n)
		},
	})

	var bridge *viewer.Bridge
	if withBridge {
		bridge = viewer.NewBridge(channels, nopSender{}, nil, discardLogger)
		channels.Subscribe(bridge.Listener())
	}

	m := New(Options{
		Channels: channels,
		Catalog:  cat,
		Dialogs:  dialogs,
		Session:  session.NewManagerAt(filepath.Join(tempDir, "session.json")),
		Bridge:   bridge,
		Logger:   discardLogger,
	})
	t.Cleanup(m.Cleanup)
	return m
}

type nopSender struct{}

func (nopSender) Send(viewer.Message) bool { return true }

// keyMsg builds the key message bubbletea would deliver for a key name
func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the command of the last one
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

// typeText sends each rune as a key press
func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// seenDialog is the modal state observed while a dialog was open
type seenDialog struct {
	mode    Mode
	message string
}

// runWithDialog runs cmd in the background, shows the dialog it raises and
// answers it with key. It returns what the modal showed and the result.
func runWithDialog(t *testing.T, m *Model, cmd tea.Cmd, key string) (seenDialog, tea.Msg) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	requests := make(chan tea.Msg, 1)
	go func() { requests <- m.dialogs.wait()() }()

	var seen seenDialog
	select {
	case req := <-requests:
		m.Update(req)
		seen = seenDialog{mode: m.mode, message: m.dialogMessage}
	case <-time.After(2 * time.Second):
		t.Fatal("no dialog was raised")
	}

	m.Update(keyMsg(key))

	select {
	case msg := <-done:
		m.Update(msg)
		return seen, msg
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not finish")
	}
	return seen, nil
}

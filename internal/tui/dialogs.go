package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Dialogs implements channel.Dialogs on top of the TUI. A request blocks the
// calling goroutine until the user answers the modal, so channel operations
// that may ask must run inside a tea.Cmd, never inside Update.
type Dialogs struct {
	requests chan dialogRequest
}

type dialogRequest struct {
	message string
	alert   bool
	reply   chan bool
}

// dialogMsg asks Update to show a confirm or alert modal
type dialogMsg dialogRequest

// NewDialogs creates the bridge. Pass it to channel.Options and tui.Options.
func NewDialogs() *Dialogs {
	return &Dialogs{requests: make(chan dialogRequest)}
}

// Confirm shows a yes/no modal and waits for the answer
func (d *Dialogs) Confirm(ctx context.Context, message string) (bool, error) {
	return d.ask(ctx, dialogRequest{message: message, reply: make(chan bool, 1)})
}

// Alert shows a message and waits until it is dismissed
func (d *Dialogs) Alert(ctx context.Context, message string) error {
	_, err := d.ask(ctx, dialogRequest{message: message, alert: true, reply: make(chan bool, 1)})
	return err
}

func (d *Dialogs) ask(ctx context.Context, req dialogRequest) (bool, error) {
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// wait returns a command that delivers the next dialog request to Update
func (d *Dialogs) wait() tea.Cmd {
	return func() tea.Msg {
		return dialogMsg(<-d.requests)
	}
}

// Package tui implements the terminal workstation for editing applicator
// channels.
//
// The main view shows the channel table, the dwell positions of the selected
// channel and its model parameters. Keys are resolved through the keybinds
// registry for the focused pane or open modal.
//
// Channel operations that ask for confirmation (delete, reset, template load)
// run as tea.Cmd goroutines. Their questions reach Update through Dialogs and
// are answered from the confirm modal.
package tui

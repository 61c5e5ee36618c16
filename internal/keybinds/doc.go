/*
Package keybinds provides customizable keyboard binding management.

# Overview

Keys map to actions within a context. The TUI asks the registry which action
a key triggers in the pane or modal that has focus, so every binding can be
changed through keybinds.json without touching the views.

# Key Concepts

Context Hierarchy:
  - Global: Bindings available everywhere (ctrl+c)
  - Normal: Channel table
  - Dwell, Parameters: Side panes of the selected channel
  - Modal: Model picker, sub-tube selection, recent templates
  - Viewer: Scrollable help and history

Match checks the specific context first, then global.

# Configuration File Format

keybinds.json maps action names to comma-separated keys. Comments and
trailing commas are accepted. Listing an action replaces its default keys in
that context; "space" names the space bar.

	{
	  // vim users
	  "normal": {
	    "add_channel": "o",
	    "toggle_visibility": "space"
	  },
	  "confirm": {
	    "confirm": "y,enter"
	  }
	}

CreateExampleConfig writes the full default set as a starting point.

# Multi-Key Sequences

A key made of one repeated character ("gg") is a sequence. MatchMultiKey
holds the first key and resolves the pair on the next keypress.

# Validation

Check reports an error when a view loses an action it needs (closing a
modal, answering a confirmation, toggling a dwell position) or when ctrl+c
is taken from force quit. LoadOrDefault rejects such a file. Check warns
about unknown actions, single characters bound where the user types a
search, and single keys swallowed by a sequence.

# Example Usage

	registry, err := keybinds.LoadOrDefault(config.KeybindsFile)
	if err != nil {
		return err
	}

	for _, issue := range keybinds.Check(registry) {
		logger.Warn("key binding issue", "context", issue.Context, "key", issue.Key, "message", issue.Message)
	}

	if action, ok := registry.Match(keybinds.ContextNormal, msg.String()); ok {
		// Handle action
	}

Registries are built at startup and only read afterwards.
*/
package keybinds

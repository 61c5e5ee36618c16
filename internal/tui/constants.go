package tui

import "time"

// UI Layout Constants

const (
	// Modal Dimensions - Standard margins for modal dialogs
	ModalWidthMargin       = 6  // Standard horizontal margin (m.width - 6)
	ModalHeightMargin      = 3  // Standard vertical margin (m.height - 3)
	ModalWidthMarginNarrow = 10 // Narrow horizontal margin for focused modals (m.width - 10)
	ModalHeightMarginMed   = 4  // Medium vertical margin (m.height - 4)

	// Fixed widths for small modals
	ConfirmModalWidth = 60
	InputModalWidth   = 60
	PickerModalWidth  = 70

	// Main view
	StatusBarHeight      = 1
	SidePaneMinWidth     = 32 // Dwell and parameter panes
	SidePanePercent      = 35 // Share of the terminal width for the side panes
	ParameterPaneLines   = 8  // Height of the parameter pane inside the side column
	MainViewHeightOffset = 5  // m.height - 5 rows of channel table (status + borders + header)

	// Modal Content Calculations
	ModalOverheadLines = 6 // Title (2) + padding (2) + border (2)
	ModalFooterLines   = 2 // Footer + blank line

	// Buffer Sizes
	InboxBuffer = 16 // Messages from background goroutines (viewer proposals)

	// StatusTimeout clears the status bar message
	StatusTimeout = 5 * time.Second

	// Lists
	HistoryLimit     = 200 // Events shown in the history viewer
	PickerMaxVisible = 12  // Rows shown in the model picker
)

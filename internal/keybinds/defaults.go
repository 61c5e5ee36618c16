package keybinds

// NewDefaultRegistry creates a registry with all default keybindings
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	// Register all default keybindings
	registerGlobalBindings(r)
	registerNavigationBindings(r)
	registerTextInputBindings(r)
	registerNormalModeBindings(r)
	registerDwellBindings(r)
	registerParameterBindings(r)
	registerModelPickerBindings(r)
	registerSubTubeBindings(r)
	registerRecentBindings(r)
	registerHistoryBindings(r)
	registerHelpBindings(r)
	registerModalBindings(r)
	registerConfirmBindings(r)

	return r
}

// registerGlobalBindings sets up bindings available in all modes
func registerGlobalBindings(r *Registry) {
	r.Register(ContextGlobal, "ctrl+c", ActionQuitForce)
}

// registerListNavigation binds the usual list movement keys in a context
func registerListNavigation(r *Registry, ctx Context) {
	r.RegisterMultiple(ctx, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ctx, []string{"down", "j"}, ActionNavigateDown)
	r.Register(ctx, "pgup", ActionPageUp)
	r.Register(ctx, "pgdown", ActionPageDown)
	r.Register(ctx, "ctrl+u", ActionHalfPageUp)
	r.Register(ctx, "ctrl+d", ActionHalfPageDown)
	r.Register(ctx, "g", ActionGoToTopPrepare)
	r.Register(ctx, "gg", ActionGoToTop)
	r.Register(ctx, "G", ActionGoToBottom)
	r.Register(ctx, "home", ActionGoToTop)
	r.Register(ctx, "end", ActionGoToBottom)
}

// registerNavigationBindings sets up common navigation bindings for viewers
func registerNavigationBindings(r *Registry) {
	registerListNavigation(r, ContextViewer)
}

// registerTextInputBindings sets up common text input bindings.
// Editing keys go straight to the bubbles text input.
func registerTextInputBindings(r *Registry) {
	r.RegisterMultiple(ContextTextInput, []string{"ctrl+v", "shift+insert", "super+v"}, ActionTextPaste)
	r.Register(ContextTextInput, "enter", ActionTextSubmit)
	r.Register(ContextTextInput, "esc", ActionTextCancel)
}

// registerNormalModeBindings sets up keybindings for the channel table
func registerNormalModeBindings(r *Registry) {
	r.Register(ContextNormal, "q", ActionQuit)
	r.Register(ContextNormal, "tab", ActionSwitchFocus)
	registerListNavigation(r, ContextNormal)

	// Channel list
	r.Register(ContextNormal, "a", ActionAddChannel)
	r.Register(ContextNormal, "d", ActionDeleteChannel)
	r.Register(ContextNormal, "D", ActionDeleteAll)

	// Field editing
	r.RegisterMultiple(ContextNormal, []string{"enter", "n"}, ActionEditName)
	r.Register(ContextNormal, "i", ActionEditChannelIndex)
	r.Register(ContextNormal, "s", ActionEditDwellStep)
	r.Register(ContextNormal, "l", ActionEditSourceLength)
	r.Register(ContextNormal, "o", ActionEditOffset)

	// Visibility and lock
	r.Register(ContextNormal, "v", ActionToggleVisibility)
	r.Register(ContextNormal, "L", ActionToggleLock)
	r.Register(ContextNormal, "V", ActionToggleAllVisibility)
	r.Register(ContextNormal, "ctrl+l", ActionToggleAllLock)
	r.Register(ContextNormal, "c", ActionCopyToClipboard)

	// Model
	r.Register(ContextNormal, "m", ActionOpenModelPicker)
	r.Register(ContextNormal, "M", ActionClearModel)
	r.Register(ContextNormal, "t", ActionOpenSubTubes)
	r.Register(ContextNormal, "R", ActionResetParameters)
	r.Register(ContextNormal, "w", ActionMoveModel)
	r.Register(ContextNormal, "r", ActionRotateModel)
	r.Register(ContextNormal, "p", ActionConfirmPoints)
	r.Register(ContextNormal, "x", ActionClearPoints)
	r.Register(ContextNormal, "b", ActionManualRebuild)
	r.Register(ContextNormal, "B", ActionAutoRebuild)

	// Templates
	r.Register(ContextNormal, "ctrl+s", ActionSaveTemplate)
	r.Register(ContextNormal, "ctrl+o", ActionLoadTemplate)
	r.Register(ContextNormal, "ctrl+p", ActionOpenRecent)

	// Modal launchers
	r.Register(ContextNormal, "/", ActionOpenFilter)
	r.Register(ContextNormal, "F", ActionClearFilter)
	r.Register(ContextNormal, "H", ActionOpenHistory)
	r.Register(ContextNormal, "?", ActionOpenHelp)
}

// registerDwellBindings sets up keybindings for the dwell position pane
func registerDwellBindings(r *Registry) {
	r.Register(ContextDwell, "q", ActionQuit)
	r.RegisterMultiple(ContextDwell, []string{"tab", "esc"}, ActionSwitchFocus)
	registerListNavigation(r, ContextDwell)
	r.RegisterMultiple(ContextDwell, []string{" ", "enter"}, ActionToggleDwell)
	r.Register(ContextDwell, "?", ActionOpenHelp)
}

// registerParameterBindings sets up keybindings for the model parameter pane
func registerParameterBindings(r *Registry) {
	r.Register(ContextParameters, "q", ActionQuit)
	r.RegisterMultiple(ContextParameters, []string{"tab", "esc"}, ActionSwitchFocus)
	r.RegisterMultiple(ContextParameters, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextParameters, []string{"down", "j"}, ActionNavigateDown)
	r.Register(ContextParameters, "enter", ActionEditParameter)
	r.RegisterMultiple(ContextParameters, []string{"+", "=", "right", "l"}, ActionIncreaseParameter)
	r.RegisterMultiple(ContextParameters, []string{"-", "left", "h"}, ActionDecreaseParameter)
	r.Register(ContextParameters, "R", ActionResetParameters)
	r.Register(ContextParameters, "?", ActionOpenHelp)
}

// registerModelPickerBindings sets up keybindings for the model picker.
// Printable keys feed the fuzzy search input.
func registerModelPickerBindings(r *Registry) {
	r.Register(ContextModelPicker, "esc", ActionCloseModal)
	r.RegisterMultiple(ContextModelPicker, []string{"up", "ctrl+k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextModelPicker, []string{"down", "ctrl+j"}, ActionNavigateDown)
	r.Register(ContextModelPicker, "enter", ActionSelect)
}

// registerSubTubeBindings sets up keybindings for sub-tube selection
func registerSubTubeBindings(r *Registry) {
	r.RegisterMultiple(ContextSubTubes, []string{"esc", "t", "q"}, ActionCloseModal)
	r.RegisterMultiple(ContextSubTubes, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextSubTubes, []string{"down", "j"}, ActionNavigateDown)
	r.RegisterMultiple(ContextSubTubes, []string{" ", "enter"}, ActionToggleSubTube)
}

// registerRecentBindings sets up keybindings for the recent templates list
func registerRecentBindings(r *Registry) {
	r.RegisterMultiple(ContextRecent, []string{"esc", "q", "ctrl+p"}, ActionCloseModal)
	r.RegisterMultiple(ContextRecent, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextRecent, []string{"down", "j"}, ActionNavigateDown)
	r.Register(ContextRecent, "enter", ActionSelect)
}

// registerHistoryBindings sets up keybindings for the change history viewer
func registerHistoryBindings(r *Registry) {
	r.RegisterMultiple(ContextHistory, []string{"esc", "H", "q"}, ActionCloseModal)
	registerListNavigation(r, ContextHistory)
}

// registerHelpBindings sets up keybindings for help viewer
func registerHelpBindings(r *Registry) {
	r.RegisterMultiple(ContextHelp, []string{"esc", "?", "q"}, ActionCloseModal)
	registerListNavigation(r, ContextHelp)
}

// registerModalBindings sets up generic modal bindings
func registerModalBindings(r *Registry) {
	r.RegisterMultiple(ContextModal, []string{"esc", "q", "enter"}, ActionCloseModal)
}

// registerConfirmBindings sets up confirmation dialog bindings
func registerConfirmBindings(r *Registry) {
	r.RegisterMultiple(ContextConfirm, []string{"y", "Y"}, ActionConfirm)
	r.RegisterMultiple(ContextConfirm, []string{"n", "N", "esc"}, ActionCancel)
}

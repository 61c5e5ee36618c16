package keybinds

// Action represents a user action that can be triggered by a keybinding
type Action string

// Context represents the context in which keybindings are active
type Context string

const (
	// Contexts define where keybindings are active
	ContextGlobal      Context = "global"       // Available everywhere
	ContextNormal      Context = "normal"       // Channel table
	ContextDwell       Context = "dwell"        // Dwell position pane
	ContextParameters  Context = "parameters"   // Model parameter pane
	ContextModelPicker Context = "model_picker" // Model selection list
	ContextSubTubes    Context = "sub_tubes"    // Multi-channel sub-tube selection
	ContextRecent      Context = "recent"       // Recent templates list
	ContextHistory     Context = "history"      // Change history viewer
	ContextHelp        Context = "help"         // Help viewer
	ContextModal       Context = "modal"        // Generic modal (applies to all modals)
	ContextTextInput   Context = "text_input"   // Text input (applies to all text inputs)
	ContextConfirm     Context = "confirm"      // Confirmation dialogs
	ContextViewer      Context = "viewer"       // Generic viewer (scrollable content)
)

const (
	// Global actions
	ActionQuit      Action = "quit"       // Quit application
	ActionQuitForce Action = "quit_force" // Force quit (ctrl+c)

	// Navigation actions
	ActionNavigateUp     Action = "navigate_up"       // Move up one item
	ActionNavigateDown   Action = "navigate_down"     // Move down one item
	ActionPageUp         Action = "page_up"           // Move up one page
	ActionPageDown       Action = "page_down"         // Move down one page
	ActionHalfPageUp     Action = "half_page_up"      // Move up half page (ctrl+u)
	ActionHalfPageDown   Action = "half_page_down"    // Move down half page (ctrl+d)
	ActionGoToTop        Action = "go_to_top"         // Go to top
	ActionGoToBottom     Action = "go_to_bottom"      // Go to bottom
	ActionGoToTopPrepare Action = "go_to_top_prepare" // First 'g' in 'gg' sequence

	// Focus and panel switching
	ActionSwitchFocus Action = "switch_focus" // Cycle channels -> dwell -> parameters

	// Text input actions
	ActionTextPaste  Action = "text_paste"  // Paste from clipboard
	ActionTextSubmit Action = "text_submit" // Submit text input
	ActionTextCancel Action = "text_cancel" // Cancel text input

	// Modal actions
	ActionCloseModal Action = "close_modal" // Close current modal
	ActionConfirm    Action = "confirm"     // Confirm action (y/Y)
	ActionCancel     Action = "cancel"      // Cancel action (n/N)
	ActionSelect     Action = "select"      // Pick the highlighted list entry

	// Channel operations (Normal mode)
	ActionAddChannel          Action = "add_channel"           // Append a channel
	ActionDeleteChannel       Action = "delete_channel"        // Delete channel (with confirm)
	ActionDeleteAll           Action = "delete_all"            // Delete every channel (with confirm)
	ActionEditName            Action = "edit_name"             // Edit channel name
	ActionEditChannelIndex    Action = "edit_channel_index"    // Edit channel index
	ActionEditDwellStep       Action = "edit_dwell_step"       // Edit dwell step (regenerates grid)
	ActionEditSourceLength    Action = "edit_source_length"    // Edit source length
	ActionEditOffset          Action = "edit_offset"           // Edit offset
	ActionToggleVisibility    Action = "toggle_visibility"     // Show/hide channel
	ActionToggleLock          Action = "toggle_lock"           // Lock/unlock channel
	ActionToggleAllVisibility Action = "toggle_all_visibility" // Show/hide all channels
	ActionToggleAllLock       Action = "toggle_all_lock"       // Lock/unlock all channels
	ActionCopyToClipboard     Action = "copy_to_clipboard"     // Copy channel summary

	// Dwell pane
	ActionToggleDwell Action = "toggle_dwell" // Toggle dwell position under cursor

	// Model reconstruction
	ActionOpenModelPicker   Action = "open_model_picker"   // Choose reconstruction model
	ActionClearModel        Action = "clear_model"         // Remove model from channel
	ActionOpenSubTubes      Action = "open_sub_tubes"      // Choose multi-channel sub-tubes
	ActionToggleSubTube     Action = "toggle_sub_tube"     // Toggle sub-tube under cursor
	ActionEditParameter     Action = "edit_parameter"      // Type a parameter value
	ActionIncreaseParameter Action = "increase_parameter"  // Step parameter up
	ActionDecreaseParameter Action = "decrease_parameter"  // Step parameter down
	ActionResetParameters   Action = "reset_parameters"    // Reset parameters (with confirm)
	ActionMoveModel         Action = "move_model"          // Translate model (dx,dy,dz)
	ActionRotateModel       Action = "rotate_model"        // Rotate model (rx,ry,rz degrees)
	ActionConfirmPoints     Action = "confirm_points"      // Accept proposed registration points
	ActionClearPoints       Action = "clear_points"        // Discard registration points
	ActionManualRebuild     Action = "manual_rebuild"      // Send channel to manual reconstruction
	ActionAutoRebuild       Action = "auto_rebuild"        // Send channel to automatic reconstruction

	// Templates
	ActionSaveTemplate Action = "save_template" // Save plan as template
	ActionLoadTemplate Action = "load_template" // Load template by path
	ActionOpenRecent   Action = "open_recent"   // Open recent templates

	// Modal launchers (Normal mode)
	ActionOpenFilter  Action = "open_filter"  // Filter channels with JMESPath
	ActionClearFilter Action = "clear_filter" // Clear channel filter
	ActionOpenHistory Action = "open_history" // Open change history
	ActionOpenHelp    Action = "open_help"    // Open help viewer

	// Other actions
	ActionNoOp Action = "noop" // No operation (ignore key)
)

// ActionInfo contains metadata about an action
type ActionInfo struct {
	Action      Action
	Description string
	Category    string
}

var actionInfos = map[Action]ActionInfo{
	ActionQuit:                {ActionQuit, "Quit application", "Global"},
	ActionQuitForce:           {ActionQuitForce, "Force quit", "Global"},
	ActionNavigateUp:          {ActionNavigateUp, "Move up", "Navigation"},
	ActionNavigateDown:        {ActionNavigateDown, "Move down", "Navigation"},
	ActionPageUp:              {ActionPageUp, "Page up", "Navigation"},
	ActionPageDown:            {ActionPageDown, "Page down", "Navigation"},
	ActionHalfPageUp:          {ActionHalfPageUp, "Half page up", "Navigation"},
	ActionHalfPageDown:        {ActionHalfPageDown, "Half page down", "Navigation"},
	ActionGoToTop:             {ActionGoToTop, "Go to top", "Navigation"},
	ActionGoToBottom:          {ActionGoToBottom, "Go to bottom", "Navigation"},
	ActionSwitchFocus:         {ActionSwitchFocus, "Switch pane", "Navigation"},
	ActionAddChannel:          {ActionAddChannel, "Add channel", "Channels"},
	ActionDeleteChannel:       {ActionDeleteChannel, "Delete channel", "Channels"},
	ActionDeleteAll:           {ActionDeleteAll, "Delete all channels", "Channels"},
	ActionEditName:            {ActionEditName, "Edit name", "Channels"},
	ActionEditChannelIndex:    {ActionEditChannelIndex, "Edit channel index", "Channels"},
	ActionEditDwellStep:       {ActionEditDwellStep, "Edit dwell step", "Channels"},
	ActionEditSourceLength:    {ActionEditSourceLength, "Edit source length", "Channels"},
	ActionEditOffset:          {ActionEditOffset, "Edit offset", "Channels"},
	ActionToggleVisibility:    {ActionToggleVisibility, "Toggle visibility", "Channels"},
	ActionToggleLock:          {ActionToggleLock, "Toggle lock", "Channels"},
	ActionToggleAllVisibility: {ActionToggleAllVisibility, "Toggle all visibility", "Channels"},
	ActionToggleAllLock:       {ActionToggleAllLock, "Toggle all locks", "Channels"},
	ActionCopyToClipboard:     {ActionCopyToClipboard, "Copy channel summary", "Channels"},
	ActionToggleDwell:         {ActionToggleDwell, "Toggle dwell position", "Dwell"},
	ActionOpenModelPicker:     {ActionOpenModelPicker, "Choose model", "Model"},
	ActionClearModel:          {ActionClearModel, "Clear model", "Model"},
	ActionOpenSubTubes:        {ActionOpenSubTubes, "Choose sub-tubes", "Model"},
	ActionEditParameter:       {ActionEditParameter, "Edit parameter", "Model"},
	ActionIncreaseParameter:   {ActionIncreaseParameter, "Increase parameter", "Model"},
	ActionDecreaseParameter:   {ActionDecreaseParameter, "Decrease parameter", "Model"},
	ActionResetParameters:     {ActionResetParameters, "Reset parameters", "Model"},
	ActionMoveModel:           {ActionMoveModel, "Move model", "Model"},
	ActionRotateModel:         {ActionRotateModel, "Rotate model", "Model"},
	ActionConfirmPoints:       {ActionConfirmPoints, "Confirm registration points", "Model"},
	ActionClearPoints:         {ActionClearPoints, "Clear registration points", "Model"},
	ActionManualRebuild:       {ActionManualRebuild, "Manual reconstruction", "Model"},
	ActionAutoRebuild:         {ActionAutoRebuild, "Automatic reconstruction", "Model"},
	ActionSaveTemplate:        {ActionSaveTemplate, "Save template", "Templates"},
	ActionLoadTemplate:        {ActionLoadTemplate, "Load template", "Templates"},
	ActionOpenRecent:          {ActionOpenRecent, "Recent templates", "Templates"},
	ActionOpenFilter:          {ActionOpenFilter, "Filter channels", "View"},
	ActionClearFilter:         {ActionClearFilter, "Clear filter", "View"},
	ActionOpenHistory:         {ActionOpenHistory, "Change history", "Information"},
	ActionOpenHelp:            {ActionOpenHelp, "Open help", "Information"},
}

// GetActionInfo returns human-readable information about an action
func GetActionInfo(action Action) ActionInfo {
	if info, ok := actionInfos[action]; ok {
		return info
	}

	return ActionInfo{action, string(action), "Unknown"}
}

// IsKnownAction reports whether the application handles action
func IsKnownAction(action Action) bool {
	if _, ok := actionInfos[action]; ok {
		return true
	}
	switch action {
	case ActionGoToTopPrepare, ActionTextPaste, ActionTextSubmit, ActionTextCancel,
		ActionCloseModal, ActionConfirm, ActionCancel, ActionSelect, ActionToggleSubTube, ActionNoOp:
		return true
	}
	return false
}

// IsGlobalAction returns true if the action is available in all contexts
func IsGlobalAction(action Action) bool {
	globalActions := map[Action]bool{
		ActionQuit:      true,
		ActionQuitForce: true,
	}
	return globalActions[action]
}

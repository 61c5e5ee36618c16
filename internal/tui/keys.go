package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/types"
)

// readClipboard is swapped out in tests
var readClipboard = clipboard.ReadAll

// handleKeyPress routes key presses based on current mode
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	// Global keys (work in all modes)
	if action, ok := m.keys.Match(keybinds.ContextGlobal, msg.String()); ok && action == keybinds.ActionQuitForce {
		m.answerDialog(false)
		m.Cleanup()
		return tea.Quit
	}

	// Mode-specific handling
	switch m.mode {
	case ModeNormal:
		return m.handleNormalKeys(msg)
	case ModeInput:
		return m.handleInputKeys(msg)
	case ModeModelPicker:
		return m.handleModelPickerKeys(msg)
	case ModeSubTubes:
		return m.handleSubTubeKeys(msg)
	case ModeConfirm:
		return m.handleConfirmKeys(msg)
	case ModeAlert:
		return m.handleAlertKeys(msg)
	case ModeRecent:
		return m.handleRecentKeys(msg)
	case ModeHistory:
		return m.handleViewerKeys(keybinds.ContextHistory, msg)
	case ModeHelp:
		return m.handleViewerKeys(keybinds.ContextHelp, msg)
	}
	return nil
}

// paneContext maps the focused pane to its keybinding context
func (m *Model) paneContext() keybinds.Context {
	switch m.focus {
	case FocusDwell:
		return keybinds.ContextDwell
	case FocusParameters:
		return keybinds.ContextParameters
	default:
		return keybinds.ContextNormal
	}
}

func (m *Model) handleNormalKeys(msg tea.KeyMsg) tea.Cmd {
	ctx := m.paneContext()
	action, ok, partial := m.keys.MatchMultiKey(ctx, msg.String())
	if partial || !ok {
		return nil
	}

	// Actions shared by every pane
	switch action {
	case keybinds.ActionQuit:
		m.Cleanup()
		return tea.Quit
	case keybinds.ActionSwitchFocus:
		m.switchFocus()
		return nil
	case keybinds.ActionOpenHelp:
		m.openHelp()
		return nil
	case keybinds.ActionResetParameters:
		return m.resetParameters()
	}

	switch m.focus {
	case FocusDwell:
		return m.handleDwellAction(action)
	case FocusParameters:
		return m.handleParameterAction(action)
	default:
		return m.handleChannelAction(action)
	}
}

// switchFocus cycles channels -> dwell -> parameters. The parameter pane is
// skipped when the selected channel has no model.
func (m *Model) switchFocus() {
	switch m.focus {
	case FocusChannels:
		if _, ok := m.channels.SelectedChannel(); ok {
			m.focus = FocusDwell
			m.syncDwellCursor()
		}
	case FocusDwell:
		if len(m.selectedParameters()) > 0 {
			m.focus = FocusParameters
			m.paramCursor = 0
		} else {
			m.focus = FocusChannels
		}
	default:
		m.focus = FocusChannels
	}
}

func (m *Model) handleChannelAction(action keybinds.Action) tea.Cmd {
	switch action {
	case keybinds.ActionNavigateUp:
		m.moveSelection(-1)
	case keybinds.ActionNavigateDown:
		m.moveSelection(1)
	case keybinds.ActionPageUp, keybinds.ActionHalfPageUp:
		m.moveSelection(-m.pageSize())
	case keybinds.ActionPageDown, keybinds.ActionHalfPageDown:
		m.moveSelection(m.pageSize())
	case keybinds.ActionGoToTop:
		m.moveSelection(-len(m.visibleChannels()))
	case keybinds.ActionGoToBottom:
		m.moveSelection(len(m.visibleChannels()))

	case keybinds.ActionAddChannel:
		return m.addChannel()
	case keybinds.ActionDeleteChannel:
		return m.deleteChannel()
	case keybinds.ActionDeleteAll:
		return m.deleteAll()

	case keybinds.ActionEditName:
		m.openFieldInput(types.FieldName)
	case keybinds.ActionEditChannelIndex:
		m.openFieldInput(types.FieldChannelIndex)
	case keybinds.ActionEditDwellStep:
		m.openFieldInput(types.FieldDwellStep)
	case keybinds.ActionEditSourceLength:
		m.openFieldInput(types.FieldSourceLength)
	case keybinds.ActionEditOffset:
		m.openFieldInput(types.FieldOffset)

	case keybinds.ActionToggleVisibility:
		m.withSelected(func(id string) { m.channels.ToggleVisibility(id) })
	case keybinds.ActionToggleLock:
		m.withSelected(func(id string) { m.channels.ToggleLock(id) })
	case keybinds.ActionToggleAllVisibility:
		m.channels.ToggleAllVisibility()
	case keybinds.ActionToggleAllLock:
		m.channels.ToggleAllLock()
	case keybinds.ActionCopyToClipboard:
		return m.copySummary()

	case keybinds.ActionOpenModelPicker:
		m.openModelPicker()
	case keybinds.ActionClearModel:
		return m.clearModel()
	case keybinds.ActionOpenSubTubes:
		m.openSubTubes()
	case keybinds.ActionMoveModel:
		m.openPoseInput(inputMove)
	case keybinds.ActionRotateModel:
		m.openPoseInput(inputRotate)
	case keybinds.ActionConfirmPoints:
		return m.confirmPoints()
	case keybinds.ActionClearPoints:
		return m.clearPoints()
	case keybinds.ActionManualRebuild:
		return m.runAsync(manualRebuild(m.channels))
	case keybinds.ActionAutoRebuild:
		return m.runAsync(autoRebuild(m.channels))

	case keybinds.ActionSaveTemplate:
		m.openTemplateInput(inputSaveTemplate)
	case keybinds.ActionLoadTemplate:
		m.openTemplateInput(inputLoadTemplate)
	case keybinds.ActionOpenRecent:
		m.openRecent()

	case keybinds.ActionOpenFilter:
		m.openFilterInput()
	case keybinds.ActionClearFilter:
		m.filterExpr = ""
		return m.setStatus("Filter cleared")
	case keybinds.ActionOpenHistory:
		return m.openHistory()
	}
	return nil
}

func (m *Model) handleDwellAction(action keybinds.Action) tea.Cmd {
	grid := m.channels.Grid()
	last := len(grid.Positions) - 1
	switch action {
	case keybinds.ActionNavigateUp:
		m.dwellCursor--
	case keybinds.ActionNavigateDown:
		m.dwellCursor++
	case keybinds.ActionPageUp:
		m.dwellCursor -= m.dwellView.Height
	case keybinds.ActionPageDown:
		m.dwellCursor += m.dwellView.Height
	case keybinds.ActionHalfPageUp:
		m.dwellCursor -= m.dwellView.Height / 2
	case keybinds.ActionHalfPageDown:
		m.dwellCursor += m.dwellView.Height / 2
	case keybinds.ActionGoToTop:
		m.dwellCursor = 0
	case keybinds.ActionGoToBottom:
		m.dwellCursor = last
	case keybinds.ActionToggleDwell:
		if m.dwellCursor >= 0 && m.dwellCursor <= last {
			position := grid.Positions[m.dwellCursor]
			m.withSelected(func(id string) { m.channels.ToggleDwellPosition(id, position) })
		}
	}
	m.dwellCursor = clamp(m.dwellCursor, 0, last)
	return nil
}

func (m *Model) handleParameterAction(action keybinds.Action) tea.Cmd {
	params := m.selectedParameters()
	if len(params) == 0 {
		m.focus = FocusChannels
		return nil
	}
	switch action {
	case keybinds.ActionNavigateUp:
		m.paramCursor--
	case keybinds.ActionNavigateDown:
		m.paramCursor++
	case keybinds.ActionEditParameter:
		m.paramCursor = clamp(m.paramCursor, 0, len(params)-1)
		m.openParameterInput(params[m.paramCursor])
	case keybinds.ActionIncreaseParameter:
		m.stepParameter(1)
	case keybinds.ActionDecreaseParameter:
		m.stepParameter(-1)
	}
	m.paramCursor = clamp(m.paramCursor, 0, len(params)-1)
	return nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) tea.Cmd {
	if action, ok := m.keys.Match(keybinds.ContextTextInput, msg.String()); ok {
		switch action {
		case keybinds.ActionTextSubmit:
			return m.submitInput()
		case keybinds.ActionTextCancel:
			m.closeInput()
			return nil
		case keybinds.ActionTextPaste:
			if text, err := readClipboard(); err == nil {
				m.input.SetValue(m.input.Value() + text)
				m.input.CursorEnd()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.inputError = ""
	return cmd
}

func (m *Model) handleModelPickerKeys(msg tea.KeyMsg) tea.Cmd {
	if action, ok := m.keys.Match(keybinds.ContextModelPicker, msg.String()); ok {
		switch action {
		case keybinds.ActionCloseModal:
			m.mode = ModeNormal
			m.pickerInput.Blur()
			return nil
		case keybinds.ActionNavigateUp:
			m.pickerCursor = clamp(m.pickerCursor-1, 0, len(m.pickerResults)-1)
			return nil
		case keybinds.ActionNavigateDown:
			m.pickerCursor = clamp(m.pickerCursor+1, 0, len(m.pickerResults)-1)
			return nil
		case keybinds.ActionSelect:
			return m.selectPickedModel()
		}
	}

	var cmd tea.Cmd
	before := m.pickerInput.Value()
	m.pickerInput, cmd = m.pickerInput.Update(msg)
	if m.pickerInput.Value() != before {
		m.refreshPicker()
	}
	return cmd
}

func (m *Model) handleSubTubeKeys(msg tea.KeyMsg) tea.Cmd {
	action, ok := m.keys.Match(keybinds.ContextSubTubes, msg.String())
	if !ok {
		return nil
	}
	switch action {
	case keybinds.ActionCloseModal:
		m.mode = ModeNormal
	case keybinds.ActionNavigateUp:
		m.subTubeCursor = clamp(m.subTubeCursor-1, 0, m.subTubeCount()-1)
	case keybinds.ActionNavigateDown:
		m.subTubeCursor = clamp(m.subTubeCursor+1, 0, m.subTubeCount()-1)
	case keybinds.ActionToggleSubTube:
		m.toggleSubTube()
	}
	return nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) tea.Cmd {
	action, ok := m.keys.Match(keybinds.ContextConfirm, msg.String())
	if !ok {
		return nil
	}
	switch action {
	case keybinds.ActionConfirm:
		return m.closeDialog(true)
	case keybinds.ActionCancel:
		return m.closeDialog(false)
	}
	return nil
}

func (m *Model) handleAlertKeys(msg tea.KeyMsg) tea.Cmd {
	if action, ok := m.keys.Match(keybinds.ContextModal, msg.String()); ok && action == keybinds.ActionCloseModal {
		return m.closeDialog(true)
	}
	return nil
}

func (m *Model) handleRecentKeys(msg tea.KeyMsg) tea.Cmd {
	action, ok := m.keys.Match(keybinds.ContextRecent, msg.String())
	if !ok {
		return nil
	}
	switch action {
	case keybinds.ActionCloseModal:
		m.mode = ModeNormal
	case keybinds.ActionNavigateUp:
		m.recentCursor = clamp(m.recentCursor-1, 0, len(m.recent)-1)
	case keybinds.ActionNavigateDown:
		m.recentCursor = clamp(m.recentCursor+1, 0, len(m.recent)-1)
	case keybinds.ActionSelect:
		if len(m.recent) == 0 {
			m.mode = ModeNormal
			return nil
		}
		path := m.recent[m.recentCursor]
		m.mode = ModeNormal
		return m.loadTemplate(path)
	}
	return nil
}

// handleViewerKeys scrolls the history and help viewers
func (m *Model) handleViewerKeys(ctx keybinds.Context, msg tea.KeyMsg) tea.Cmd {
	action, ok, partial := m.keys.MatchMultiKey(ctx, msg.String())
	if partial || !ok {
		return nil
	}
	switch action {
	case keybinds.ActionCloseModal:
		m.mode = ModeNormal
	case keybinds.ActionNavigateUp:
		m.modalView.LineUp(1)
	case keybinds.ActionNavigateDown:
		m.modalView.LineDown(1)
	case keybinds.ActionPageUp:
		m.modalView.ViewUp()
	case keybinds.ActionPageDown:
		m.modalView.ViewDown()
	case keybinds.ActionHalfPageUp:
		m.modalView.HalfViewUp()
	case keybinds.ActionHalfPageDown:
		m.modalView.HalfViewDown()
	case keybinds.ActionGoToTop:
		m.modalView.GotoTop()
	case keybinds.ActionGoToBottom:
		m.modalView.GotoBottom()
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

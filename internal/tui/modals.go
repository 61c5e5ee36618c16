package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/types"
)

// Confirm and alert dialogs

// openDialog shows a request coming from the channel model
func (m *Model) openDialog(req dialogRequest) {
	if m.mode != ModeConfirm && m.mode != ModeAlert {
		m.returnMode = m.mode
	}
	// a TUI prompt that was open stays unanswered; its proposal remains pending
	m.onConfirm = nil
	m.dialogMessage = req.message
	m.dialogReply = req.reply
	if req.alert {
		m.mode = ModeAlert
	} else {
		m.mode = ModeConfirm
	}
}

// askConfirm shows a yes/no prompt raised by the TUI itself
func (m *Model) askConfirm(message string, fn func(bool) tea.Cmd) {
	m.returnMode = m.mode
	m.dialogMessage = message
	m.dialogReply = nil
	m.onConfirm = fn
	m.mode = ModeConfirm
}

// closeDialog answers the open dialog and restores the previous mode
func (m *Model) closeDialog(answer bool) tea.Cmd {
	m.mode = m.returnMode
	m.dialogMessage = ""
	if m.dialogReply != nil {
		m.answerDialog(answer)
		return m.dialogs.wait()
	}
	if fn := m.onConfirm; fn != nil {
		m.onConfirm = nil
		return fn(answer)
	}
	return nil
}

func (m *Model) answerDialog(answer bool) {
	if m.dialogReply == nil {
		return
	}
	m.dialogReply <- answer
	m.dialogReply = nil
}

// Model picker

func (m *Model) openModelPicker() {
	ch, ok := m.selectedForEdit()
	if !ok {
		return
	}
	if ch.IsMultiChannelChild {
		parent, _ := m.channels.Channel(ch.ParentChannelID)
		m.setError(fmt.Sprintf("Sub-tube channels use the model of channel %d", parent.Number))
		return
	}

	m.pickerInput.SetValue("")
	m.pickerInput.Focus()
	m.refreshPicker()
	m.pickerCursor = 0
	for i, info := range m.pickerResults {
		if info.ID == ch.ModelID {
			m.pickerCursor = i
		}
	}
	m.mode = ModeModelPicker
}

func (m *Model) refreshPicker() {
	m.pickerResults = m.catalog.Search(m.pickerInput.Value())
	m.pickerCursor = clamp(m.pickerCursor, 0, len(m.pickerResults)-1)
}

func (m *Model) selectPickedModel() tea.Cmd {
	if len(m.pickerResults) == 0 {
		return nil
	}
	info := m.pickerResults[m.pickerCursor]
	m.pickerInput.Blur()
	m.mode = ModeNormal

	ch, ok := m.channels.SelectedChannel()
	if !ok {
		return nil
	}
	m.channels.SetModelSelection(ch.ID, info.ID, info.Name)
	m.clampCursors()

	msg := fmt.Sprintf("Channel %d: model %s", ch.Number, info.Name)
	if info.IsMultiChannel() {
		msg += fmt.Sprintf(", press %s to choose sub-tubes",
			m.keys.GetBindingString(keybinds.ContextNormal, keybinds.ActionOpenSubTubes))
	}
	return m.setStatus(msg)
}

func (m *Model) clearModel() tea.Cmd {
	ch, ok := m.selectedForEdit()
	if !ok || ch.ModelID == "" || ch.IsMultiChannelChild {
		return nil
	}
	m.channels.SetModelSelection(ch.ID, "", "")
	m.clampCursors()
	return m.setStatus(fmt.Sprintf("Channel %d: model cleared", ch.Number))
}

// Sub-tubes

func (m *Model) openSubTubes() {
	ch, ok := m.channels.SelectedChannel()
	if !ok {
		m.setError("Select a channel first")
		return
	}
	if ch.IsMultiChannelChild {
		ch, ok = m.channels.Channel(ch.ParentChannelID)
		if !ok {
			return
		}
	}
	info, known := m.catalog.ModelInfo(ch.ModelID)
	if !known || !info.IsMultiChannel() {
		m.setError(fmt.Sprintf("Channel %d has no multi-channel model", ch.Number))
		return
	}

	m.subTubeBase = ch.ID
	m.subTubeCursor = 0
	m.mode = ModeSubTubes
}

func (m *Model) subTubeCount() int {
	base, ok := m.channels.Channel(m.subTubeBase)
	if !ok {
		return 0
	}
	info, ok := m.catalog.ModelInfo(base.ModelID)
	if !ok {
		return 0
	}
	if info.SubTubes <= 0 || info.SubTubes > types.MaxSubTubes {
		return types.MaxSubTubes
	}
	return info.SubTubes
}

func (m *Model) toggleSubTube() {
	base, ok := m.channels.Channel(m.subTubeBase)
	if !ok {
		m.mode = ModeNormal
		return
	}
	if base.Locked {
		m.setError(fmt.Sprintf("Channel %d is locked", base.Number))
		return
	}
	if !m.channels.ToggleMultiChannelSelection(base.ID, m.subTubeCursor+1) {
		m.setError("At least one sub-tube must stay selected")
		return
	}
	m.errorMsg = ""
}

// Model parameters

// selectedParameters lists the parameters the selected channel's model
// exposes. The centre-tube protrusion is only offered while the centre tube
// is selected.
func (m *Model) selectedParameters() []types.ParameterRange {
	ch, ok := m.channels.SelectedChannel()
	if !ok || ch.ModelID == "" {
		return nil
	}
	info, ok := m.catalog.ModelInfo(ch.ModelID)
	if !ok {
		return nil
	}
	params := make([]types.ParameterRange, 0, len(info.Parameters))
	for _, p := range info.Parameters {
		if p.Key == types.ParamCenterTubeProtrusion && !ch.CenterTubeEditable() {
			continue
		}
		params = append(params, p)
	}
	return params
}

// parameterValue returns the channel's value for a parameter or its default
func parameterValue(ch types.Channel, p types.ParameterRange) float64 {
	if v, ok := ch.ModelParameters[p.Key]; ok {
		return v
	}
	switch p.Key {
	case types.ParamProtrusionLength:
		if ch.ProtrusionLength != nil {
			return *ch.ProtrusionLength
		}
	case types.ParamCenterTubeProtrusion:
		if ch.CenterTubeProtrusion != nil {
			return *ch.CenterTubeProtrusion
		}
	}
	return p.Default
}

func parameterLabel(p types.ParameterRange) string {
	if p.Label != "" {
		return p.Label
	}
	return p.Key
}

// stepParameter moves the parameter under the cursor one step up or down
func (m *Model) stepParameter(dir int) {
	params := m.selectedParameters()
	if len(params) == 0 {
		return
	}
	ch, ok := m.selectedForEdit()
	if !ok {
		return
	}
	p := params[clamp(m.paramCursor, 0, len(params)-1)]
	step := p.Step
	if step <= 0 {
		step = 1
	}
	current := parameterValue(ch, p)
	next := p.Clamp(current + float64(dir)*step)
	if next == current {
		return
	}
	m.channels.UpdateModelParameter(ch.ID, p.Key, next)
}

// Recent templates

func (m *Model) openRecent() {
	m.recent = m.session.GetRecentTemplates()
	m.recentCursor = 0
	m.mode = ModeRecent
}

// History

func (m *Model) openHistory() tea.Cmd {
	if m.history == nil {
		m.setError("History is disabled")
		return nil
	}
	m.historyEvents = nil
	m.modalView.SetContent("Loading...")
	m.mode = ModeHistory

	store := m.history
	return func() tea.Msg {
		events, err := store.Load(HistoryLimit)
		return historyLoadedMsg{events: events, err: err}
	}
}

func (m *Model) updateHistoryView() {
	if len(m.historyEvents) == 0 {
		m.modalView.SetContent(styleSubtle.Render("No changes recorded"))
		return
	}

	var b strings.Builder
	for i, e := range m.historyEvents {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styleSubtle.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")))
		fmt.Fprintf(&b, "  #%-3d %-12s %s", e.ChannelNumber, truncate(e.ChannelName, 12), e.Event)
		if e.Field != "" {
			fmt.Fprintf(&b, " %s", e.Field)
		}
		if e.Value != "" {
			fmt.Fprintf(&b, " = %s", truncate(e.Value, 40))
		}
	}
	m.modalView.SetContent(b.String())
	m.modalView.GotoTop()
}

// Help

var helpSections = []struct {
	title   string
	context keybinds.Context
}{
	{"Channels", keybinds.ContextNormal},
	{"Dwell positions", keybinds.ContextDwell},
	{"Model parameters", keybinds.ContextParameters},
	{"Model picker", keybinds.ContextModelPicker},
	{"Sub-tubes", keybinds.ContextSubTubes},
	{"Confirm", keybinds.ContextConfirm},
}

func (m *Model) openHelp() {
	m.modalView.SetContent(m.helpContent())
	m.modalView.GotoTop()
	m.mode = ModeHelp
}

// helpContent lists the bound keys per context, grouped by action
func (m *Model) helpContent() string {
	var b strings.Builder
	for i, section := range helpSections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(styleTitle.Render(section.title))

		keys := make(map[keybinds.Action][]string)
		for _, binding := range m.keys.ListBindings(section.context) {
			if binding.Context != section.context || binding.Action == keybinds.ActionGoToTopPrepare {
				continue
			}
			keys[binding.Action] = append(keys[binding.Action], displayKey(binding.Key))
		}

		actions := make([]keybinds.Action, 0, len(keys))
		for action := range keys {
			actions = append(actions, action)
		}
		slices.SortFunc(actions, func(a, b keybinds.Action) int {
			ia, ib := keybinds.GetActionInfo(a), keybinds.GetActionInfo(b)
			if c := strings.Compare(ia.Category, ib.Category); c != 0 {
				return c
			}
			return strings.Compare(ia.Description, ib.Description)
		})

		for _, action := range actions {
			k := keys[action]
			slices.Sort(k)
			fmt.Fprintf(&b, "\n  %-22s %s", strings.Join(k, ", "), keybinds.GetActionInfo(action).Description)
		}
	}
	return b.String()
}

func displayKey(key string) string {
	if key == " " {
		return "space"
	}
	return key
}

// updateViewports sizes the scrollable views after a resize
func (m *Model) updateViewports() {
	sideWidth := m.sidePaneWidth()
	m.dwellView.Width = sideWidth - 4
	m.dwellView.Height = max(1, m.dwellPaneHeight()-4)

	m.modalView.Width = max(10, m.width-ModalWidthMarginNarrow-4)
	m.modalView.Height = max(1, m.height-ModalHeightMarginMed-ModalOverheadLines-ModalFooterLines)
	if m.mode == ModeHelp {
		m.modalView.SetContent(m.helpContent())
	}
}

func (m *Model) sidePaneWidth() int {
	return max(SidePaneMinWidth, m.width*SidePanePercent/100)
}

// dwellPaneHeight is the outer height of the dwell box, parameters go below it
func (m *Model) dwellPaneHeight() int {
	return max(6, m.height-StatusBarHeight-ParameterPaneLines-2)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

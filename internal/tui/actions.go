package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/channel"
	"github.com/hohoca/brachyplan/internal/config"
	"github.com/hohoca/brachyplan/internal/filter"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/template"
	"github.com/hohoca/brachyplan/internal/types"
)

// writeClipboard is swapped out in tests
var writeClipboard = clipboard.WriteAll

var fieldLabels = map[string]string{
	types.FieldName:         "Name",
	types.FieldChannelIndex: "Channel index",
	types.FieldDwellStep:    "Dwell step (mm)",
	types.FieldSourceLength: "Source length (mm)",
	types.FieldOffset:       "Offset (mm)",
}

// visibleChannels returns the channels matching the active filter
func (m *Model) visibleChannels() []types.Channel {
	chs := m.channels.Channels()
	if m.filterExpr == "" {
		return chs
	}
	matched, err := filter.MatchChannels(chs, m.filterExpr)
	if err != nil {
		m.logger.Debug("channel filter failed", "expr", m.filterExpr, "error", err)
		return chs
	}
	return matched
}

func selectedIndex(chs []types.Channel, id string) int {
	for i, ch := range chs {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// moveSelection moves the selection through the visible channels
func (m *Model) moveSelection(delta int) {
	chs := m.visibleChannels()
	if len(chs) == 0 {
		return
	}
	idx := selectedIndex(chs, m.channels.SelectedID())
	next := clamp(idx+delta, 0, len(chs)-1)
	if next != idx {
		m.channels.SelectChannel(chs[next].ID)
	}
}

func (m *Model) pageSize() int {
	return max(1, m.height-MainViewHeightOffset)
}

// withSelected runs fn on the selected channel or reports that none is selected
func (m *Model) withSelected(fn func(id string)) {
	ch, ok := m.channels.SelectedChannel()
	if !ok {
		m.setError("Select a channel first")
		return
	}
	fn(ch.ID)
}

// selectedForEdit returns the selected channel when it accepts changes
func (m *Model) selectedForEdit() (types.Channel, bool) {
	ch, ok := m.channels.SelectedChannel()
	if !ok {
		m.setError("Select a channel first")
		return ch, false
	}
	if ch.Locked {
		m.setError(fmt.Sprintf("Channel %d is locked", ch.Number))
		return ch, false
	}
	return ch, true
}

// clampCursors keeps pane cursors valid after the channel list changed
func (m *Model) clampCursors() {
	m.dwellCursor = clamp(m.dwellCursor, 0, len(m.channels.Grid().Positions)-1)
	if params := m.selectedParameters(); len(params) > 0 {
		m.paramCursor = clamp(m.paramCursor, 0, len(params)-1)
	} else if m.focus == FocusParameters {
		m.focus = FocusChannels
	}
	if _, ok := m.channels.SelectedChannel(); !ok {
		m.focus = FocusChannels
	}
}

// syncDwellCursor moves the dwell cursor to the first active position
func (m *Model) syncDwellCursor() {
	ch, ok := m.channels.SelectedChannel()
	if !ok || len(ch.ActivePositions) == 0 {
		m.clampCursors()
		return
	}
	for i, p := range m.channels.Grid().Positions {
		if math.Abs(p-ch.ActivePositions[0]) < 1e-6 {
			m.dwellCursor = i
			return
		}
	}
}

func (m *Model) addChannel() tea.Cmd {
	ch := m.channels.AddChannel()
	if m.filterExpr != "" && selectedIndex(m.visibleChannels(), ch.ID) < 0 {
		m.filterExpr = ""
	}
	return m.setStatus(fmt.Sprintf("Channel %d added", ch.Number))
}

func (m *Model) deleteChannel() tea.Cmd {
	ch, ok := m.channels.SelectedChannel()
	if !ok {
		m.setError("Select a channel first")
		return nil
	}
	if ch.IsMultiChannelChild {
		parent, _ := m.channels.Channel(ch.ParentChannelID)
		m.setError(fmt.Sprintf("Sub-tube channels are removed through the sub-tubes of channel %d", parent.Number))
		return nil
	}

	cm, id, number := m.channels, ch.ID, ch.Number
	return m.runAsync(func(ctx context.Context) (string, error) {
		deleted, err := cm.DeleteChannel(ctx, id)
		if err != nil || !deleted {
			return "", err
		}
		return fmt.Sprintf("Channel %d deleted", number), nil
	})
}

func (m *Model) deleteAll() tea.Cmd {
	if m.channels.Len() == 0 {
		return m.setStatus("No channels")
	}
	cm := m.channels
	return m.runAsync(func(ctx context.Context) (string, error) {
		deleted, err := cm.DeleteAll(ctx)
		if err != nil || !deleted {
			return "", err
		}
		return "All channels deleted", nil
	})
}

func (m *Model) resetParameters() tea.Cmd {
	ch, ok := m.selectedForEdit()
	if !ok {
		return nil
	}
	if ch.ModelID == "" {
		m.setError(fmt.Sprintf("Channel %d has no model", ch.Number))
		return nil
	}
	cm, id, number := m.channels, ch.ID, ch.Number
	return m.runAsync(func(ctx context.Context) (string, error) {
		reset, err := cm.ResetModelParameters(ctx, id)
		if err != nil || !reset {
			return "", err
		}
		return fmt.Sprintf("Model parameters of channel %d reset", number), nil
	})
}

func manualRebuild(cm *channel.Model) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		ch, ok := cm.SelectedChannel()
		if err := cm.RequestManualRebuild(ctx); err != nil || !ok {
			return "", err
		}
		return fmt.Sprintf("Channel %d sent to manual reconstruction", ch.Number), nil
	}
}

func autoRebuild(cm *channel.Model) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		ch, ok := cm.SelectedChannel()
		if err := cm.RequestAutoRebuild(ctx); err != nil || !ok {
			return "", err
		}
		return fmt.Sprintf("Channel %d sent to automatic reconstruction", ch.Number), nil
	}
}

// copySummary copies a text summary of the selected channel
func (m *Model) copySummary() tea.Cmd {
	ch, ok := m.channels.SelectedChannel()
	if !ok {
		m.setError("Select a channel first")
		return nil
	}
	if err := writeClipboard(channelSummary(ch)); err != nil {
		m.setError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		return nil
	}
	return m.setStatus(fmt.Sprintf("Channel %d copied to clipboard", ch.Number))
}

func channelSummary(ch types.Channel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel %d (%s)\n", ch.Number, ch.Name)
	fmt.Fprintf(&b, "Index: %d\n", ch.ChannelIndex)
	fmt.Fprintf(&b, "Dwell step: %s mm\n", formatFloat(ch.DwellStep))
	fmt.Fprintf(&b, "Source length: %s mm\n", formatFloat(ch.SourceLength))
	fmt.Fprintf(&b, "Offset: %s mm\n", formatFloat(ch.Offset))
	if ch.ModelID != "" {
		fmt.Fprintf(&b, "Model: %s (%s)\n", ch.ModelName, ch.ModelID)
	}
	positions := make([]string, len(ch.ActivePositions))
	for i, p := range ch.ActivePositions {
		positions[i] = formatFloat(p)
	}
	fmt.Fprintf(&b, "Active positions (%d): %s", len(positions), strings.Join(positions, ", "))
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Text prompts

func (m *Model) openInput(kind inputKind, title, value string) {
	m.inputKind = kind
	m.inputTitle = title
	m.inputError = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.mode = ModeInput
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.inputError = ""
	m.mode = ModeNormal
}

func (m *Model) openFieldInput(field string) {
	ch, ok := m.selectedForEdit()
	if !ok {
		return
	}
	var value string
	switch field {
	case types.FieldName:
		value = ch.Name
	case types.FieldChannelIndex:
		value = strconv.Itoa(ch.ChannelIndex)
	case types.FieldDwellStep:
		value = formatFloat(ch.DwellStep)
	case types.FieldSourceLength:
		value = formatFloat(ch.SourceLength)
	case types.FieldOffset:
		value = formatFloat(ch.Offset)
	}
	m.openInput(inputField, fmt.Sprintf("Channel %d: %s", ch.Number, fieldLabels[field]), value)
	m.inputField = field
}

func (m *Model) openParameterInput(p types.ParameterRange) {
	ch, ok := m.selectedForEdit()
	if !ok {
		return
	}
	title := fmt.Sprintf("Channel %d: %s (%s to %s %s)", ch.Number, parameterLabel(p),
		formatFloat(p.Min), formatFloat(p.Max), p.Unit)
	m.openInput(inputParameter, title, formatFloat(parameterValue(ch, p)))
	m.inputField = p.Key
}

func (m *Model) openPoseInput(kind inputKind) {
	ch, ok := m.selectedForEdit()
	if !ok {
		return
	}
	if ch.ModelID == "" {
		m.setError(fmt.Sprintf("Channel %d has no model", ch.Number))
		return
	}
	title := fmt.Sprintf("Move model of channel %d by dx,dy,dz (mm)", ch.Number)
	if kind == inputRotate {
		title = fmt.Sprintf("Rotate model of channel %d by rx,ry,rz (degrees)", ch.Number)
	}
	m.openInput(kind, title, "0,0,0")
}

func (m *Model) openTemplateInput(kind inputKind) {
	title := "Save template as"
	if kind == inputLoadTemplate {
		title = "Load template"
	}
	value := ""
	if recent := m.session.GetRecentTemplates(); len(recent) > 0 {
		value = recent[0]
	}
	m.openInput(kind, title, value)
}

func (m *Model) openFilterInput() {
	m.openInput(inputFilter, "Filter channels (JMESPath, e.g. locked || modelId=='model6')", m.filterExpr)
}

// submitInput applies the text prompt
func (m *Model) submitInput() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())

	switch m.inputKind {
	case inputField:
		ch, ok := m.channels.SelectedChannel()
		if !ok {
			m.closeInput()
			return nil
		}
		if m.inputField != types.FieldName {
			if _, ok := channel.ParseNumber(value); !ok {
				m.inputError = "Enter a number"
				return nil
			}
		}
		m.channels.UpdateField(ch.ID, m.inputField, value)
		m.closeInput()
		m.clampCursors()
		return m.setStatus(fmt.Sprintf("Channel %d: %s updated", ch.Number, strings.ToLower(fieldLabels[m.inputField])))

	case inputParameter:
		ch, ok := m.channels.SelectedChannel()
		if !ok {
			m.closeInput()
			return nil
		}
		v, ok := channel.ParseNumber(value)
		if !ok {
			m.inputError = "Enter a number"
			return nil
		}
		m.channels.UpdateModelParameter(ch.ID, m.inputField, v)
		m.closeInput()
		return m.setStatus(fmt.Sprintf("Channel %d: %s updated", ch.Number, m.inputField))

	case inputMove, inputRotate:
		ch, ok := m.channels.SelectedChannel()
		if !ok {
			m.closeInput()
			return nil
		}
		delta, err := parsePoint(value)
		if err != nil {
			m.inputError = err.Error()
			return nil
		}
		m.closeInput()
		if m.inputKind == inputMove {
			m.channels.MoveModel(ch.ID, delta)
			return m.setStatus(fmt.Sprintf("Model of channel %d moved", ch.Number))
		}
		m.channels.RotateModel(ch.ID, delta)
		return m.setStatus(fmt.Sprintf("Model of channel %d rotated", ch.Number))

	case inputFilter:
		if filter.IsShellCommand(value) {
			m.inputError = "Shell commands are not supported in filters"
			return nil
		}
		if _, err := filter.MatchChannels(m.channels.Channels(), value); err != nil {
			m.inputError = err.Error()
			return nil
		}
		m.filterExpr = value
		m.closeInput()
		chs := m.visibleChannels()
		if len(chs) > 0 && selectedIndex(chs, m.channels.SelectedID()) < 0 {
			m.channels.SelectChannel(chs[0].ID)
		}
		if value == "" {
			return m.setStatus("Filter cleared")
		}
		return m.setStatus(fmt.Sprintf("%d channels match", len(chs)))

	case inputSaveTemplate:
		if value == "" {
			m.inputError = "Enter a file name"
			return nil
		}
		path, err := m.saveTemplate(value)
		if err != nil {
			m.inputError = err.Error()
			return nil
		}
		m.closeInput()
		return m.setStatus("Template saved to " + path)

	case inputLoadTemplate:
		if value == "" {
			m.inputError = "Enter a file name"
			return nil
		}
		m.closeInput()
		return m.loadTemplate(value)
	}

	m.closeInput()
	return nil
}

// parsePoint reads "x,y,z" (commas or spaces)
func parsePoint(s string) (types.Point3D, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) != 3 {
		return types.Point3D{}, fmt.Errorf("expected three values, got %d", len(parts))
	}
	var v [3]float64
	for i, part := range parts {
		f, ok := channel.ParseNumber(part)
		if !ok {
			return types.Point3D{}, fmt.Errorf("invalid number %q", part)
		}
		v[i] = f
	}
	return types.Point3D{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Templates

func (m *Model) saveTemplate(name string) (string, error) {
	path, err := config.ResolveTemplatePath(name)
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += ".yaml"
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", err)
	}

	t := m.channels.Snapshot(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err := template.Save(&t, path); err != nil {
		return "", err
	}
	if err := m.session.AddRecentTemplate(path); err != nil {
		m.logger.Warn("failed to remember template", "path", path, "error", err)
	}
	return path, nil
}

// loadTemplate reads the file now and replaces the channels in the
// background, since the replacement may need confirmation
func (m *Model) loadTemplate(name string) tea.Cmd {
	path, err := config.ResolveTemplatePath(name)
	if err != nil {
		m.setError(err.Error())
		return nil
	}
	t, err := template.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if rerr := m.session.RemoveRecentTemplate(path); rerr != nil {
				m.logger.Warn("failed to forget template", "path", path, "error", rerr)
			}
		}
		m.setError(err.Error())
		return nil
	}

	ctx, cm := m.ctx, m.channels
	return func() tea.Msg {
		loaded, err := cm.LoadTemplate(ctx, t)
		if err != nil {
			return opDoneMsg{err: err}
		}
		if !loaded {
			return opDoneMsg{}
		}
		return opDoneMsg{
			status: fmt.Sprintf("Loaded template %s (%d channels)", t.Name, len(t.Channels)),
			recent: path,
		}
	}
}

// Viewer registration points

func (m *Model) handleProposal(msg proposalMsg) tea.Cmd {
	key := m.keys.GetBindingString(keybinds.ContextNormal, keybinds.ActionConfirmPoints)
	if m.mode != ModeNormal {
		return m.setStatus(fmt.Sprintf("%d points proposed for channel %d, press %s to accept", len(msg.points), msg.number, key))
	}

	id := msg.channelID
	m.askConfirm(fmt.Sprintf("Accept %d registration points for channel %d?", len(msg.points), msg.number), func(yes bool) tea.Cmd {
		if !yes {
			m.bridge.RejectPending(id)
			return m.setStatus("Registration points rejected")
		}
		return m.acceptPoints(id)
	})
	return nil
}

func (m *Model) confirmPoints() tea.Cmd {
	ch, ok := m.selectedForEdit()
	if !ok {
		return nil
	}
	if m.bridge == nil {
		m.setError("Viewer is not connected")
		return nil
	}
	if _, pending := m.bridge.Pending(ch.ID); !pending {
		m.setError(fmt.Sprintf("No proposed points for channel %d", ch.Number))
		return nil
	}
	return m.acceptPoints(ch.ID)
}

func (m *Model) acceptPoints(id string) tea.Cmd {
	if !m.bridge.ConfirmPending(id) {
		m.setError("Registration points were not accepted")
		return nil
	}
	ch, _ := m.channels.Channel(id)
	return m.setStatus(fmt.Sprintf("Model of channel %d reconstructed", ch.Number))
}

func (m *Model) clearPoints() tea.Cmd {
	ch, ok := m.selectedForEdit()
	if !ok {
		return nil
	}
	m.channels.ClearPreprocessingPoints(ch.ID)
	if m.bridge != nil {
		m.bridge.RejectPending(ch.ID)
	}
	return m.setStatus(fmt.Sprintf("Registration points of channel %d cleared", ch.Number))
}

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hohoca/brachyplan/internal/keybinds"
	"github.com/hohoca/brachyplan/internal/types"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "#00008b", Dark: "#0000ff"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Style definitions
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleSelected = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#d3d3d3", Dark: "#3a3a3a"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"})

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)
)

// renderMain renders the channel table, the dwell and parameter panes and the status bar
func (m *Model) renderMain() string {
	sideWidth := m.sidePaneWidth()
	tableWidth := m.width - sideWidth - 4 // Account for borders
	bodyHeight := m.height - StatusBarHeight

	table := m.renderChannelTable(tableWidth-2, bodyHeight-2)
	dwell := m.renderDwellPane()
	params := m.renderParameterPane(sideWidth - 2)

	tableBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColor(FocusChannels)).
		Width(tableWidth).
		Height(bodyHeight - 2).
		Render(table)

	dwellBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColor(FocusDwell)).
		Width(sideWidth).
		Height(m.dwellPaneHeight() - 2).
		Render(dwell)

	paramBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColor(FocusParameters)).
		Width(sideWidth).
		Height(ParameterPaneLines - 2).
		Render(params)

	side := lipgloss.JoinVertical(lipgloss.Left, dwellBox, paramBox)
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, tableBox, side)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		mainView,
		m.renderStatusBar(),
	)
}

func (m *Model) borderColor(f Focus) lipgloss.AdaptiveColor {
	if m.focus == f {
		return colorGreen
	}
	return colorGray
}

// renderChannelTable renders one row per visible channel
func (m *Model) renderChannelTable(width, height int) string {
	var lines []string

	title := "Channels"
	if m.filterExpr != "" {
		title += styleSubtle.Render(" (filter: " + truncate(m.filterExpr, 30) + ")")
	}
	lines = append(lines, styleTitle.Render(title))
	lines = append(lines, styleSubtle.Render(fmt.Sprintf("%-4s %-5s %-14s %6s %7s %6s %-20s %3s %3s %4s",
		"#", "Index", "Name", "Step", "Length", "Offset", "Model", "Vis", "Lck", "Dwell")))

	chs := m.visibleChannels()
	if len(chs) == 0 {
		hint := m.keys.GetBindingString(keybinds.ContextNormal, keybinds.ActionAddChannel)
		lines = append(lines, "", styleSubtle.Render("No channels. Press "+hint+" to add one."))
		return strings.Join(lines, "\n")
	}

	selected := selectedIndex(chs, m.channels.SelectedID())
	rows := max(1, height-2)
	offset := 0
	if selected >= rows {
		offset = selected - rows + 1
	}

	for i := offset; i < len(chs) && i < offset+rows; i++ {
		line := truncate(channelRow(chs[i]), width)
		if i == selected {
			line = styleSelected.Render(line)
		} else if chs[i].Locked {
			line = styleWarning.Render(line)
		} else if !chs[i].Visible {
			line = styleSubtle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func channelRow(ch types.Channel) string {
	name := ch.Name
	if ch.IsMultiChannelChild {
		name = fmt.Sprintf("└ tube %d", ch.SubTube)
	}
	model := "-"
	if ch.ModelID != "" {
		model = ch.ModelName
		if ch.IsModelReconstructed {
			model += " ✓"
		}
	}
	return fmt.Sprintf("%-4d %-5d %-14s %6s %7s %6s %-20s %3s %3s %4d",
		ch.Number, ch.ChannelIndex, truncate(name, 14),
		formatFloat(ch.DwellStep), formatFloat(ch.SourceLength), formatFloat(ch.Offset),
		truncate(model, 20), yesNo(ch.Visible), yesNo(ch.Locked), len(ch.ActivePositions))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// renderDwellPane renders the grid positions of the selected channel
func (m *Model) renderDwellPane() string {
	grid := m.channels.Grid()
	ch, ok := m.channels.SelectedChannel()
	title := styleTitle.Render(fmt.Sprintf("Dwell positions (step %s mm)", formatFloat(grid.Step)))
	if !ok {
		return title + "\n\n" + styleSubtle.Render("No channel selected")
	}

	active := make(map[float64]bool, len(ch.ActivePositions))
	for _, p := range ch.ActivePositions {
		active[roundPosition(p)] = true
	}

	lines := make([]string, len(grid.Positions))
	for i, p := range grid.Positions {
		mark := "[ ]"
		if active[roundPosition(p)] {
			mark = styleSuccess.Render("[x]")
		}
		line := fmt.Sprintf("%s %8.1f", mark, p)
		if i == m.dwellCursor && m.focus == FocusDwell {
			line = styleSelected.Render(line)
		}
		lines[i] = line
	}

	// keep the cursor visible
	m.dwellView.SetContent(strings.Join(lines, "\n"))
	top := m.dwellView.YOffset
	if m.dwellCursor < top {
		m.dwellView.SetYOffset(m.dwellCursor)
	} else if m.dwellCursor >= top+m.dwellView.Height {
		m.dwellView.SetYOffset(m.dwellCursor - m.dwellView.Height + 1)
	}

	header := fmt.Sprintf("Channel %d, %d active", ch.Number, len(ch.ActivePositions))
	return title + "\n" + styleSubtle.Render(header) + "\n" + m.dwellView.View()
}

func roundPosition(p float64) float64 {
	return math.Round(p*1000) / 1000
}

// renderParameterPane renders the model parameters of the selected channel
func (m *Model) renderParameterPane(width int) string {
	title := styleTitle.Render("Model")
	ch, ok := m.channels.SelectedChannel()
	if !ok || ch.ModelID == "" {
		hint := m.keys.GetBindingString(keybinds.ContextNormal, keybinds.ActionOpenModelPicker)
		return title + "\n" + styleSubtle.Render("No model. Press "+hint+" to choose one.")
	}

	lines := []string{title + " " + truncate(ch.ModelName, width-8)}
	if len(ch.SelectedChannels) > 0 {
		tubes := make([]string, len(ch.SelectedChannels))
		for i, s := range ch.SelectedChannels {
			tubes[i] = fmt.Sprint(s)
		}
		lines = append(lines, styleSubtle.Render("Sub-tubes: "+strings.Join(tubes, ",")))
	}

	for i, p := range m.selectedParameters() {
		line := fmt.Sprintf("%-22s %6s %s", truncate(parameterLabel(p), 22), formatFloat(parameterValue(ch, p)), p.Unit)
		if i == m.paramCursor && m.focus == FocusParameters {
			line = styleSelected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderStatusBar renders the bottom line
func (m *Model) renderStatusBar() string {
	if m.errorMsg != "" {
		return styleError.Render("Error: " + m.errorMsg)
	}
	if m.statusMsg != "" {
		return styleSuccess.Render(m.statusMsg)
	}

	help := m.keys.GetBindingString(keybinds.ContextNormal, keybinds.ActionOpenHelp)
	left := fmt.Sprintf("%d channels", m.channels.Len())
	if m.bridge != nil {
		left += " | viewer"
	}
	return styleSubtle.Render(left + " | " + help + ": help")
}

// renderModal centers a bordered box with a title, content and footer
func (m *Model) renderModal(title, content, footer string, width int) string {
	if width > m.width-2 {
		width = m.width - 2
	}
	full := styleTitle.Render(title) + "\n\n" + content
	if footer != "" {
		full += "\n\n" + styleSubtle.Render(footer)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBlue).
		Width(width).
		Padding(1, 2).
		Render(full)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderScrollModal renders the history and help viewers
func (m *Model) renderScrollModal(title, footer string) string {
	content := styleTitle.Render(title) + "\n\n" + m.modalView.View() + "\n\n" + styleSubtle.Render(footer)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBlue).
		Width(m.width - ModalWidthMarginNarrow).
		Height(m.height - ModalHeightMarginMed).
		Padding(1, 2).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderHelp() string {
	return m.renderScrollModal("Keyboard Shortcuts", "↑/↓ j/k: scroll | ESC/?: close")
}

func (m *Model) renderHistory() string {
	return m.renderScrollModal(fmt.Sprintf("Change History (%d)", len(m.historyEvents)), "↑/↓ j/k: scroll | ESC/H: close")
}

func (m *Model) renderInputModal() string {
	content := m.input.View()
	if m.inputError != "" {
		content += "\n\n" + styleError.Render(m.inputError)
	}
	return m.renderModal(m.inputTitle, content, "Enter: apply | ESC: cancel", InputModalWidth)
}

func (m *Model) renderModelPicker() string {
	var b strings.Builder
	b.WriteString(m.pickerInput.View())
	b.WriteString("\n")

	if len(m.pickerResults) == 0 {
		b.WriteString("\n" + styleSubtle.Render("No matching models"))
	}

	offset := 0
	if m.pickerCursor >= PickerMaxVisible {
		offset = m.pickerCursor - PickerMaxVisible + 1
	}
	for i := offset; i < len(m.pickerResults) && i < offset+PickerMaxVisible; i++ {
		info := m.pickerResults[i]
		line := fmt.Sprintf("%-26s %-14s %s", truncate(info.Name, 26), info.Type, styleSubtle.Render(truncate(info.Description, 30)))
		if i == m.pickerCursor {
			line = styleSelected.Render(fmt.Sprintf("%-26s %-14s %s", truncate(info.Name, 26), info.Type, truncate(info.Description, 30)))
		}
		b.WriteString("\n" + line)
	}

	return m.renderModal("Choose model", b.String(), "type to search | ↑/↓: move | Enter: select | ESC: cancel", PickerModalWidth)
}

func (m *Model) renderSubTubes() string {
	base, ok := m.channels.Channel(m.subTubeBase)
	if !ok {
		return m.renderModal("Sub-tubes", styleSubtle.Render("Channel no longer exists"), "ESC: close", ConfirmModalWidth)
	}

	var b strings.Builder
	for i := 0; i < m.subTubeCount(); i++ {
		n := i + 1
		mark := "[ ]"
		if base.HasSubTube(n) {
			mark = "[x]"
		}
		label := fmt.Sprintf("Sub-tube %d", n)
		if n == types.CenterSubTube {
			label += " (centre)"
		}
		line := mark + " " + label
		if i == m.subTubeCursor {
			line = styleSelected.Render(line)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	if m.errorMsg != "" {
		b.WriteString("\n\n" + styleError.Render(m.errorMsg))
	}

	title := fmt.Sprintf("Sub-tubes of channel %d (%s)", base.Number, base.ModelName)
	return m.renderModal(title, b.String(), "↑/↓: move | Space/Enter: toggle | ESC: close", ConfirmModalWidth)
}

func (m *Model) renderDialog() string {
	if m.mode == ModeAlert {
		return m.renderModal("Notice", m.dialogMessage, "Enter/ESC: close", ConfirmModalWidth)
	}
	return m.renderModal("Confirm", styleWarning.Render(m.dialogMessage), "y: yes | n/ESC: no", ConfirmModalWidth)
}

func (m *Model) renderRecent() string {
	if len(m.recent) == 0 {
		return m.renderModal("Recent templates", styleSubtle.Render("No recent templates"), "ESC: close", InputModalWidth)
	}

	lines := make([]string, len(m.recent))
	for i, path := range m.recent {
		line := truncate(path, InputModalWidth-6)
		if i == m.recentCursor {
			line = styleSelected.Render(line)
		}
		lines[i] = line
	}
	return m.renderModal("Recent templates", strings.Join(lines, "\n"), "↑/↓: move | Enter: load | ESC: close", InputModalWidth)
}

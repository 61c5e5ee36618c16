package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hohoca/brachyplan/internal/config"
	"github.com/hohoca/brachyplan/internal/history"
	"github.com/hohoca/brachyplan/internal/types"
	"github.com/hohoca/brachyplan/internal/viewer"
)

func TestNew_Defaults(t *testing.T) {
	m := CreateTestModel(t, false)

	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
	if m.focus != FocusChannels {
		t.Errorf("Expected channel focus, got %v", m.focus)
	}
	if got := m.View(); got != "Initializing..." {
		t.Errorf("Expected placeholder view before the first resize, got %q", got)
	}
}

func TestAddAndNavigate(t *testing.T) {
	m := CreateTestModel(t, false)

	press(m, "a", "a", "a")
	if m.channels.Len() != 3 {
		t.Fatalf("Expected 3 channels, got %d", m.channels.Len())
	}
	if m.channels.SelectedID() != "ch-3" {
		t.Errorf("Expected new channel selected, got %s", m.channels.SelectedID())
	}

	tests := []struct {
		keys []string
		want string
	}{
		{[]string{"k"}, "ch-2"},
		{[]string{"up", "up"}, "ch-1"},
		{[]string{"j"}, "ch-2"},
		{[]string{"G"}, "ch-3"},
		{[]string{"g", "g"}, "ch-1"},
	}
	for _, tt := range tests {
		press(m, tt.keys...)
		if got := m.channels.SelectedID(); got != tt.want {
			t.Errorf("After %v: expected %s selected, got %s", tt.keys, tt.want, got)
		}
	}
}

func TestEditField(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")

	press(m, "n")
	if m.mode != ModeInput {
		t.Fatalf("Expected ModeInput, got %v", m.mode)
	}
	if m.input.Value() != types.DefaultChannelName {
		t.Errorf("Expected input prefilled with %q, got %q", types.DefaultChannelName, m.input.Value())
	}

	m.input.SetValue("")
	typeText(m, "Left ovoid")
	press(m, "enter")

	ch, _ := m.channels.SelectedChannel()
	if ch.Name != "Left ovoid" {
		t.Errorf("Expected name 'Left ovoid', got %q", ch.Name)
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal after submit, got %v", m.mode)
	}
}

func TestEditField_InvalidNumber(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")

	press(m, "o")
	m.input.SetValue("abc")
	press(m, "enter")

	if m.mode != ModeInput {
		t.Fatalf("Expected prompt to stay open, got %v", m.mode)
	}
	if m.inputError == "" {
		t.Error("Expected an input error")
	}

	press(m, "esc")
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal after cancel, got %v", m.mode)
	}
	ch, _ := m.channels.SelectedChannel()
	if ch.Offset != types.DefaultOffset {
		t.Errorf("Expected offset unchanged, got %v", ch.Offset)
	}
}

func TestEditField_DwellStepRegeneratesGrid(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")

	press(m, "s")
	m.input.SetValue("5")
	press(m, "enter")

	if step := m.channels.Grid().Step; step != 5 {
		t.Errorf("Expected grid step 5, got %v", step)
	}
}

func TestLockedChannelRejectsEdit(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "L")

	press(m, "n")
	if m.mode != ModeNormal {
		t.Errorf("Expected prompt to stay closed for a locked channel, got %v", m.mode)
	}
	if !strings.Contains(m.errorMsg, "locked") {
		t.Errorf("Expected locked error, got %q", m.errorMsg)
	}
}

func TestDeleteChannel_Confirmed(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "a")

	seen, _ := runWithDialog(t, m, press(m, "d"), "y")

	if seen.mode != ModeConfirm {
		t.Errorf("Expected confirm modal, got %v", seen.mode)
	}
	if !strings.Contains(seen.message, "Delete channel 2") {
		t.Errorf("Unexpected confirm message %q", seen.message)
	}
	if m.channels.Len() != 1 {
		t.Errorf("Expected 1 channel, got %d", m.channels.Len())
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal after answer, got %v", m.mode)
	}
	if m.statusMsg != "Channel 2 deleted" {
		t.Errorf("Unexpected status %q", m.statusMsg)
	}
}

func TestDeleteChannel_Declined(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "a")

	runWithDialog(t, m, press(m, "d"), "n")

	if m.channels.Len() != 2 {
		t.Errorf("Expected 2 channels, got %d", m.channels.Len())
	}
}

func TestDeleteAll(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "a", "a")

	seen, _ := runWithDialog(t, m, press(m, "D"), "Y")

	if !strings.Contains(seen.message, "3 channels") {
		t.Errorf("Unexpected confirm message %q", seen.message)
	}
	if m.channels.Len() != 0 {
		t.Errorf("Expected no channels, got %d", m.channels.Len())
	}
}

func TestForceQuitAnswersOpenDialog(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")

	_, msg := runWithDialog(t, m, press(m, "d"), "ctrl+c")

	if done, ok := msg.(opDoneMsg); !ok || done.err != nil {
		t.Errorf("Expected a clean result, got %#v", msg)
	}
	if m.channels.Len() != 1 {
		t.Errorf("Expected channel kept, got %d", m.channels.Len())
	}
}

func TestRebuildWithoutSelectionAlerts(t *testing.T) {
	m := CreateTestModel(t, false)

	seen, msg := runWithDialog(t, m, press(m, "b"), "enter")

	if seen.mode != ModeAlert {
		t.Errorf("Expected alert modal, got %v", seen.mode)
	}
	if done := msg.(opDoneMsg); done.err != nil || done.status != "" {
		t.Errorf("Unexpected result %#v", done)
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestDwellToggle(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "tab")

	if m.focus != FocusDwell {
		t.Fatalf("Expected dwell focus, got %v", m.focus)
	}

	press(m, "space", "j", "enter")

	ch, _ := m.channels.SelectedChannel()
	want := []float64{1130, 1127.5}
	if len(ch.ActivePositions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ch.ActivePositions)
	}
	for i := range want {
		if ch.ActivePositions[i] != want[i] {
			t.Errorf("Position %d: expected %v, got %v", i, want[i], ch.ActivePositions[i])
		}
	}

	press(m, "space")
	ch, _ = m.channels.SelectedChannel()
	if len(ch.ActivePositions) != 1 || ch.ActivePositions[0] != 1130 {
		t.Errorf("Expected second toggle to remove 1127.5, got %v", ch.ActivePositions)
	}
}

func TestSwitchFocus_SkipsParametersWithoutModel(t *testing.T) {
	m := CreateTestModel(t, false)

	press(m, "tab")
	if m.focus != FocusChannels {
		t.Errorf("Expected focus to stay on channels without a selection, got %v", m.focus)
	}

	press(m, "a", "tab", "tab")
	if m.focus != FocusChannels {
		t.Errorf("Expected focus back on channels, got %v", m.focus)
	}
}

func TestModelPicker_SearchAndSelect(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "m")

	if m.mode != ModeModelPicker {
		t.Fatalf("Expected ModeModelPicker, got %v", m.mode)
	}
	if len(m.pickerResults) != 6 {
		t.Errorf("Expected every model listed, got %d", len(m.pickerResults))
	}

	typeText(m, "ring")
	if len(m.pickerResults) == 0 || m.pickerResults[0].ID != "model3" {
		t.Fatalf("Expected the ring model first, got %v", m.pickerResults)
	}

	press(m, "enter")
	ch, _ := m.channels.SelectedChannel()
	if ch.ModelID != "model3" || ch.ModelName != "Ring" {
		t.Errorf("Expected ring model, got %s (%s)", ch.ModelID, ch.ModelName)
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestModelPicker_Cancel(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "m", "down", "esc")

	ch, _ := m.channels.SelectedChannel()
	if ch.ModelID != "" {
		t.Errorf("Expected no model, got %s", ch.ModelID)
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestParameterPane(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")
	ch, _ := m.channels.SelectedChannel()
	m.channels.SetModelSelection(ch.ID, "model3", "")

	press(m, "tab", "tab")
	if m.focus != FocusParameters {
		t.Fatalf("Expected parameter focus, got %v", m.focus)
	}

	// diameter 30, step 4, max 34
	press(m, "+")
	press(m, "+")
	ch, _ = m.channels.SelectedChannel()
	if got := ch.ModelParameters["diameter"]; got != 34 {
		t.Errorf("Expected diameter clamped at 34, got %v", got)
	}

	// angle 60, step 15
	press(m, "j", "-")
	ch, _ = m.channels.SelectedChannel()
	if got := ch.ModelParameters["angle"]; got != 45 {
		t.Errorf("Expected angle 45, got %v", got)
	}

	press(m, "enter")
	if m.mode != ModeInput || m.inputKind != inputParameter {
		t.Fatalf("Expected parameter prompt, got mode %v", m.mode)
	}
	m.input.SetValue("90")
	press(m, "enter")
	ch, _ = m.channels.SelectedChannel()
	if got := ch.ModelParameters["angle"]; got != 90 {
		t.Errorf("Expected angle 90, got %v", got)
	}
}

func TestResetParameters(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")
	ch, _ := m.channels.SelectedChannel()
	m.channels.SetModelSelection(ch.ID, "model1", "")
	m.channels.UpdateModelParameter(ch.ID, "diameter", 40)

	runWithDialog(t, m, press(m, "R"), "y")

	ch, _ = m.channels.SelectedChannel()
	if len(ch.ModelParameters) != 0 {
		t.Errorf("Expected parameters cleared, got %v", ch.ModelParameters)
	}
}

func TestSubTubes(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "m", "down", "down", "down", "down", "down", "enter")

	base, _ := m.channels.SelectedChannel()
	if base.ModelID != "model6" {
		t.Fatalf("Expected multi-channel model, got %s", base.ModelID)
	}

	press(m, "t")
	if m.mode != ModeSubTubes {
		t.Fatalf("Expected ModeSubTubes, got %v", m.mode)
	}

	// add sub-tube 2
	press(m, "j", "space")
	if m.channels.Len() != 2 {
		t.Errorf("Expected a sub-tube channel, got %d channels", m.channels.Len())
	}

	// drop the centre tube, then try to drop the last one
	press(m, "k", "space", "j", "space")
	base, _ = m.channels.Channel(base.ID)
	if len(base.SelectedChannels) != 1 || base.SelectedChannels[0] != 2 {
		t.Errorf("Expected selection [2], got %v", base.SelectedChannels)
	}
	if m.errorMsg == "" {
		t.Error("Expected an error when removing the last sub-tube")
	}

	press(m, "esc")
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestDeleteChannel_SubTubeShowsHint(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "m", "down", "down", "down", "down", "down", "enter")
	press(m, "t", "j", "space", "esc")
	if m.channels.Len() != 2 {
		t.Fatalf("Expected base and sub-tube channel, got %d", m.channels.Len())
	}

	press(m, "j")
	child, _ := m.channels.SelectedChannel()
	if !child.IsMultiChannelChild {
		t.Fatalf("Expected the sub-tube channel selected, got channel %d", child.Number)
	}

	if cmd := press(m, "d"); cmd != nil {
		t.Error("Expected no confirmation for a sub-tube channel")
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
	if !strings.Contains(m.errorMsg, "sub-tubes of channel 1") {
		t.Errorf("Expected sub-tube hint, got %q", m.errorMsg)
	}
	if m.channels.Len() != 2 {
		t.Errorf("Expected channels kept, got %d", m.channels.Len())
	}
}

func TestSubTubes_RequiresMultiChannelModel(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "t")

	if m.mode != ModeNormal {
		t.Errorf("Expected modal to stay closed, got %v", m.mode)
	}
	if m.errorMsg == "" {
		t.Error("Expected an error")
	}
}

func TestMoveAndRotateModel(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a")
	ch, _ := m.channels.SelectedChannel()
	m.channels.SetModelSelection(ch.ID, "model2", "")

	press(m, "w")
	m.input.SetValue("1, 2, 3")
	press(m, "enter")

	press(m, "r")
	m.input.SetValue("0 0 90")
	press(m, "enter")

	ch, _ = m.channels.SelectedChannel()
	want := types.Pose{
		Translation: types.Point3D{X: 1, Y: 2, Z: 3},
		Rotation:    types.Point3D{Z: 90},
	}
	if ch.Pose != want {
		t.Errorf("Expected pose %+v, got %+v", want, ch.Pose)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Point3D
		wantErr bool
	}{
		{"1,2,3", types.Point3D{X: 1, Y: 2, Z: 3}, false},
		{"1 2 3", types.Point3D{X: 1, Y: 2, Z: 3}, false},
		{" -1.5 , 0 ,2 ", types.Point3D{X: -1.5, Z: 2}, false},
		{"1,2", types.Point3D{}, true},
		{"1,x,3", types.Point3D{}, true},
		{"", types.Point3D{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePoint(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "a", "a", "L")

	press(m, "/")
	m.input.SetValue("locked")
	press(m, "enter")

	if got := len(m.visibleChannels()); got != 1 {
		t.Errorf("Expected 1 visible channel, got %d", got)
	}

	press(m, "F")
	if got := len(m.visibleChannels()); got != 3 {
		t.Errorf("Expected 3 visible channels after clearing, got %d", got)
	}
}

func TestFilter_InvalidExpression(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "/")
	m.input.SetValue("locked ==")
	press(m, "enter")

	if m.mode != ModeInput {
		t.Errorf("Expected prompt to stay open, got %v", m.mode)
	}
	if m.inputError == "" {
		t.Error("Expected an error for an invalid expression")
	}
	if m.filterExpr != "" {
		t.Errorf("Expected filter unchanged, got %q", m.filterExpr)
	}
}

func TestFilter_RejectsShellCommand(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "/")
	m.input.SetValue("$(cat)")
	press(m, "enter")

	if m.mode != ModeInput || m.inputError == "" {
		t.Errorf("Expected shell command rejected, mode %v error %q", m.mode, m.inputError)
	}
}

func TestCopySummary(t *testing.T) {
	m := CreateTestModel(t, false)

	var copied string
	original := writeClipboard
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { writeClipboard = original })

	press(m, "a", "c")
	if !strings.HasPrefix(copied, "Channel 1 (custom)") {
		t.Errorf("Unexpected summary %q", copied)
	}

	writeClipboard = func(string) error { return errors.New("no clipboard") }
	press(m, "c")
	if !strings.Contains(m.errorMsg, "no clipboard") {
		t.Errorf("Expected clipboard error, got %q", m.errorMsg)
	}
}

func TestPasteIntoInput(t *testing.T) {
	m := CreateTestModel(t, false)

	original := readClipboard
	readClipboard = func() (string, error) { return "Tandem", nil }
	t.Cleanup(func() { readClipboard = original })

	press(m, "a", "n")
	m.input.SetValue("")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlV})
	press(m, "enter")

	ch, _ := m.channels.SelectedChannel()
	if ch.Name != "Tandem" {
		t.Errorf("Expected pasted name, got %q", ch.Name)
	}
}

func TestTemplateSaveAndLoad(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "a")

	press(m, "ctrl+s")
	m.input.SetValue("plan")
	press(m, "enter")

	path := filepath.Join(config.TemplatesDir, "plan.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected template file: %v", err)
	}
	if recent := m.session.GetRecentTemplates(); len(recent) == 0 || recent[0] != path {
		t.Errorf("Expected template in recent list, got %v", recent)
	}

	press(m, "a")

	// the prompt defaults to the most recent template
	cmd := press(m, "ctrl+o", "enter")
	runWithDialog(t, m, cmd, "y")

	if m.channels.Len() != 2 {
		t.Errorf("Expected 2 channels from template, got %d", m.channels.Len())
	}
}

func TestRecentTemplates(t *testing.T) {
	m := CreateTestModel(t, false)

	press(m, "ctrl+p")
	if m.mode != ModeRecent {
		t.Fatalf("Expected ModeRecent, got %v", m.mode)
	}
	if cmd := press(m, "enter"); cmd != nil {
		t.Error("Expected no command without recent templates")
	}
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestLoadTemplate_MissingFile(t *testing.T) {
	m := CreateTestModel(t, false)
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if err := m.session.AddRecentTemplate(missing); err != nil {
		t.Fatalf("AddRecentTemplate() error = %v", err)
	}

	if cmd := m.loadTemplate(missing); cmd != nil {
		t.Error("Expected no command for a missing file")
	}
	if m.errorMsg == "" {
		t.Error("Expected an error")
	}
	if recent := m.session.GetRecentTemplates(); len(recent) != 0 {
		t.Errorf("Expected missing template dropped from recent list, got %v", recent)
	}
}

func TestViewerProposal(t *testing.T) {
	tests := []struct {
		name          string
		answer        string
		reconstructed bool
	}{
		{"accepted", "y", true},
		{"rejected", "n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CreateTestModel(t, true)
			press(m, "a")
			ch, _ := m.channels.SelectedChannel()
			m.channels.SetModelSelection(ch.ID, "model5", "")

			m.bridge.HandleMessage(viewer.Message{Type: viewer.TypeClick, Point: &types.Point3D{X: 1, Y: 2, Z: 3}})

			select {
			case msg := <-m.inbox:
				m.Update(msg)
			case <-time.After(time.Second):
				t.Fatal("no proposal delivered")
			}
			if m.mode != ModeConfirm {
				t.Fatalf("Expected confirm modal, got %v", m.mode)
			}

			press(m, tt.answer)

			ch, _ = m.channels.SelectedChannel()
			if ch.IsModelReconstructed != tt.reconstructed {
				t.Errorf("Expected reconstructed=%v, got %v", tt.reconstructed, ch.IsModelReconstructed)
			}
			if _, pending := m.bridge.Pending(ch.ID); pending {
				t.Error("Expected no pending proposal after answering")
			}
			if m.mode != ModeNormal {
				t.Errorf("Expected ModeNormal, got %v", m.mode)
			}
		})
	}
}

func TestConfirmPoints_WithoutViewer(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "a", "p")

	if !strings.Contains(m.errorMsg, "not connected") {
		t.Errorf("Expected viewer error, got %q", m.errorMsg)
	}
}

func TestHistory(t *testing.T) {
	m := CreateTestModel(t, false)

	press(m, "H")
	if !strings.Contains(m.errorMsg, "disabled") {
		t.Errorf("Expected disabled error, got %q", m.errorMsg)
	}

	store, err := history.NewManager(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.Save(types.ChannelEvent{
		Timestamp:     time.Now(),
		SessionID:     "run-1",
		ChannelID:     "ch-1",
		ChannelNumber: 1,
		ChannelName:   "custom",
		Event:         history.EventAdd,
	}); err != nil {
		t.Fatalf("Failed to save event: %v", err)
	}
	m.history = store

	cmd := press(m, "H")
	if m.mode != ModeHistory {
		t.Fatalf("Expected ModeHistory, got %v", m.mode)
	}
	m.Update(cmd())
	if len(m.historyEvents) != 1 {
		t.Errorf("Expected 1 event, got %d", len(m.historyEvents))
	}

	press(m, "esc")
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestHelp(t *testing.T) {
	m := CreateTestModel(t, false)
	press(m, "?")

	if m.mode != ModeHelp {
		t.Fatalf("Expected ModeHelp, got %v", m.mode)
	}
	content := m.helpContent()
	for _, want := range []string{"Add channel", "Toggle dwell position", "space"} {
		if !strings.Contains(content, want) {
			t.Errorf("Expected help to mention %q", want)
		}
	}

	press(m, "?")
	if m.mode != ModeNormal {
		t.Errorf("Expected ModeNormal, got %v", m.mode)
	}
}

func TestView(t *testing.T) {
	m := CreateTestModel(t, false)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	press(m, "a")

	view := m.View()
	for _, want := range []string{"Channels", "Dwell positions", "1130.0", "custom"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected main view to contain %q", want)
		}
	}

	press(m, "m")
	if view := m.View(); !strings.Contains(view, "Choose model") {
		t.Error("Expected model picker view")
	}
}

func TestDialogs_ContextCancelled(t *testing.T) {
	d := NewDialogs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Confirm(ctx, "Delete?"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := d.Alert(ctx, "Note"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

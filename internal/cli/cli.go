package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hohoca/brachyplan/internal/history"
	"github.com/hohoca/brachyplan/internal/types"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by the commands
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// isInteractive checks if stdin is a terminal (not piped)
func isInteractive() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// readLine reads one trimmed line from r
func readLine(r io.Reader) (string, error) {
	value, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && value == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Write renders doc to w. JSON and YAML marshal doc; text calls text().
func Write(w io.Writer, doc any, format string, text func() string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = w.Write(data)
		return err

	case FormatText, "":
		_, err := fmt.Fprintln(w, text())
		return err

	default:
		return fmt.Errorf("unsupported format: %s (use text, json or yaml)", format)
	}
}

// Highlight writes source with terminal syntax colouring. lang is a lexer
// name such as "yaml" or "json". Plain text is written when colouring fails.
func Highlight(w io.Writer, source, lang string) error {
	if err := quick.Highlight(w, source, lang, "terminal256", "monokai"); err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// GridText lists the dwell grid, ten positions per line
func GridText(grid types.DwellGrid) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "step %s mm, %d positions\n", formatNumber(grid.Step), len(grid.Positions))
	for i, p := range grid.Positions {
		if i > 0 && i%10 == 0 {
			sb.WriteString("\n")
		} else if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%7s", formatNumber(p))
	}
	return sb.String()
}

// ModelTable lists catalog models with their parameter ranges
func ModelTable(models []types.ModelInfo) string {
	t := newTable("ID", "Name", "Type", "Sub-tubes", "Parameters")
	for _, m := range models {
		params := make([]string, 0, len(m.Parameters))
		for _, p := range m.Parameters {
			params = append(params, fmt.Sprintf("%s %s..%s", p.Key, formatNumber(p.Min), formatNumber(p.Max)))
		}
		subTubes := "-"
		if m.IsMultiChannel() {
			subTubes = strconv.Itoa(m.SubTubes)
		}
		t.Row(m.ID, m.Name, m.Type, subTubes, strings.Join(params, ", "))
	}
	return t.String()
}

// ChannelTable lists channels the way the planning table shows them
func ChannelTable(channels []types.Channel) string {
	if len(channels) == 0 {
		return dimStyle.Render("no channels")
	}
	t := newTable("#", "Index", "Name", "Step", "Length", "Offset", "Model", "Active", "Visible", "Locked")
	for _, ch := range channels {
		name := ch.Name
		if ch.IsMultiChannelChild {
			name = fmt.Sprintf("%s (tube %d)", name, ch.SubTube)
		}
		model := ch.ModelName
		if model == "" {
			model = "-"
		}
		t.Row(
			strconv.Itoa(ch.Number),
			strconv.Itoa(ch.ChannelIndex),
			name,
			formatNumber(ch.DwellStep),
			formatNumber(ch.SourceLength),
			formatNumber(ch.Offset),
			model,
			strconv.Itoa(len(ch.ActivePositions)),
			yesNo(ch.Visible),
			yesNo(ch.Locked),
		)
	}
	return t.String()
}

// HistoryTable lists recorded channel events, newest first
func HistoryTable(events []types.ChannelEvent) string {
	if len(events) == 0 {
		return dimStyle.Render("no history")
	}
	t := newTable("Time", "Channel", "Event", "Field", "Value")
	for _, e := range events {
		channel := "-"
		if e.ChannelID != "" {
			channel = fmt.Sprintf("%d %s", e.ChannelNumber, e.ChannelName)
		}
		event := e.Event
		if event == history.EventGrid {
			channel = "(all)"
		}
		t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), channel, event, e.Field, truncate(e.Value, 40))
	}
	return t.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

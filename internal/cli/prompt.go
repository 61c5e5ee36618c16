package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1).MarginLeft(2)
	alertStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// Option is one entry of a selection prompt
type Option struct {
	Value  string
	Label  string
	Detail string
}

type item Option

func (i item) FilterValue() string {
	return i.Label + " " + i.Detail
}

func (i item) Title() string {
	title := i.Label
	if title == "" {
		title = i.Value
	}
	if i.Detail != "" {
		title += " " + dimStyle.Render(i.Detail)
	}
	return title
}

func (i item) Description() string { return "" }

type selectorModel struct {
	list     list.Model
	choice   string
	quitting bool
}

func (m selectorModel) Init() tea.Cmd {
	return nil
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		// keys belong to the filter input while typing
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.choice = ""
			return m, tea.Quit

		case "enter":
			i, ok := m.list.SelectedItem().(item)
			if ok {
				m.choice = i.Value
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectorModel) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("↑/↓: navigate • /: filter • enter: select • q/esc: cancel")
	return fmt.Sprintf("%s\n\n%s", m.list.View(), help)
}

func newSelector(title string, options []Option, initial int) selectorModel {
	items := make([]list.Item, 0, len(options))
	for _, opt := range options {
		items = append(items, item(opt))
	}

	const defaultWidth = 80
	listHeight := len(items) + 6
	if listHeight > 16 {
		listHeight = 16
	}

	l := list.New(items, itemDelegate{}, defaultWidth, listHeight)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(len(items) > 5)
	l.Styles.Title = titleStyle

	if initial >= 0 && initial < len(items) {
		l.Select(initial)
	}
	return selectorModel{list: l}
}

// ErrCancelled is returned when the user leaves a prompt without choosing
var ErrCancelled = errors.New("selection cancelled")

// Select shows an interactive list and returns the chosen option's value
func Select(title string, options []Option, initial int) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}

	p := tea.NewProgram(newSelector(title, options, initial), tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("error running selector: %w", err)
	}

	result := finalModel.(selectorModel)
	if result.choice == "" {
		return "", ErrCancelled
	}
	return result.choice, nil
}

// itemDelegate is a custom list item delegate
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(item)
	if !ok {
		return
	}

	str := fmt.Sprintf("%d. %s", index+1, i.Title())

	fn := itemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(str))
}

// Dialogs asks for confirmation on the terminal. Piped input is read as a
// plain y/n answer; a terminal gets a selection list.
type Dialogs struct {
	In  io.Reader
	Out io.Writer

	// Interactive forces the list prompt on or off; nil detects a terminal
	Interactive *bool
}

// NewDialogs creates terminal dialogs on stdin/stderr
func NewDialogs() *Dialogs {
	return &Dialogs{In: os.Stdin, Out: os.Stderr}
}

func (d *Dialogs) interactive() bool {
	if d.Interactive != nil {
		return *d.Interactive
	}
	return d.In == os.Stdin && isInteractive()
}

// Confirm implements channel.Dialogs
func (d *Dialogs) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if !d.interactive() {
		fmt.Fprintf(d.Out, "%s [y/N]: ", message)
		answer, err := readLine(d.In)
		if err != nil {
			return false, err
		}
		return parseYes(answer), nil
	}

	choice, err := Select(message, []Option{
		{Value: "no", Label: "No"},
		{Value: "yes", Label: "Yes"},
	}, 0)
	if errors.Is(err, ErrCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return choice == "yes", nil
}

// Alert implements channel.Dialogs
func (d *Dialogs) Alert(ctx context.Context, message string) error {
	_, err := fmt.Fprintln(d.Out, alertStyle.Render("! "+message))
	return err
}

func parseYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

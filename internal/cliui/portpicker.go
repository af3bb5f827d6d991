// Package cliui holds the CLI's terminal UI pieces: a full-screen
// bubbletea dialog for picking a MIDI input or output port, and a
// one-line cents meter renderer.
package cliui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PortPickerModel is a minimal single-column selection list for MIDI
// ports, the same full-screen dialog shape as the teacher's device
// dialogs, generalized from a single fixed message to an arbitrary list
// of choices with arrow-key navigation.
type PortPickerModel struct {
	title   string
	options []string
	cursor  int
	width   int
	height  int
	chosen  string
	done    bool
	quit    bool
}

// NewPortPickerModel builds a picker over options, titled for the caller
// (e.g. "Select MIDI output port").
func NewPortPickerModel(title string, options []string) PortPickerModel {
	return PortPickerModel{title: title, options: options}
}

func (m PortPickerModel) Init() tea.Cmd { return nil }

func (m PortPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.options) > 0 {
				m.chosen = m.options[m.cursor]
			}
			m.done = true
			return m, tea.Quit
		case "esc", "ctrl+c", "q":
			m.quit = true
			return m, tea.Quit
		}
	}
	return m, nil
}

var (
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	plainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
)

func (m PortPickerModel) View() string {
	var body string
	body += titleStyle.Render(m.title) + "\n\n"
	if len(m.options) == 0 {
		body += plainStyle.Render("(no MIDI ports found)")
	}
	for i, opt := range m.options {
		cursor := "  "
		style := plainStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		body += cursor + style.Render(opt) + "\n"
	}
	body += "\n" + plainStyle.Render("↑/↓ to move, enter to select, esc to cancel")

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("99")).
		Padding(1, 2).
		Width(50)

	dialog := style.Render(body)
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(dialog)
}

// Chosen returns the selected option and whether one was picked (false
// if the user cancelled).
func (m PortPickerModel) Chosen() (string, bool) {
	return m.chosen, m.done && !m.quit
}

// RunPortPicker drives the dialog to completion and returns the chosen
// port name, or ok=false if the user cancelled.
func RunPortPicker(title string, options []string) (string, bool, error) {
	p := tea.NewProgram(NewPortPickerModel(title, options))
	final, err := p.Run()
	if err != nil {
		return "", false, err
	}
	chosen, ok := final.(PortPickerModel).Chosen()
	return chosen, ok, nil
}

package repl

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ModelChoice is one selectable entry: the config key and a provider/model label
type ModelChoice struct {
	Key   string
	Label string
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ModelSelector is a bubbletea model for picking the model the router talks to
type ModelSelector struct {
	choices   []ModelChoice
	current   string
	cursor    int
	selected  string // empty if cancelled
	cancelled bool
}

// NewModelSelector creates a selector with the cursor on the current model
func NewModelSelector(choices []ModelChoice, current string) *ModelSelector {
	cursor := 0
	for i, c := range choices {
		if c.Key == current {
			cursor = i
			break
		}
	}
	return &ModelSelector{
		choices: choices,
		current: current,
		cursor:  cursor,
	}
}

// Init implements tea.Model
func (m *ModelSelector) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *ModelSelector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.choices) - 1
	case "enter":
		m.selected = m.choices[m.cursor].Key
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m *ModelSelector) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Route tool calls through:"))
	b.WriteString("\n")

	for i, c := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		marker := " "
		if c.Key == m.current {
			marker = "•"
		}

		line := fmt.Sprintf("%s %s %s", cursor, marker, c.Key)
		if i == m.cursor {
			line = highlightStyle.Render(line)
		}
		b.WriteString(line)
		if c.Label != "" {
			b.WriteString("  ")
			b.WriteString(labelStyle.Render(c.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ move · enter select · esc cancel"))

	return b.String()
}

// Selected returns the chosen key, or "" if the selector was cancelled
func (m *ModelSelector) Selected() string {
	if m.cancelled {
		return ""
	}
	return m.selected
}

// RunModelSelector runs the interactive selector and returns the chosen key.
// Returns empty string if cancelled.
func RunModelSelector(choices []ModelChoice, current string) (string, error) {
	if len(choices) == 0 {
		return "", fmt.Errorf("no models available")
	}

	finalModel, err := tea.NewProgram(NewModelSelector(choices, current)).Run()
	if err != nil {
		return "", fmt.Errorf("error running selector: %w", err)
	}
	return finalModel.(*ModelSelector).Selected(), nil
}

package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/placeskit/pkg/credentials"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// KeyListModel is the bubbletea model for picking an API key interactively.
type KeyListModel struct {
	Names    []string
	Secrets  []string // masked, parallel to Names
	Cursor   int
	Selected string
}

// NewKeyListModel lists keys in name order with the cursor on current, if present.
func NewKeyListModel(keys credentials.Keys, current string) KeyListModel {
	names := keys.Names()
	m := KeyListModel{Names: names, Secrets: make([]string, len(names))}
	for i, name := range names {
		m.Secrets[i] = credentials.Mask(keys[name])
		if name == current {
			m.Cursor = i
		}
	}
	return m
}

func (m KeyListModel) Init() tea.Cmd {
	return nil
}

func (m KeyListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Names)-1 {
			m.Cursor++
		}
	case "enter":
		if len(m.Names) > 0 {
			m.Selected = m.Names[m.Cursor]
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m KeyListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select API Key"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	width := 0
	for _, name := range m.Names {
		width = max(width, len(name))
	}
	for i, name := range m.Names {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-*s", cursor, width, name)))
		b.WriteString("  ")
		b.WriteString(listDimStyle.Render(m.Secrets[i]))
		b.WriteString("\n")
	}
	return b.String()
}

// pickKey runs the key list and returns the chosen name, or "" if the user quit.
func pickKey(keys credentials.Keys, current string) (string, error) {
	final, err := tea.NewProgram(NewKeyListModel(keys, current)).Run()
	if err != nil {
		return "", fmt.Errorf("key picker: %w", err)
	}
	return final.(KeyListModel).Selected, nil
}

package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/placeskit/pkg/credentials"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m KeyListModel, keys ...string) (KeyListModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(KeyListModel)
	}
	return m, cmd
}

var testKeys = credentials.Keys{
	"GooglePlaces": "AIzaSyA1234567890",
	"Backup":       "AIzaSyB0987654321",
	"Staging":      "AIzaSyC5555555555",
}

func TestNewKeyListModel(t *testing.T) {
	m := NewKeyListModel(testKeys, "GooglePlaces")
	if strings.Join(m.Names, ",") != "Backup,GooglePlaces,Staging" {
		t.Errorf("Names = %v", m.Names)
	}
	if m.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1 (current key)", m.Cursor)
	}
	for _, s := range m.Secrets {
		if strings.Contains(s, "1234567890") {
			t.Errorf("secret %q not masked", s)
		}
	}
}

func TestKeyListNavigation(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"select first", []string{"enter"}, "Backup"},
		{"down once", []string{"down", "enter"}, "GooglePlaces"},
		{"vim keys", []string{"j", "j", "k", "enter"}, "GooglePlaces"},
		{"clamped at bottom", []string{"down", "down", "down", "down", "enter"}, "Staging"},
		{"clamped at top", []string{"up", "enter"}, "Backup"},
		{"quit", []string{"down", "q"}, ""},
		{"escape", []string{"esc"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(NewKeyListModel(testKeys, ""), tt.keys...)
			if m.Selected != tt.want {
				t.Errorf("Selected = %q, want %q", m.Selected, tt.want)
			}
			if cmd == nil {
				t.Error("final key should quit the program")
			}
		})
	}
}

func TestKeyListEmpty(t *testing.T) {
	m, _ := press(NewKeyListModel(credentials.Keys{}, ""), "down", "enter")
	if m.Selected != "" {
		t.Errorf("Selected = %q, want empty", m.Selected)
	}
}

func TestKeyListView(t *testing.T) {
	view := NewKeyListModel(testKeys, "Staging").View()
	if !strings.Contains(view, "Select API Key") {
		t.Error("view should contain the title")
	}
	for _, name := range []string{"Backup", "GooglePlaces", "Staging"} {
		if !strings.Contains(view, name) {
			t.Errorf("view should list %s", name)
		}
	}
	if !strings.Contains(view, "▸ Staging") {
		t.Errorf("cursor should be on Staging:\n%s", view)
	}
}

package cli

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nicsuzor/aops/pkg/models"
)

func TestBoardModelInitialState(t *testing.T) {
	m := newBoardModel()
	if !m.loading {
		t.Error("new model should start loading")
	}
	if m.activePanel != panelQueue {
		t.Error("queue panel should be active initially")
	}
}

func TestBoardModelQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		m := newBoardModel()
		_, cmd := m.Update(keyMsg(key))
		if cmd == nil {
			t.Errorf("key %q should quit", key)
			continue
		}
		if msg := cmd(); msg != tea.Quit() {
			t.Errorf("key %q produced %v, want tea.Quit", key, msg)
		}
	}
}

func TestBoardModelTabCyclesPanels(t *testing.T) {
	m := newBoardModel()
	updated, _ := m.Update(keyMsg("tab"))
	m = updated.(boardModel)
	if m.activePanel != panelStatuses {
		t.Errorf("panel = %d, want statuses", m.activePanel)
	}
	updated, _ = m.Update(keyMsg("tab"))
	m = updated.(boardModel)
	if m.activePanel != panelQueue {
		t.Errorf("panel = %d, want wrap back to queue", m.activePanel)
	}
}

func TestBoardModelLoadedMsg(t *testing.T) {
	m := newBoardModel()
	updated, _ := m.Update(boardLoadedMsg{
		ready:        []taskRow{{id: "T-0001", title: "ship it", priority: models.P0, weight: 4}},
		statusCounts: map[string]int{"active": 1, "done": 3},
	})
	m = updated.(boardModel)
	if m.loading {
		t.Error("loaded msg should stop loading")
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(boardModel)
	view := m.View()
	for _, want := range []string{"Ready Queue", "ship it", "T-0001", "active", "done", "Total: 4"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBoardModelLoadError(t *testing.T) {
	m := newBoardModel()
	updated, _ := m.Update(boardLoadedMsg{err: fmt.Errorf("store unreachable")})
	m = updated.(boardModel)

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(boardModel)
	if !strings.Contains(m.View(), "store unreachable") {
		t.Error("view should surface the load error")
	}
}

func TestBoardModelEmptyQueue(t *testing.T) {
	m := newBoardModel()
	updated, _ := m.Update(boardLoadedMsg{statusCounts: map[string]int{}})
	m = updated.(boardModel)
	if !strings.Contains(m.renderQueuePanel(), "Nothing is ready") {
		t.Error("empty queue should say nothing is ready")
	}
	if !strings.Contains(m.renderStatusPanel(), "No tasks") {
		t.Error("empty graph should say no tasks")
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
)

func testImages() images.Set {
	return images.Set{
		{ID: "a", Name: "a.png"},
		{ID: "b", Name: "b.png"},
		{ID: "c", Name: "c.png"},
	}
}

func newTestEditor(t *testing.T, rows, cols int) EditorModel {
	t.Helper()
	l, err := grid.New(rows, cols)
	if err != nil {
		t.Fatal(err)
	}
	return NewEditorModel(l, "", testImages(), grid.NewRand(1))
}

// press feeds single-rune key presses to m.
func press(m EditorModel, keys ...string) (EditorModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		m = next.(EditorModel)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestRenderGrid(t *testing.T) {
	l, _ := grid.New(1, 2)
	label := func(i int, c grid.Cell) []string {
		if i == 1 {
			return []string{c.ID, "verylongname.png"}
		}
		return []string{c.ID}
	}

	out := renderGrid(l, -1, label)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != unitHeight+1 {
		t.Fatalf("lines = %d, want %d\n%s", len(lines), unitHeight+1, out)
	}
	for _, want := range []string{"r0c0", "r0c1", "verylong…"} {
		if !strings.Contains(out, want) {
			t.Errorf("grid missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "verylongname") {
		t.Errorf("label not truncated:\n%s", out)
	}
}

func TestRenderGridSelected(t *testing.T) {
	l, _ := grid.New(2, 2)
	l, _ = grid.SetSpan(l, "r0c0", 1, 2)

	out := renderGrid(l, 0, func(int, grid.Cell) []string { return nil })
	if !strings.Contains(out, "┏") || !strings.Contains(out, "┛") {
		t.Errorf("selected cell not drawn heavy:\n%s", out)
	}
	if strings.Count(out, "┏") != 1 {
		t.Errorf("more than one cell selected:\n%s", out)
	}
}

func TestEditorMove(t *testing.T) {
	tests := []struct {
		keys string
		want string
	}{
		{"l", "r0c1"},
		{"lj", "r1c1"},
		{"ljh", "r1c0"},
		{"ljhk", "r0c0"},
		{"k", "r0c0"},
		{"hh", "r0c0"},
	}
	for _, tt := range tests {
		t.Run(tt.keys, func(t *testing.T) {
			m := newTestEditor(t, 2, 2)
			m, _ = press(m, strings.Split(tt.keys, "")...)
			if got := m.selected().ID; got != tt.want {
				t.Errorf("selected %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEditorMoveAcrossSpan(t *testing.T) {
	m := newTestEditor(t, 2, 3)
	m, _ = press(m, ">")
	// r0c0 now covers two columns; moving right lands past it.
	m, _ = press(m, "l")
	if got := m.selected().ID; got != "r0c2" {
		t.Errorf("selected %s, want r0c2", got)
	}
}

func TestEditorResize(t *testing.T) {
	m := newTestEditor(t, 2, 2)

	m, _ = press(m, ">")
	if m.failed || !m.Dirty {
		t.Fatalf("grow failed: %s", m.status)
	}
	if c := m.selected(); c.ID != "r0c0" || c.ColSpan != 2 {
		t.Errorf("selected %+v, want r0c0 1x2", c)
	}
	if len(m.Layout.Cells) != 3 {
		t.Errorf("cells = %d, want 3", len(m.Layout.Cells))
	}

	// Shrinking backfills the freed unit; spans never drop below one.
	m, _ = press(m, "<", "<")
	if m.failed {
		t.Errorf("shrink failed: %s", m.status)
	}
	if c := m.selected(); c.ColSpan != 1 {
		t.Errorf("ColSpan = %d after shrink, want 1", c.ColSpan)
	}
	if len(m.Layout.Cells) != 4 {
		t.Errorf("cells = %d, want 4", len(m.Layout.Cells))
	}
}

func TestEditorResizeOverlap(t *testing.T) {
	m := newTestEditor(t, 2, 2)
	m, _ = press(m, "l", "+")
	if m.failed {
		t.Fatalf("grow r0c1: %s", m.status)
	}
	before := len(m.Layout.Cells)

	// r0c0 at 1x2 would cut through the 2x1 block at r0c1.
	m, _ = press(m, "h", ">")
	if !m.failed {
		t.Fatal("expected overlap to be rejected")
	}
	if len(m.Layout.Cells) != before {
		t.Errorf("cells = %d, want %d", len(m.Layout.Cells), before)
	}
	if c := m.selected(); c.ID != "r0c0" || c.ColSpan != 1 {
		t.Errorf("selected %+v, want r0c0 1x1", c)
	}
}

func TestEditorCycleImage(t *testing.T) {
	m := newTestEditor(t, 1, 2)
	want := []struct {
		key string
		id  string
	}{
		{"n", "a"},
		{"n", "b"},
		{"n", "c"},
		{"n", "a"},
		{"p", "c"},
		{"x", ""},
		{"p", "c"},
	}
	for i, step := range want {
		m, _ = press(m, step.key)
		if got := m.selected().ImageID; got != step.id {
			t.Fatalf("step %d (%s): image %q, want %q", i, step.key, got, step.id)
		}
	}
}

func TestEditorCycleImageWithoutImages(t *testing.T) {
	l, _ := grid.New(1, 1)
	m := NewEditorModel(l, "", nil, nil)
	m, _ = press(m, "n")
	if !m.failed || m.Dirty {
		t.Errorf("failed = %v, dirty = %v", m.failed, m.Dirty)
	}
}

func TestEditorAutoFill(t *testing.T) {
	m := newTestEditor(t, 2, 2)
	m, _ = press(m, "a")
	if got := m.Layout.Filled(); got != 3 {
		t.Errorf("filled = %d, want 3", got)
	}
	if !m.Dirty {
		t.Error("auto-fill should mark the layout dirty")
	}
}

func TestEditorCycleTemplate(t *testing.T) {
	names := templates.Names()
	l, _ := templates.Get(names[0])
	m := NewEditorModel(l, names[0], testImages(), grid.NewRand(1))

	m, _ = press(m, "t")
	if m.Template != names[1] {
		t.Errorf("template = %q, want %q", m.Template, names[1])
	}
	want, _ := templates.Get(names[1])
	if len(m.Layout.Cells) != len(want.Cells) {
		t.Errorf("cells = %d, want %d", len(m.Layout.Cells), len(want.Cells))
	}
	if m.Layout.Filled() == 0 {
		t.Error("switched template was not filled")
	}

	m, _ = press(m, "T", "T")
	if m.Template != names[len(names)-1] {
		t.Errorf("template = %q, want %q", m.Template, names[len(names)-1])
	}
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.Cursor)
	}
}

func TestEditorSave(t *testing.T) {
	m := newTestEditor(t, 1, 2)
	m, _ = press(m, "s")
	if !m.failed {
		t.Error("save without a callback should fail")
	}

	var saved grid.Layout
	m.Save = func(l grid.Layout, _ string) error {
		saved = l
		return nil
	}
	m, _ = press(m, "n", "s")
	if !m.Saved || m.Dirty || m.failed {
		t.Errorf("saved = %v, dirty = %v, status = %q", m.Saved, m.Dirty, m.status)
	}
	if saved.Cells[0].ImageID != "a" {
		t.Errorf("saved layout = %+v", saved)
	}

	m.Save = func(grid.Layout, string) error { return errors.New("disk full") }
	m, _ = press(m, "x", "s")
	if !m.failed || !m.Dirty || !strings.Contains(m.status, "disk full") {
		t.Errorf("failed = %v, dirty = %v, status = %q", m.failed, m.Dirty, m.status)
	}
}

func TestEditorQuit(t *testing.T) {
	m := newTestEditor(t, 1, 1)
	if _, cmd := press(m, "q"); !isQuit(cmd) {
		t.Error("clean editor should quit on first q")
	}

	m, _ = press(m, "n")
	m, cmd := press(m, "q")
	if isQuit(cmd) {
		t.Fatal("dirty editor quit without confirmation")
	}
	if _, cmd = press(m, "q"); !isQuit(cmd) {
		t.Error("second q should quit")
	}

	// Any other key disarms the confirmation.
	m, _ = press(m, "l", "q")
	if !m.armed {
		t.Error("q after another key should re-arm")
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); !isQuit(cmd) {
		t.Error("ctrl+c should always quit")
	}
}

func TestEditorView(t *testing.T) {
	l, _ := templates.Get("featured")
	m := NewEditorModel(l, "featured", testImages(), grid.NewRand(1))
	m, _ = press(m, "n")

	out := m.View()
	for _, want := range []string{"featured", "*", "a.png", "r0c0"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

package cli

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// Editor styles
var (
	editorHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	editorStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
	editorCellStyle   = lipgloss.NewStyle().Foreground(colorGray)
)

// Size of one grid unit in the editor, in characters.
const (
	unitWidth  = 12
	unitHeight = 4
)

// =============================================================================
// EditorModel - Interactive layout editor
// =============================================================================

// EditorModel is the bubbletea model behind "gridcollage edit". It keeps the
// layout as a value and replaces it after every successful edit; rejected
// edits leave it unchanged and show the reason in the status line.
type EditorModel struct {
	Layout   grid.Layout
	Template string
	Images   images.Set
	Cursor   int

	// Save persists the layout. Nil disables saving.
	Save func(l grid.Layout, template string) error

	Saved  bool
	Dirty  bool
	status string
	failed bool
	armed  bool
	rng    *rand.Rand
}

// NewEditorModel creates an editor for l with the given images available for
// auto-fill and cycling.
func NewEditorModel(l grid.Layout, template string, imgs images.Set, rng *rand.Rand) EditorModel {
	return EditorModel{
		Layout:   l,
		Template: template,
		Images:   imgs,
		rng:      rng,
	}
}

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	k := key.String()
	if k != "q" && k != "esc" {
		m.armed = false
	}

	switch k {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		if m.Dirty && !m.armed {
			m.armed = true
			m.setStatus(false, "unsaved changes, press q again to quit")
			return m, nil
		}
		return m, tea.Quit

	case "left", "h":
		m.move(0, -1)
	case "right", "l":
		m.move(0, 1)
	case "up", "k":
		m.move(-1, 0)
	case "down", "j":
		m.move(1, 0)

	case ">":
		m.resize(0, 1)
	case "<":
		m.resize(0, -1)
	case "+", "=":
		m.resize(1, 0)
	case "-", "_":
		m.resize(-1, 0)

	case "n":
		m.cycleImage(1)
	case "p":
		m.cycleImage(-1)
	case "x":
		m.apply(grid.Assign(m.Layout, m.selected().ID, ""))
	case "a":
		m.Layout = grid.AutoFill(m.Layout, m.Images.IDs(), m.rng)
		m.Dirty = true
		m.setStatus(false, "auto-filled %d of %d cells", m.Layout.Filled(), len(m.Layout.Cells))

	case "t":
		m.cycleTemplate(1)
	case "T":
		m.cycleTemplate(-1)

	case "s":
		m.save()
	}
	return m, nil
}

func (m *EditorModel) setStatus(failed bool, format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.failed = failed
}

func (m EditorModel) selected() grid.Cell {
	if m.Cursor < 0 || m.Cursor >= len(m.Layout.Cells) {
		return grid.Cell{}
	}
	return m.Layout.Cells[m.Cursor]
}

// move selects the cell next to the current one in the given direction.
func (m *EditorModel) move(dr, dc int) {
	c := m.selected()
	row, col := c.Row, c.Col
	switch {
	case dr < 0:
		row--
	case dr > 0:
		row = c.Row + c.RowSpan
	case dc < 0:
		col--
	case dc > 0:
		col = c.Col + c.ColSpan
	}
	next, ok := m.Layout.CellAt(row, col)
	if !ok {
		return
	}
	m.selectID(next.ID)
}

func (m *EditorModel) selectID(id string) {
	for i, c := range m.Layout.Cells {
		if c.ID == id {
			m.Cursor = i
			return
		}
	}
	m.Cursor = 0
}

// resize grows or shrinks the selected cell by one unit.
func (m *EditorModel) resize(dRows, dCols int) {
	c := m.selected()
	l, err := grid.SetSpan(m.Layout, c.ID, c.RowSpan+dRows, c.ColSpan+dCols)
	if err != nil {
		m.setStatus(true, "%s", errs.UserMessage(err))
		return
	}
	m.Layout = l
	m.Dirty = true
	m.selectID(c.ID)
	sel := m.selected()
	m.setStatus(false, "%s is now %dx%d", sel.ID, sel.RowSpan, sel.ColSpan)
}

// cycleImage puts the next (or previous) available image into the selected
// cell.
func (m *EditorModel) cycleImage(step int) {
	ids := m.Images.IDs()
	if len(ids) == 0 {
		m.setStatus(true, "no images loaded")
		return
	}
	i := slices.Index(ids, m.selected().ImageID)
	switch {
	case i < 0 && step < 0:
		i = len(ids) - 1
	case i < 0:
		i = 0
	default:
		i = (i + step + len(ids)) % len(ids)
	}
	m.apply(grid.Assign(m.Layout, m.selected().ID, ids[i]))
}

func (m *EditorModel) apply(l grid.Layout, err error) {
	if err != nil {
		m.setStatus(true, "%s", errs.UserMessage(err))
		return
	}
	m.Layout = l
	m.Dirty = true
	m.status = ""
}

// cycleTemplate replaces the layout with the next template, refilled from
// the available images.
func (m *EditorModel) cycleTemplate(step int) {
	names := templates.Names()
	i := slices.Index(names, m.Template)
	if i < 0 {
		i = 0
		if step > 0 {
			i = -1
		}
	}
	name := names[(i+step+len(names))%len(names)]
	l, err := templates.Switch(name, m.Images.IDs(), m.rng)
	if err != nil {
		m.setStatus(true, "%s", errs.UserMessage(err))
		return
	}
	m.Layout, m.Template, m.Cursor, m.Dirty = l, name, 0, true
	m.setStatus(false, "template %s", name)
}

func (m *EditorModel) save() {
	if m.Save == nil {
		m.setStatus(true, "saving is disabled")
		return
	}
	if err := m.Save(m.Layout, m.Template); err != nil {
		m.setStatus(true, "save failed: %v", err)
		return
	}
	m.Saved, m.Dirty = true, false
	m.setStatus(false, "saved")
}

func (m EditorModel) View() string {
	var b strings.Builder

	title := "Edit Layout"
	if m.Template != "" {
		title += " · " + m.Template
	}
	b.WriteString(StyleTitle.Render(title))
	if m.Dirty {
		b.WriteString(StyleWarning.Render(" *"))
	}
	b.WriteString("\n")
	b.WriteString(editorHelpStyle.Render("←↑↓→ select  < > width  - + height  n/p image  x clear  a fill  t/T template  s save  q quit"))
	b.WriteString("\n\n")

	b.WriteString(renderGrid(m.Layout, m.Cursor, m.cellLabel))
	b.WriteString("\n")

	c := m.selected()
	b.WriteString(editorStatusStyle.Render(fmt.Sprintf("%s  %dx%d at row %d, col %d  %s",
		c.ID, c.RowSpan, c.ColSpan, c.Row, c.Col, m.imageName(c.ImageID))))
	b.WriteString("\n")
	switch {
	case m.status == "":
	case m.failed:
		b.WriteString(StyleError.Render(iconError + " " + m.status))
	default:
		b.WriteString(StyleSuccess.Render(iconSuccess + " " + m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m EditorModel) imageName(id string) string {
	if id == "" {
		return "(empty)"
	}
	if img, ok := m.Images.Get(id); ok {
		return img.Name
	}
	return id
}

func (m EditorModel) cellLabel(i int, c grid.Cell) []string {
	return []string{fmt.Sprintf("%d", i), m.imageName(c.ImageID)}
}

// =============================================================================
// Grid Drawing
// =============================================================================

// renderGrid draws l as boxes on a character canvas. The selected cell is
// drawn last with heavy borders and highlighted.
func renderGrid(l grid.Layout, selected int, label func(int, grid.Cell) []string) string {
	h, w := l.Rows*unitHeight+1, l.Cols*unitWidth+1
	canvas := make([][]rune, h)
	hl := make([][]bool, h)
	for r := range canvas {
		canvas[r] = []rune(strings.Repeat(" ", w))
		hl[r] = make([]bool, w)
	}

	draw := func(i int, c grid.Cell, heavy bool) {
		top, left := c.Row*unitHeight, c.Col*unitWidth
		bottom, right := top+c.RowSpan*unitHeight, left+c.ColSpan*unitWidth
		horiz, vert, corners := '-', '|', [4]rune{'+', '+', '+', '+'}
		if heavy {
			horiz, vert, corners = '━', '┃', [4]rune{'┏', '┓', '┗', '┛'}
		}
		set := func(r, col int, ch rune) {
			if r < h && col < w {
				canvas[r][col] = ch
				hl[r][col] = heavy
			}
		}
		for col := left + 1; col < right; col++ {
			set(top, col, horiz)
			set(bottom, col, horiz)
		}
		for r := top + 1; r < bottom; r++ {
			set(r, left, vert)
			set(r, right, vert)
		}
		set(top, left, corners[0])
		set(top, right, corners[1])
		set(bottom, left, corners[2])
		set(bottom, right, corners[3])

		inner := right - left - 3
		for j, text := range label(i, c) {
			r := top + 1 + j
			if r >= bottom || inner <= 0 {
				break
			}
			runes := []rune(text)
			if len(runes) > inner {
				runes = append(runes[:inner-1], '…')
			}
			for k, ch := range runes {
				set(r, left+2+k, ch)
			}
		}
	}

	for i, c := range l.Cells {
		if i != selected {
			draw(i, c, false)
		}
	}
	if selected >= 0 && selected < len(l.Cells) {
		draw(selected, l.Cells[selected], true)
	}

	var b strings.Builder
	for r := range canvas {
		start := 0
		for col := 1; col <= w; col++ {
			if col < w && hl[r][col] == hl[r][start] {
				continue
			}
			run := string(canvas[r][start:col])
			if hl[r][start] {
				b.WriteString(StyleHighlight.Render(run))
			} else {
				b.WriteString(editorCellStyle.Render(run))
			}
			start = col
		}
		b.WriteString("\n")
	}
	return b.String()
}

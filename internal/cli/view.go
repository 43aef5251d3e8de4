package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/edge"
	"github.com/canopyview/canopy/pkg/geo"
	"github.com/canopyview/canopy/pkg/layout"
	"github.com/canopyview/canopy/pkg/viewport"
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "view [conversation.json]",
		Short: "Explore a conversation canvas in the terminal",
		Long: `Explore a conversation canvas interactively in the terminal.

Blocks are drawn as boxes on a pannable canvas; the active branch carries a
double border. Drag with the mouse or scroll to pan, exactly like the
pointer gestures on a graphical canvas.

Keys:
  tab        switch to the next branch (recenters the canvas)
  n          create a branch from the active one
  m          append a message to the active branch
  c          recenter on the root
  q          quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "write structural changes back to the input file on exit")

	return cmd
}

func (c *CLI) runView(input string, save bool) error {
	conv, err := chat.ReadConversationFile(input)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", input, err)
	}
	res, err := layout.Refresh(conv)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}

	m := newViewModel(conv, res, c.Config.View.UnitsPerCell)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}

	if save {
		fm, ok := final.(viewModel)
		if !ok {
			return fmt.Errorf("unexpected final model type %T", final)
		}
		if fm.dirty {
			if err := chat.WriteConversationFile(fm.conv, input); err != nil {
				return fmt.Errorf("save conversation: %w", err)
			}
			printSuccess("Saved %s", input)
		}
	}
	return nil
}

// dragState adapts the viewport's drag-scoped effects to a model flag the
// status bar reads.
type dragState struct {
	active bool
}

func (d *dragState) Begin() { d.active = true }
func (d *dragState) End()   { d.active = false }

// viewModel is the bubbletea model for the canvas viewer.
type viewModel struct {
	conv   *chat.Conversation
	res    *layout.Result
	ctrl   *viewport.Controller
	drag   *dragState
	branch int // index into order of the active branch

	order []string // branch ids sorted by creation

	width  int
	height int

	// cellW and cellH map canvas units to one terminal cell. Cells are
	// roughly twice as tall as wide, so the vertical scale doubles the
	// horizontal one to keep the tree's proportions recognizable.
	cellW float64
	cellH float64

	dirty  bool
	status string
}

func newViewModel(conv *chat.Conversation, res *layout.Result, unitsPerCell float64) viewModel {
	if unitsPerCell <= 0 {
		unitsPerCell = 40
	}
	drag := &dragState{}
	m := viewModel{
		conv:  conv,
		res:   res,
		ctrl:  viewport.New(nil, drag),
		drag:  drag,
		cellW: unitsPerCell,
		cellH: unitsPerCell * 2,
	}
	m.rebuildOrder()
	return m
}

func (m *viewModel) rebuildOrder() {
	ids := make([]string, 0, len(m.conv.Branches))
	for id := range m.conv.Branches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.conv.Branches[ids[i]], m.conv.Branches[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	m.order = ids
	for i, id := range ids {
		if id == m.conv.ActiveBranchID {
			m.branch = i
		}
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recenter()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.ctrl.Close()
			return m, tea.Quit
		case "tab":
			m.switchBranch(1)
		case "shift+tab":
			m.switchBranch(-1)
		case "n":
			m.createBranch()
		case "m":
			m.addMessage()
		case "c":
			m.recenter()
		}
		return m, nil
	}
	return m, nil
}

func (m viewModel) handleMouse(msg tea.MouseMsg) viewModel {
	pos := m.cellToCanvas(msg.X, msg.Y)

	if msg.Action == tea.MouseActionPress {
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.ctrl.PointerDown(viewport.PointerEvent{Pos: pos, Primary: true})
		case tea.MouseButtonWheelUp:
			m.ctrl.Wheel(viewport.WheelEvent{Delta: geo.Point{Y: -m.cellH}})
		case tea.MouseButtonWheelDown:
			m.ctrl.Wheel(viewport.WheelEvent{Delta: geo.Point{Y: m.cellH}})
		case tea.MouseButtonWheelLeft:
			m.ctrl.Wheel(viewport.WheelEvent{Delta: geo.Point{X: -m.cellW}})
		case tea.MouseButtonWheelRight:
			m.ctrl.Wheel(viewport.WheelEvent{Delta: geo.Point{X: m.cellW}})
		}
		return m
	}
	if msg.Action == tea.MouseActionMotion {
		m.ctrl.PointerMove(viewport.PointerEvent{Pos: pos, Primary: true})
		return m
	}
	if msg.Action == tea.MouseActionRelease {
		m.ctrl.PointerUp(viewport.PointerEvent{Pos: pos})
	}
	return m
}

// cellToCanvas converts a terminal cell coordinate into canvas units, so
// drag deltas match pointer movement regardless of scale.
func (m viewModel) cellToCanvas(x, y int) geo.Point {
	return geo.Point{X: float64(x) * m.cellW, Y: float64(y) * m.cellH}
}

func (m *viewModel) switchBranch(dir int) {
	if len(m.order) == 0 {
		return
	}
	m.branch = ((m.branch+dir)%len(m.order) + len(m.order)) % len(m.order)
	id := m.order[m.branch]
	if err := m.conv.SwitchBranch(id); err != nil {
		m.status = err.Error()
		return
	}
	m.recenter()
	m.status = "switched to " + m.conv.Active().Name
}

func (m *viewModel) createBranch() {
	active := m.conv.Active()
	name := fmt.Sprintf("branch %d", len(m.conv.Branches))
	child, err := m.conv.CreateBranch(active.ID, name)
	if err != nil {
		m.status = err.Error()
		return
	}
	res, err := layout.Refresh(m.conv)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.res = res
	m.rebuildOrder()
	m.dirty = true
	m.status = "created " + child.Name
}

func (m *viewModel) addMessage() {
	active := m.conv.Active()
	text := fmt.Sprintf("note %d", len(active.Messages)+1)
	if _, err := m.conv.AddMessage(active.ID, text); err != nil {
		m.status = err.Error()
		return
	}
	m.dirty = true
	m.status = "added message to " + active.Name
}

// recenter pins the active branch to the middle of the visible canvas.
func (m *viewModel) recenter() {
	if m.width == 0 || m.height == 0 {
		return
	}
	active := m.conv.Active()
	pos, ok := m.res.Positions[active.ID]
	if !ok {
		pos = m.conv.CanvasCenter
	}
	view := geo.Size{W: float64(m.width) * m.cellW, H: float64(m.height-1) * m.cellH}
	m.ctrl.Recenter(pos, view)
}

// Block dimensions in cells.
const (
	blockCellW = 14
	blockCellH = 5
)

func (m viewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	rows := m.height - 1 // last row is the status bar
	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = make([]rune, m.width)
		for x := range grid[y] {
			grid[y][x] = ' '
		}
	}

	m.drawEdges(grid)
	for _, id := range m.order {
		m.drawBlock(grid, id)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

// canvasToCell projects a canvas point into terminal cells, applying the
// pan offset.
func (m viewModel) canvasToCell(p geo.Point) (int, int) {
	shifted := p.Add(m.ctrl.Offset())
	return int(shifted.X / m.cellW), int(shifted.Y / m.cellH)
}

func (m viewModel) drawEdges(grid [][]rune) {
	const samples = 32
	for _, id := range m.order {
		b := m.conv.Branches[id]
		if b.IsRoot() {
			continue
		}
		parentPos, ok := m.res.Positions[b.ParentBranchID]
		if !ok {
			continue
		}
		childPos, ok := m.res.Positions[id]
		if !ok {
			continue
		}
		conn := edge.Connect(
			edge.Block{Center: parentPos, Width: layout.BlockWidth},
			edge.Block{Center: childPos, Width: layout.BlockWidth},
		)
		for i := 0; i <= samples; i++ {
			x, y := m.canvasToCell(conn.At(float64(i) / samples))
			setRune(grid, x, y, '·')
		}
	}
}

func (m viewModel) drawBlock(grid [][]rune, id string) {
	pos, ok := m.res.Positions[id]
	if !ok {
		return
	}
	b := m.conv.Branches[id]
	cx, cy := m.canvasToCell(pos)
	left := cx - blockCellW/2
	top := cy - blockCellH/2

	active := id == m.conv.ActiveBranchID
	h, v := '─', '│'
	tl, tr, bl, br := '┌', '┐', '└', '┘'
	if active {
		h, v = '═', '║'
		tl, tr, bl, br = '╔', '╗', '╚', '╝'
	}

	for x := left + 1; x < left+blockCellW-1; x++ {
		setRune(grid, x, top, h)
		setRune(grid, x, top+blockCellH-1, h)
	}
	for y := top + 1; y < top+blockCellH-1; y++ {
		setRune(grid, left, y, v)
		setRune(grid, left+blockCellW-1, y, v)
	}
	setRune(grid, left, top, tl)
	setRune(grid, left+blockCellW-1, top, tr)
	setRune(grid, left, top+blockCellH-1, bl)
	setRune(grid, left+blockCellW-1, top+blockCellH-1, br)

	// Interior: clear, then the name and message count.
	for y := top + 1; y < top+blockCellH-1; y++ {
		for x := left + 1; x < left+blockCellW-1; x++ {
			setRune(grid, x, y, ' ')
		}
	}
	writeString(grid, left+1, top+1, fitString(b.Name, blockCellW-2))
	writeString(grid, left+1, top+2, fitString(fmt.Sprintf("%d msgs", len(b.Messages)), blockCellW-2))
}

func (m viewModel) statusBar() string {
	mode := "pan: drag or scroll"
	if m.drag.active {
		mode = "dragging"
	}
	left := fmt.Sprintf(" %s · %s ", StyleTitle.Render(m.conv.Title), StyleActive.Render(m.conv.Active().Name))
	help := StyleDim.Render("tab switch · n branch · m message · c center · q quit · " + mode)
	bar := left + help
	if m.status != "" {
		bar += StyleDim.Render(" · ") + m.status
	}
	return bar
}

func setRune(grid [][]rune, x, y int, r rune) {
	if y < 0 || y >= len(grid) || x < 0 || x >= len(grid[y]) {
		return
	}
	grid[y][x] = r
}

func writeString(grid [][]rune, x, y int, s string) {
	for i, r := range []rune(s) {
		setRune(grid, x+i, y, r)
	}
}

func fitString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

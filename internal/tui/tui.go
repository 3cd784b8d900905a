// Package tui hosts the overlay in a terminal. The terminal is the screen:
// every cell is an 8x16 logical-pixel block, mouse input drives the drag
// gestures, and bubbles and the action zone are drawn from the headless
// surface the orchestrator attaches its views to.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/overlay"
	"go.klb.dev/bubbleclip/internal/surface"
)

const (
	// CellW and CellH are the logical size of one terminal cell.
	CellW = 8
	CellH = 16

	wheelStep = 3 * CellH
)

// Overlay is the part of the orchestrator the terminal drives.
type Overlay interface {
	PointerDown(id string, p geom.Point)
	PointerMove(id string, p geom.Point)
	PointerUp(id string, p geom.Point)
	ScrollZone(delta float64)
	Resize(size geom.Size)
	Suspend()
	ToggleMode()
	TrimMemory()
	Add(ctx context.Context, content string) (string, error)
	MarkReplace(ctx context.Context, id string) error
	MarkAppend(ctx context.Context, id string) error
	ClearMark(ctx context.Context, id string) error
	Pin(ctx context.Context, id string, pinned bool) error
}

// Viewer lists the views attached to the overlay surface.
type Viewer interface {
	Views() []surface.Placed
}

// CellToPoint maps terminal cell (c, r) to the logical point at its centre.
func CellToPoint(c, r int) geom.Point {
	return geom.Point{X: float64(c*CellW + CellW/2), Y: float64(r*CellH + CellH/2)}
}

// ScreenSize is the logical screen of a w x h terminal. The last row is the
// status line.
func ScreenSize(w, h int) geom.Size {
	return geom.Size{W: float64(w * CellW), H: float64(max(h-1, 1) * CellH)}
}

// Notices buffers user-facing notices from the orchestrator for display.
type Notices struct {
	ch chan string
}

// NewNotices returns an empty notice buffer.
func NewNotices() *Notices {
	return &Notices{ch: make(chan string, 8)}
}

// Notify implements overlay.Notifier. It never blocks; notices beyond the
// buffer are dropped.
func (n *Notices) Notify(msg string) {
	select {
	case n.ch <- msg:
	default:
	}
}

type (
	snapshotMsg hub.Snapshot
	noticeMsg   string
	errMsg      struct{ err error }
)

// Model is the bubbletea model of the overlay.
type Model struct {
	ctx     context.Context
	o       Overlay
	views   Viewer
	snaps   <-chan hub.Snapshot
	notices *Notices

	width, height int
	snap          hub.Snapshot
	active        string // bubble under the pressed pointer
	selected      string // target of key commands
	notice        string
}

// New returns a model driving o. snaps delivers hub snapshots; notices may
// be nil.
func New(ctx context.Context, o Overlay, views Viewer, snaps <-chan hub.Snapshot, notices *Notices) Model {
	return Model{ctx: ctx, o: o, views: views, snaps: snaps, notices: notices}
}

// Run runs the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitSnapshot(), m.waitNotice())
}

func (m Model) waitSnapshot() tea.Cmd {
	if m.snaps == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-m.snaps
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func (m Model) waitNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	return func() tea.Msg {
		return noticeMsg(<-m.notices.ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.o.Resize(ScreenSize(msg.Width, msg.Height))
		return m, nil

	case snapshotMsg:
		m.snap = hub.Snapshot(msg)
		if _, ok := m.snap.Bubble(m.selected); !ok {
			m.selected = ""
		}
		return m, m.waitSnapshot()

	case noticeMsg:
		m.notice = string(msg)
		return m, m.waitNotice()

	case errMsg:
		m.notice = msg.err.Error()
		return m, nil

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *Model) mouse(msg tea.MouseMsg) {
	p := CellToPoint(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if m.active != "" {
				return
			}
			id, ok := m.hit(p)
			if !ok {
				return
			}
			m.active, m.selected = id, id
			m.o.PointerDown(id, p)
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
			m.o.ScrollZone(-wheelStep)
		case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
			m.o.ScrollZone(wheelStep)
		}
	case tea.MouseActionMotion:
		if m.active != "" {
			m.o.PointerMove(m.active, p)
		}
	case tea.MouseActionRelease:
		if m.active != "" {
			m.o.PointerUp(m.active, p)
			m.active = ""
		}
	}
}

// hit returns the topmost bubble under p.
func (m Model) hit(p geom.Point) (string, bool) {
	views := m.views.Views()
	for i := len(views) - 1; i >= 0; i-- {
		bv, ok := views[i].View.(overlay.BubbleView)
		if !ok {
			continue
		}
		if geom.RectAt(views[i].Position, geom.Size{W: bv.Size, H: bv.Size}).Contains(p) {
			return bv.ID, true
		}
	}
	return "", false
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.o.Suspend()
		m.active = ""
	case "m":
		m.o.ToggleMode()
	case "t":
		m.o.TrimMemory()
	case "n":
		return m, m.do(func(ctx context.Context) error {
			_, err := m.o.Add(ctx, "")
			return err
		})
	case "tab":
		m.selected = m.next(1)
	case "shift+tab":
		m.selected = m.next(-1)
	case "r":
		return m, m.onSelected(m.o.MarkReplace)
	case "a":
		return m, m.onSelected(m.o.MarkAppend)
	case "c":
		return m, m.onSelected(m.o.ClearMark)
	case "p":
		b, ok := m.snap.Bubble(m.selected)
		if !ok {
			return m, nil
		}
		return m, m.onSelected(func(ctx context.Context, id string) error {
			return m.o.Pin(ctx, id, !b.Pinned)
		})
	}
	return m, nil
}

// next cycles the selection through the bubbles in creation order.
func (m Model) next(step int) string {
	n := len(m.snap.Bubbles)
	if n == 0 {
		return ""
	}
	i := -1
	for k, b := range m.snap.Bubbles {
		if b.ID == m.selected {
			i = k
		}
	}
	if i < 0 {
		return m.snap.Bubbles[0].ID
	}
	return m.snap.Bubbles[((i+step)%n+n)%n].ID
}

func (m Model) onSelected(fn func(context.Context, string) error) tea.Cmd {
	if m.selected == "" {
		return func() tea.Msg { return noticeMsg("No bubble selected") }
	}
	id := m.selected
	return m.do(func(ctx context.Context) error { return fn(ctx, id) })
}

func (m Model) do(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return errMsg{fmt.Errorf("bubble: %w", err)}
		}
		return nil
	}
}

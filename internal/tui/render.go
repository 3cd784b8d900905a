package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/overlay"
	"go.klb.dev/bubbleclip/internal/zone"
)

// paint is the look of one cell. It is comparable so runs of equal cells can
// be rendered with one style.
type paint struct {
	fg, bg lipgloss.Color
	bold   bool
}

func (p paint) style() lipgloss.Style {
	s := lipgloss.NewStyle().Bold(p.bold)
	if p.fg != "" {
		s = s.Foreground(p.fg)
	}
	if p.bg != "" {
		s = s.Background(p.bg)
	}
	return s
}

// Bubble frames by state.
var stateStyles = map[bubble.State]paint{
	bubble.Empty:   {fg: "244"},
	bubble.Storing: {fg: "252", bg: "236"},
	bubble.Replace: {fg: "230", bg: "94", bold: true},
	bubble.Append:  {fg: "194", bg: "22", bold: true},
}

// Badge glyph and colour by content type.
var typeStyles = map[classify.ContentType]struct {
	glyph string
	fg    lipgloss.Color
}{
	classify.TEXT:    {"T", "252"},
	classify.URL:     {"@", "39"},
	classify.PHONE:   {"#", "114"},
	classify.EMAIL:   {"✉", "213"},
	classify.ADDRESS: {"⌂", "180"},
	classify.CODE:    {"{}", "221"},
}

var stateMarks = map[bubble.State]string{
	bubble.Empty:   "+",
	bubble.Storing: "",
	bubble.Replace: "R",
	bubble.Append:  "A",
}

var (
	zoneStyle     = paint{fg: "250", bg: "237"}
	zoneHotStyle  = paint{fg: "255", bg: "25"}
	slotStyle     = paint{fg: "255", bg: "60", bold: true}
	selectedStyle = lipgloss.Color("214")
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

type cell struct {
	r rune
	p paint
}

type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

func (c *canvas) set(x, y int, r rune, p paint) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{r: r, p: p}
}

func (c *canvas) fill(x0, y0, x1, y1 int, p paint) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.set(x, y, ' ', p)
		}
	}
}

// text writes s from (x, y), clipped to n cells.
func (c *canvas) text(x, y int, s string, n int, p paint) {
	i := 0
	for _, r := range s {
		if i >= n {
			return
		}
		c.set(x+i, y, r, p)
		i++
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		row := c.cells[y*c.w : (y+1)*c.w]
		for x := 0; x < len(row); {
			end := x
			var run strings.Builder
			for end < len(row) && row[end].p == row[x].p {
				run.WriteRune(row[end].r)
				end++
			}
			if row[x].p == (paint{}) {
				b.WriteString(run.String())
			} else {
				b.WriteString(row[x].p.style().Render(run.String()))
			}
			x = end
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// cellRect converts a logical rect to the cells it covers, end exclusive.
func cellRect(r geom.Rect) (x0, y0, x1, y1 int) {
	x0 = int(math.Floor(r.X / CellW))
	y0 = int(math.Floor(r.Y / CellH))
	x1 = int(math.Ceil((r.X + r.W) / CellW))
	y1 = int(math.Ceil((r.Y + r.H) / CellH))
	return
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	c := newCanvas(m.width, max(m.height-1, 0))
	for _, pl := range m.views.Views() {
		switch v := pl.View.(type) {
		case zone.View:
			drawZone(c, v)
		}
	}
	for _, pl := range m.views.Views() {
		switch v := pl.View.(type) {
		case overlay.BubbleView:
			drawBubble(c, v, pl.Position, v.ID == m.selected)
		}
	}
	return c.String() + "\n" + m.status()
}

func drawZone(c *canvas, v zone.View) {
	st := zoneStyle
	if v.Glow >= 0.5 {
		st = zoneHotStyle
	}
	x0, y0, x1, y1 := cellRect(v.Bounds)
	c.fill(x0, y0, x1, y1, st)
	for _, s := range v.Slots {
		if !s.Bounds.Intersects(v.Bounds) {
			continue
		}
		sx0, sy0, sx1, sy1 := cellRect(s.Bounds)
		sx0, sy0 = max(sx0, x0), max(sy0, y0)
		sx1, sy1 = min(sx1, x1), min(sy1, y1)
		c.fill(sx0, sy0, sx1, sy1, slotStyle)
		width := sx1 - sx0
		if width <= 0 {
			continue
		}
		label := truncate.StringWithTail(s.Action.Label, uint(width), "…")
		c.text(sx0, sy0+(sy1-sy0)/2, label, width, slotStyle)
	}
}

func drawBubble(c *canvas, v overlay.BubbleView, at geom.Point, selected bool) {
	x0, y0, x1, y1 := cellRect(geom.RectAt(at, geom.Size{W: v.Size, H: v.Size}))
	w, h := x1-x0, y1-y0
	if w < 3 || h < 2 {
		return
	}
	st := stateStyles[v.State]
	frame := st
	if selected {
		frame.fg = selectedStyle
	}
	if v.Dragging {
		frame.bold = true
	}
	c.fill(x0, y0, x1, y1, st)

	// border
	top, bottom := '─', '─'
	if v.Pinned {
		top = '═'
	}
	for x := x0 + 1; x < x1-1; x++ {
		c.set(x, y0, top, frame)
		c.set(x, y1-1, bottom, frame)
	}
	for y := y0 + 1; y < y1-1; y++ {
		c.set(x0, y, '│', frame)
		c.set(x1-1, y, '│', frame)
	}
	c.set(x0, y0, '╭', frame)
	c.set(x1-1, y0, '╮', frame)
	c.set(x0, y1-1, '╰', frame)
	c.set(x1-1, y1-1, '╯', frame)

	inner := w - 2
	if h < 3 || inner <= 0 {
		return
	}
	badge := stateMarks[v.State]
	if v.HasType {
		ts := typeStyles[v.ContentType]
		badge = ts.glyph + badge
		c.text(x0+1, y0+1, badge, inner, paint{fg: ts.fg, bg: st.bg, bold: true})
	} else {
		c.text(x0+1, y0+1, badge, inner, st)
	}
	if h >= 4 && v.Content != "" {
		c.text(x0+1, y0+2, actions.Preview(v.Content, uint(inner)), inner, st)
	}
}

func (m Model) status() string {
	s := fmt.Sprintf(" %d bubbles · mode %s", len(m.snap.Bubbles), m.snap.Mode)
	if m.snap.Degraded {
		s += " · overlay off"
	}
	if m.selected != "" {
		s += " · " + shortID(m.selected)
	}
	s += " · r/a/c mark  p pin  n new  m mode  t trim  q quit"
	if m.notice == "" {
		return statusStyle.Render(truncate.String(s, uint(m.width)))
	}
	n := truncate.String(" "+m.notice+" ·", uint(m.width))
	rest := max(m.width-lipgloss.Width(n), 0)
	return noticeStyle.Render(n) + statusStyle.Render(truncate.String(s, uint(rest)))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

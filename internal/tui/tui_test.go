package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/overlay"
	"go.klb.dev/bubbleclip/internal/surface"
	"go.klb.dev/bubbleclip/internal/zone"
)

type fakeOverlay struct {
	mu     sync.Mutex
	calls  []string
	resize geom.Size
	err    error
}

func (f *fakeOverlay) rec(format string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeOverlay) PointerDown(id string, p geom.Point) { f.rec("down %s %g,%g", id, p.X, p.Y) }
func (f *fakeOverlay) PointerMove(id string, p geom.Point) { f.rec("move %s %g,%g", id, p.X, p.Y) }
func (f *fakeOverlay) PointerUp(id string, p geom.Point)   { f.rec("up %s %g,%g", id, p.X, p.Y) }
func (f *fakeOverlay) ScrollZone(d float64)                { f.rec("scroll %g", d) }
func (f *fakeOverlay) Resize(s geom.Size)                  { f.resize = s }
func (f *fakeOverlay) Suspend()                            { f.rec("suspend") }
func (f *fakeOverlay) ToggleMode()                         { f.rec("mode") }
func (f *fakeOverlay) TrimMemory()                         { f.rec("trim") }

func (f *fakeOverlay) Add(_ context.Context, content string) (string, error) {
	f.rec("add %q", content)
	return "new", f.err
}

func (f *fakeOverlay) MarkReplace(_ context.Context, id string) error {
	f.rec("replace %s", id)
	return f.err
}

func (f *fakeOverlay) MarkAppend(_ context.Context, id string) error {
	f.rec("append %s", id)
	return f.err
}

func (f *fakeOverlay) ClearMark(_ context.Context, id string) error {
	f.rec("clear %s", id)
	return f.err
}

func (f *fakeOverlay) Pin(_ context.Context, id string, pinned bool) error {
	f.rec("pin %s %t", id, pinned)
	return f.err
}

func urlBubble() overlay.BubbleView {
	return overlay.BubbleView{
		Snapshot: bubble.Snapshot{
			ID:          "b1",
			State:       bubble.Storing,
			Content:     "https://example.com",
			ContentType: classify.URL,
			HasType:     true,
		},
		Size: 60,
	}
}

func setup(t *testing.T) (*fakeOverlay, *surface.Headless, Model) {
	t.Helper()
	f := &fakeOverlay{}
	surf := surface.NewHeadless()
	_, err := surf.Attach(urlBubble(), geom.Point{X: 8, Y: 0})
	require.NoError(t, err)

	m := New(context.Background(), f, surf, nil, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(snapshotMsg(hub.Snapshot{
		Mode:    "replace",
		Bubbles: []bubble.Snapshot{urlBubble().Snapshot, {ID: "b2", State: bubble.Empty}},
	}))
	return f, surf, next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCellMapping(t *testing.T) {
	assert.Equal(t, geom.Point{X: 4, Y: 8}, CellToPoint(0, 0))
	assert.Equal(t, geom.Point{X: 84, Y: 40}, CellToPoint(10, 2))
	assert.Equal(t, geom.Size{W: 640, H: 368}, ScreenSize(80, 24))
	assert.Equal(t, geom.Size{W: 80, H: 16}, ScreenSize(10, 1))
}

func TestResizeOnWindowSize(t *testing.T) {
	f, _, _ := setup(t)
	assert.Equal(t, geom.Size{W: 640, H: 368}, f.resize)
}

func TestDragDrivesPointer(t *testing.T) {
	f, _, m := setup(t)

	m, _ = update(t, m, press(2, 1))
	m, _ = update(t, m, tea.MouseMsg{X: 0, Y: 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m, _ = update(t, m, tea.MouseMsg{X: 0, Y: 10, Action: tea.MouseActionRelease})
	// motion after release goes nowhere
	_, _ = update(t, m, tea.MouseMsg{X: 5, Y: 5, Action: tea.MouseActionMotion})

	assert.Equal(t, []string{"down b1 20,24", "move b1 4,168", "up b1 4,168"}, f.calls)
	assert.Equal(t, "b1", m.selected)
}

func TestPressOutsideBubbles(t *testing.T) {
	f, _, m := setup(t)
	m, _ = update(t, m, press(40, 15))
	_, _ = update(t, m, tea.MouseMsg{X: 40, Y: 16, Action: tea.MouseActionMotion})
	assert.Empty(t, f.calls)
}

func TestWheelScrollsZone(t *testing.T) {
	f, _, m := setup(t)
	m, _ = update(t, m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	_, _ = update(t, m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	assert.Equal(t, []string{"scroll 48", "scroll -48"}, f.calls)
}

func TestKeysWithoutSelection(t *testing.T) {
	f, _, m := setup(t)
	_, cmd := update(t, m, keyMsg("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, noticeMsg("No bubble selected"), cmd())
	assert.Empty(t, f.calls)
}

func TestMarkKeys(t *testing.T) {
	f, _, m := setup(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "b1", m.selected)

	for _, k := range []string{"r", "a", "c", "p"} {
		_, cmd := update(t, m, keyMsg(k))
		require.NotNil(t, cmd, k)
		assert.Nil(t, cmd())
	}
	assert.Equal(t, []string{"replace b1", "append b1", "clear b1", "pin b1 true"}, f.calls)
}

func TestKeyErrorBecomesNotice(t *testing.T) {
	f, _, m := setup(t)
	f.err = errors.New("unknown bubble")
	m.selected = "b1"
	_, cmd := update(t, m, keyMsg("r"))
	msg := cmd()
	require.IsType(t, errMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.notice, "unknown bubble")
}

func TestGlobalKeys(t *testing.T) {
	f, _, m := setup(t)
	m, _ = update(t, m, keyMsg("m"))
	m, _ = update(t, m, keyMsg("t"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd := update(t, m, keyMsg("n"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"mode", "trim", "suspend", `add ""`}, f.calls)

	_, cmd = update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTabCycles(t *testing.T) {
	_, _, m := setup(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "b2", m.selected)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "b1", m.selected)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "b2", m.selected)
}

func TestSelectionDroppedWhenBubbleGoes(t *testing.T) {
	_, _, m := setup(t)
	m.selected = "b2"
	m, _ = update(t, m, snapshotMsg(hub.Snapshot{Bubbles: []bubble.Snapshot{urlBubble().Snapshot}}))
	assert.Empty(t, m.selected)
}

func TestViewDrawsBubblesAndZone(t *testing.T) {
	_, surf, m := setup(t)

	out := m.View()
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "@")
	assert.Contains(t, out, "https")
	assert.Contains(t, out, "mode replace")

	acts := actions.New().ActionsFor(classify.URL, "https://example.com")
	v := zone.Layout(zone.Config{
		Screen:     ScreenSize(80, 24),
		Thickness:  zone.DefaultThickness,
		SlotLength: zone.DefaultSlotLength,
		Gap:        zone.DefaultGap,
	}, geom.EdgeBottom, acts, 0)
	_, err := surf.Attach(v, v.Bounds.Min())
	require.NoError(t, err)

	out = m.View()
	assert.Contains(t, out, "Open")
	assert.Contains(t, out, "Replace")
}

func TestNoticeShownInStatus(t *testing.T) {
	_, _, m := setup(t)
	n := NewNotices()
	m.notices = n
	n.Notify("Clipboard is empty")

	msg := m.waitNotice()()
	m, cmd := update(t, m, msg)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Clipboard is empty")
}

func TestNoticesNeverBlock(t *testing.T) {
	n := NewNotices()
	for i := 0; i < 20; i++ {
		n.Notify("x")
	}
	assert.Len(t, n.ch, cap(n.ch))
}

func TestSnapshotsFromHub(t *testing.T) {
	h := hub.New()
	peer := hub.NewChanPeer("tui", 4)
	h.Register(peer)
	h.Publish(hub.Snapshot{Seq: 7, Mode: "extend", Degraded: true})

	m := New(context.Background(), &fakeOverlay{}, surface.NewHeadless(), peer.C(), nil)
	m.width, m.height = 80, 24
	msg := m.waitSnapshot()()
	m, _ = update(t, m, msg)
	assert.Equal(t, uint64(7), m.snap.Seq)
	assert.Contains(t, m.View(), "overlay off")
}

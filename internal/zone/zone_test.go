package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/gesture"
	"go.klb.dev/bubbleclip/internal/surface"
)

var screen = geom.Size{W: 1000, H: 2000}

func cfg() Config { return Config{Screen: screen, Thickness: 100, SlotLength: 120, Gap: 8} }

func urlActions() []actions.Action {
	return actions.New().ActionsFor(classify.URL, "https://example.com")
}

func session(t *testing.T) (*gesture.Controller, *gesture.Session) {
	t.Helper()
	c := gesture.NewController(gesture.Config{Screen: screen}, nil)
	return c, c.PointerDown("b1", geom.Point{}, geom.Point{X: 500, Y: 1000})
}

func TestLayoutLeft(t *testing.T) {
	acts := urlActions()
	v := Layout(cfg(), geom.EdgeLeft, acts, 0)
	assert.Equal(t, Vertical, v.Orientation)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, W: 100, H: 2000}, v.Bounds)
	require.Len(t, v.Slots, len(acts))
	assert.Equal(t, geom.Rect{X: 0, Y: 8, W: 100, H: 120}, v.Slots[0].Bounds)
	assert.Equal(t, geom.Rect{X: 0, Y: 136, W: 100, H: 120}, v.Slots[1].Bounds)
	for i, s := range v.Slots {
		assert.Equal(t, acts[i].ID, s.Action.ID, "registry order kept")
	}
}

func TestLayoutEdges(t *testing.T) {
	acts := urlActions()
	right := Layout(cfg(), geom.EdgeRight, acts, 0)
	assert.Equal(t, geom.Rect{X: 900, Y: 0, W: 100, H: 2000}, right.Bounds)

	top := Layout(cfg(), geom.EdgeTop, acts, 0)
	assert.Equal(t, Horizontal, top.Orientation)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, W: 1000, H: 100}, top.Bounds)
	assert.Equal(t, geom.Rect{X: 8, Y: 0, W: 120, H: 100}, top.Slots[0].Bounds)

	bottom := Layout(cfg(), geom.EdgeBottom, acts, 0)
	assert.Equal(t, geom.Rect{X: 0, Y: 1900, W: 1000, H: 100}, bottom.Bounds)

	none := Layout(cfg(), geom.EdgeNone, acts, 0)
	assert.Empty(t, none.Slots)
}

func TestLayoutOverflowScroll(t *testing.T) {
	acts := urlActions() // 6 actions: 8 + 6*128 = 776 > 500
	c := Config{Screen: geom.Size{W: 500, H: 500}, Gap: 8}
	v := Layout(c, geom.EdgeTop, acts, 1e6)
	assert.InDelta(t, 276, v.MaxOffset, 1e-9)
	assert.InDelta(t, 276, v.Offset, 1e-9)

	v = Layout(c, geom.EdgeTop, acts, -50)
	assert.Equal(t, 0.0, v.Offset)
}

func TestActionAt(t *testing.T) {
	v := Layout(cfg(), geom.EdgeLeft, urlActions(), 0)
	a, ok := v.ActionAt(geom.Point{X: 50, Y: 20})
	require.True(t, ok)
	assert.Equal(t, actions.OpenURL, a.Launch)

	_, ok = v.ActionAt(geom.Point{X: 50, Y: 130}) // gap
	assert.False(t, ok)
	_, ok = v.ActionAt(geom.Point{X: 150, Y: 20}) // outside strip
	assert.False(t, ok)
	_, ok = v.ActionAt(geom.Point{X: 50, Y: 1900}) // past last slot
	assert.False(t, ok)
}

func TestShowHideIdempotent(t *testing.T) {
	surf := surface.NewHeadless()
	r := NewRenderer(cfg(), surf)
	_, s := session(t)

	require.NoError(t, r.Show(s, urlActions(), geom.EdgeLeft))
	assert.True(t, r.Visible())
	assert.Equal(t, 1, surf.Len())
	assert.Equal(t, s.ID, r.Owner())

	r.Hide()
	assert.False(t, r.Visible())
	assert.Equal(t, 0, surf.Len())

	r.Hide()
	assert.False(t, r.Visible())
	assert.Equal(t, 0, surf.Len())
	_, ok := r.ActionAt(geom.Point{X: 50, Y: 20})
	assert.False(t, ok)
}

func TestShowReplacesInPlace(t *testing.T) {
	surf := surface.NewHeadless()
	r := NewRenderer(cfg(), surf)
	_, s := session(t)

	require.NoError(t, r.Show(s, urlActions(), geom.EdgeLeft))
	first := surf.Views()[0].Handle

	sawEmpty := false
	surf.OnChange(func() {
		if surf.Len() == 0 {
			sawEmpty = true
		}
	})

	phone := actions.New().ActionsFor(classify.PHONE, "+420777123456")
	require.NoError(t, r.Show(s, phone, geom.EdgeTop))
	views := surf.Views()
	require.Len(t, views, 1)
	assert.Equal(t, first, views[0].Handle)
	assert.False(t, sawEmpty, "zone must never disappear during a replace")

	v := views[0].View.(View)
	assert.Equal(t, geom.EdgeTop, v.Edge)
	assert.Equal(t, actions.Dial, v.Slots[0].Action.Launch)
}

func TestShowAfterSessionEnded(t *testing.T) {
	surf := surface.NewHeadless()
	r := NewRenderer(cfg(), surf)
	c, s := session(t)
	c.Cancel()

	err := r.Show(s, urlActions(), geom.EdgeLeft)
	assert.ErrorIs(t, err, ErrRenderAttachRace)
	assert.False(t, r.Visible())
	assert.Equal(t, 0, surf.Len())
}

func TestShowEmptyActionsHides(t *testing.T) {
	r := NewRenderer(cfg(), surface.NewHeadless())
	_, s := session(t)
	require.NoError(t, r.Show(s, urlActions(), geom.EdgeLeft))
	require.NoError(t, r.Show(s, nil, geom.EdgeLeft))
	assert.False(t, r.Visible())
}

func TestReleaseOwnership(t *testing.T) {
	r := NewRenderer(cfg(), surface.NewHeadless())
	_, a := session(t)
	_, b := session(t)

	require.NoError(t, r.Show(a, urlActions(), geom.EdgeLeft))
	require.NoError(t, r.Show(b, urlActions(), geom.EdgeRight))
	assert.Equal(t, b.ID, r.Owner())

	r.Release(a.ID)
	assert.True(t, r.Visible(), "a no longer owns the zone")
	require.NoError(t, r.UpdateGlow(a.ID, 0.9))
	v, _ := r.View()
	assert.Equal(t, 0.0, v.Glow)

	require.NoError(t, r.UpdateGlow(b.ID, 0.7))
	v, _ = r.View()
	assert.Equal(t, 0.7, v.Glow)

	r.Release(b.ID)
	assert.False(t, r.Visible())
}

func TestAttachDenied(t *testing.T) {
	surf := surface.NewHeadless()
	surf.SetDenied(true)
	r := NewRenderer(cfg(), surf)
	_, s := session(t)
	err := r.Show(s, urlActions(), geom.EdgeLeft)
	assert.ErrorIs(t, err, surface.ErrPermissionDenied)
	assert.False(t, r.Visible())
}

func TestScroll(t *testing.T) {
	r := NewRenderer(Config{Screen: geom.Size{W: 500, H: 500}, Gap: 8}, nil)
	_, s := session(t)
	require.NoError(t, r.Show(s, urlActions(), geom.EdgeTop))
	require.NoError(t, r.Scroll(100))
	v, ok := r.View()
	require.True(t, ok)
	assert.Equal(t, 100.0, v.Offset)
	assert.Equal(t, -92.0, v.Slots[0].Bounds.X)
}

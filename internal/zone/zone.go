// Package zone lays out and owns the action strip shown while a drag sits in
// an edge band. At most one strip exists per Renderer; the orchestrator keeps
// a single Renderer so at most one strip is visible system-wide.
package zone

import (
	"errors"
	"fmt"
	"math"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/gesture"
	"go.klb.dev/bubbleclip/internal/surface"
)

// ErrRenderAttachRace is returned by Show when the requesting drag session
// has already ended. Callers ignore it.
var ErrRenderAttachRace = errors.New("action zone requested by an ended drag session")

const (
	DefaultThickness  = 100.0
	DefaultSlotLength = 120.0
	DefaultGap        = 8.0
)

// ViewID is the surface id of the action strip.
const ViewID = "action-zone"

// Orientation is the direction of the zone's primary axis.
type Orientation int

const (
	// Vertical strips run along the left or right edge.
	Vertical Orientation = iota
	// Horizontal strips run along the top or bottom edge.
	Horizontal
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Slot is one action and the screen rect it occupies.
type Slot struct {
	Action actions.Action
	Bounds geom.Rect
}

// View is the strip as handed to the overlay surface.
type View struct {
	Edge        geom.Edge
	Orientation Orientation
	Bounds      geom.Rect
	Slots       []Slot
	Glow        float64
	Offset      float64
	MaxOffset   float64
}

func (View) ViewID() string { return ViewID }

// Config sizes the strip, in logical pixels.
type Config struct {
	Screen     geom.Size
	Thickness  float64
	SlotLength float64
	Gap        float64
}

func (c Config) withDefaults() Config {
	if c.Thickness <= 0 {
		c.Thickness = DefaultThickness
	}
	if c.SlotLength <= 0 {
		c.SlotLength = DefaultSlotLength
	}
	if c.Gap < 0 {
		c.Gap = 0
	}
	return c
}

// Layout computes the strip for edge. The primary axis runs along the edge:
// left/right strips span the screen height, top/bottom strips the width.
// Actions keep registry order from the start of the strip; offset scrolls
// them back along the primary axis and is clamped to the overflow.
func Layout(cfg Config, edge geom.Edge, acts []actions.Action, offset float64) View {
	cfg = cfg.withDefaults()
	w, h, t := cfg.Screen.W, cfg.Screen.H, cfg.Thickness

	v := View{Edge: edge}
	var length float64
	switch edge {
	case geom.EdgeLeft:
		v.Bounds = geom.Rect{X: 0, Y: 0, W: t, H: h}
	case geom.EdgeRight:
		v.Bounds = geom.Rect{X: w - t, Y: 0, W: t, H: h}
	case geom.EdgeTop:
		v.Bounds = geom.Rect{X: 0, Y: 0, W: w, H: t}
	case geom.EdgeBottom:
		v.Bounds = geom.Rect{X: 0, Y: h - t, W: w, H: t}
	default:
		return v
	}
	if edge.Vertical() {
		v.Orientation = Vertical
		length = h
	} else {
		v.Orientation = Horizontal
		length = w
	}

	content := cfg.Gap + float64(len(acts))*(cfg.SlotLength+cfg.Gap)
	v.MaxOffset = math.Max(0, content-length)
	v.Offset = math.Min(math.Max(offset, 0), v.MaxOffset)

	v.Slots = make([]Slot, len(acts))
	for i, a := range acts {
		start := cfg.Gap + float64(i)*(cfg.SlotLength+cfg.Gap) - v.Offset
		r := v.Bounds
		if v.Orientation == Vertical {
			r.Y = v.Bounds.Y + start
			r.H = cfg.SlotLength
		} else {
			r.X = v.Bounds.X + start
			r.W = cfg.SlotLength
		}
		v.Slots[i] = Slot{Action: a, Bounds: r}
	}
	return v
}

// ActionAt returns the action whose slot contains p. Slots scrolled out of
// the strip are not hit.
func (v View) ActionAt(p geom.Point) (actions.Action, bool) {
	if !v.Bounds.Contains(p) {
		return actions.Action{}, false
	}
	for _, s := range v.Slots {
		if s.Bounds.Contains(p) {
			return s.Action, true
		}
	}
	return actions.Action{}, false
}

// Renderer owns the strip's lifecycle on a surface. It is not safe for
// concurrent use; the orchestrator drives it from its loop.
type Renderer struct {
	cfg  Config
	surf surface.Surface

	visible  bool
	attached bool
	handle   surface.Handle
	owner    string
	acts     []actions.Action
	view     View
}

// NewRenderer returns a hidden renderer drawing on surf. surf may be nil, in
// which case only layout and hit testing are kept.
func NewRenderer(cfg Config, surf surface.Surface) *Renderer {
	return &Renderer{cfg: cfg.withDefaults(), surf: surf}
}

// SetScreen re-lays out a visible strip for a new screen size.
func (r *Renderer) SetScreen(s geom.Size) error {
	r.cfg.Screen = s
	if !r.visible {
		return nil
	}
	r.view = Layout(r.cfg, r.view.Edge, r.acts, r.view.Offset)
	return r.redraw()
}

// SetSurface swaps the drawing surface. A visible strip is hidden first.
func (r *Renderer) SetSurface(surf surface.Surface) {
	r.Hide()
	r.surf = surf
}

// Show displays acts along edge on behalf of session s. When a strip is
// already visible its content is replaced in place. Empty action lists and
// EdgeNone hide the strip.
func (r *Renderer) Show(s *gesture.Session, acts []actions.Action, edge geom.Edge) error {
	if s.Ended() {
		return ErrRenderAttachRace
	}
	if edge == geom.EdgeNone || len(acts) == 0 {
		r.Hide()
		return nil
	}

	offset := 0.0
	if r.visible && r.owner == s.ID && r.view.Edge == edge {
		offset = r.view.Offset
	}
	r.acts = acts
	r.view = Layout(r.cfg, edge, acts, offset)
	r.view.Glow = s.Glow
	r.owner = s.ID
	r.visible = true
	return r.redraw()
}

// UpdateGlow refreshes the glow intensity if sessionID owns the strip.
func (r *Renderer) UpdateGlow(sessionID string, intensity float64) error {
	if !r.visible || r.owner != sessionID {
		return nil
	}
	r.view.Glow = math.Min(math.Max(intensity, 0), 1)
	return r.redraw()
}

// Scroll moves the strip content along its primary axis.
func (r *Renderer) Scroll(delta float64) error {
	if !r.visible {
		return nil
	}
	glow := r.view.Glow
	r.view = Layout(r.cfg, r.view.Edge, r.acts, r.view.Offset+delta)
	r.view.Glow = glow
	return r.redraw()
}

// Hide removes the strip. It is idempotent.
func (r *Renderer) Hide() {
	if r.attached && r.surf != nil {
		_ = r.surf.Detach(r.handle)
	}
	r.attached = false
	r.visible = false
	r.owner = ""
	r.acts = nil
	r.view = View{}
}

// Release hides the strip only if sessionID owns it.
func (r *Renderer) Release(sessionID string) {
	if r.owner == sessionID {
		r.Hide()
	}
}

// Visible reports whether the strip is shown.
func (r *Renderer) Visible() bool { return r.visible }

// Owner returns the id of the session that owns the strip, or "".
func (r *Renderer) Owner() string { return r.owner }

// View returns the current layout.
func (r *Renderer) View() (View, bool) { return r.view, r.visible }

// ActionAt implements gesture.HitTester against the visible strip.
func (r *Renderer) ActionAt(p geom.Point) (actions.Action, bool) {
	if !r.visible {
		return actions.Action{}, false
	}
	return r.view.ActionAt(p)
}

func (r *Renderer) redraw() error {
	if r.surf == nil {
		return nil
	}
	if r.attached {
		if err := r.surf.Update(r.handle, r.view); err != nil {
			return fmt.Errorf("update zone: %w", err)
		}
		return r.surf.UpdatePosition(r.handle, r.view.Bounds.Min())
	}
	h, err := r.surf.Attach(r.view, r.view.Bounds.Min())
	if err != nil {
		r.visible = false
		r.owner = ""
		return fmt.Errorf("attach zone: %w", err)
	}
	r.handle = h
	r.attached = true
	return nil
}

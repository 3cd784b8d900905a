// Package gesture turns raw pointer events for one bubble into drag signals:
// anti-jitter start detection, edge-band activation with a glow intensity,
// and drop resolution against the rendered action zone.
package gesture

import (
	"github.com/google/uuid"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/geom"
)

const (
	DefaultDragThreshold = 10.0
	DefaultEdgeThreshold = 100.0
)

// SignalKind classifies the outcome of a pointer move.
type SignalKind int

const (
	// SignalBelowThreshold: the drag has not moved far enough to start.
	SignalBelowThreshold SignalKind = iota
	// SignalDragging: the bubble moves, no edge is active.
	SignalDragging
	SignalEdgeEntered
	SignalEdgeMoved
	SignalEdgeExited
)

var kindNames = [...]string{"below-threshold", "dragging", "edge-entered", "edge-moved", "edge-exited"}

func (k SignalKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Signal is emitted for every pointer move of an active session.
type Signal struct {
	Kind      SignalKind
	Edge      geom.Edge
	Intensity float64
	// Position is the bubble's new top-left corner.
	Position geom.Point
}

// Session is the per-gesture state, alive from pointer-down to pointer-up or
// cancellation. It is owned by its Controller.
type Session struct {
	ID       string
	BubbleID string
	// StartPointer is where the pointer went down; Origin is where the
	// bubble was at that moment.
	StartPointer geom.Point
	Origin       geom.Point
	Pointer      geom.Point
	Edge         geom.Edge
	Glow         float64
	Started      bool

	ended bool
}

// Ended reports whether the session has been released or cancelled.
func (s *Session) Ended() bool { return s == nil || s.ended }

// Position is the bubble position implied by the current pointer.
func (s *Session) Position() geom.Point {
	return s.Origin.Add(s.Pointer.Sub(s.StartPointer))
}

// HitTester resolves a release coordinate to the action rendered under it.
type HitTester interface {
	ActionAt(p geom.Point) (actions.Action, bool)
}

// DropResult is the outcome of a released or cancelled session.
type DropResult struct {
	SessionID string
	BubbleID  string
	// Action is nil when the release did not land on an action.
	Action    *actions.Action
	Edge      geom.Edge
	Position  geom.Point
	Tap       bool
	Cancelled bool
}

// Config holds the gesture thresholds, in logical pixels.
type Config struct {
	DragThreshold float64
	EdgeThreshold float64
	Screen        geom.Size
}

func (c Config) withDefaults() Config {
	if c.DragThreshold <= 0 {
		c.DragThreshold = DefaultDragThreshold
	}
	if c.EdgeThreshold <= 0 {
		c.EdgeThreshold = DefaultEdgeThreshold
	}
	return c
}

// Controller tracks at most one drag session at a time.
type Controller struct {
	cfg     Config
	hits    HitTester
	session *Session
}

// NewController returns a controller that resolves drops against hits.
func NewController(cfg Config, hits HitTester) *Controller {
	return &Controller{cfg: cfg.withDefaults(), hits: hits}
}

// SetScreen updates the screen size used for edge detection.
func (c *Controller) SetScreen(s geom.Size) { c.cfg.Screen = s }

// Session returns the active session, or nil.
func (c *Controller) Session() *Session { return c.session }

// Active reports whether a session is in progress.
func (c *Controller) Active() bool { return c.session != nil }

// PointerDown starts a session for bubbleID whose top-left corner is at
// bubblePos. Any session still in progress is discarded.
func (c *Controller) PointerDown(bubbleID string, bubblePos, p geom.Point) *Session {
	if c.session != nil {
		c.session.ended = true
	}
	c.session = &Session{
		ID:           uuid.NewString(),
		BubbleID:     bubbleID,
		StartPointer: p,
		Origin:       bubblePos,
		Pointer:      p,
	}
	return c.session
}

// PointerMove advances the session. Without a session it reports
// SignalBelowThreshold.
func (c *Controller) PointerMove(p geom.Point) Signal {
	s := c.session
	if s == nil {
		return Signal{Kind: SignalBelowThreshold}
	}
	if !s.Started {
		if p.Sub(s.StartPointer).Len() <= c.cfg.DragThreshold {
			return Signal{Kind: SignalBelowThreshold, Position: s.Origin}
		}
		s.Started = true
	}
	s.Pointer = p

	pos := s.Position()
	edge, dist := geom.DetectEdge(p, c.cfg.Screen, c.cfg.EdgeThreshold)
	prev := s.Edge
	s.Edge = edge
	if edge == geom.EdgeNone {
		s.Glow = 0
		if prev != geom.EdgeNone {
			return Signal{Kind: SignalEdgeExited, Edge: prev, Position: pos}
		}
		return Signal{Kind: SignalDragging, Position: pos}
	}

	s.Glow = geom.Intensity(dist, c.cfg.EdgeThreshold)
	kind := SignalEdgeMoved
	if edge != prev {
		kind = SignalEdgeEntered
	}
	return Signal{Kind: kind, Edge: edge, Intensity: s.Glow, Position: pos}
}

// PointerUp ends the session. When an edge is active the release point is
// resolved against the rendered zone; otherwise the result carries no action
// and the caller snaps the bubble.
func (c *Controller) PointerUp(p geom.Point) DropResult {
	s := c.session
	if s == nil {
		return DropResult{Cancelled: true}
	}
	if s.Started {
		s.Pointer = p
	}
	res := c.finish()
	if !s.Started {
		res.Tap = true
		res.Position = s.Origin
		return res
	}
	// the release point can arrive without a final move, so the band is
	// checked again where the pointer actually let go
	edge, _ := geom.DetectEdge(p, c.cfg.Screen, c.cfg.EdgeThreshold)
	if s.Edge != geom.EdgeNone && edge != geom.EdgeNone && c.hits != nil {
		if a, ok := c.hits.ActionAt(p); ok {
			res.Action = &a
		}
	}
	return res
}

// Cancel ends the session as a drop with no action.
func (c *Controller) Cancel() DropResult {
	if c.session == nil {
		return DropResult{Cancelled: true}
	}
	res := c.finish()
	res.Cancelled = true
	return res
}

func (c *Controller) finish() DropResult {
	s := c.session
	s.ended = true
	c.session = nil
	return DropResult{
		SessionID: s.ID,
		BubbleID:  s.BubbleID,
		Edge:      s.Edge,
		Position:  s.Position(),
	}
}

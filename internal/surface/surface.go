// Package surface abstracts the host's overlay window layer. The engine
// attaches views (bubbles and the action zone) at screen positions and never
// depends on a concrete windowing toolkit.
package surface

import (
	"errors"
	"sort"
	"sync"

	"go.klb.dev/bubbleclip/internal/geom"
)

// ErrPermissionDenied is returned by Attach when the host refuses to draw
// overlays. The orchestrator reacts by entering degraded mode.
var ErrPermissionDenied = errors.New("overlay permission denied")

// ErrUnknownHandle is returned for operations on a detached handle.
var ErrUnknownHandle = errors.New("unknown overlay handle")

// Handle identifies an attached view.
type Handle uint64

// View is anything the surface can draw. Implementations type-switch on the
// concrete views they know how to render.
type View interface {
	ViewID() string
}

// Surface is the overlay window layer.
type Surface interface {
	Attach(v View, at geom.Point) (Handle, error)
	Detach(h Handle) error
	UpdatePosition(h Handle, at geom.Point) error
	// Update swaps the view drawn under h in place, without a detach.
	Update(h Handle, v View) error
}

// Placed is one attached view and its position.
type Placed struct {
	Handle   Handle
	View     View
	Position geom.Point
}

// Headless is an in-memory Surface. It backs tests, the no-overlay mode and
// any host that renders from Views() snapshots. It is safe for concurrent use.
type Headless struct {
	mu       sync.RWMutex
	next     Handle
	views    map[Handle]*Placed
	denied   bool
	onChange func()
}

// NewHeadless returns an empty surface.
func NewHeadless() *Headless {
	return &Headless{views: make(map[Handle]*Placed)}
}

// SetDenied makes subsequent Attach calls fail with ErrPermissionDenied,
// mimicking a revoked overlay permission.
func (s *Headless) SetDenied(denied bool) {
	s.mu.Lock()
	s.denied = denied
	s.mu.Unlock()
}

// OnChange registers fn to be called after every mutation.
func (s *Headless) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Headless) Attach(v View, at geom.Point) (Handle, error) {
	s.mu.Lock()
	if s.denied {
		s.mu.Unlock()
		return 0, ErrPermissionDenied
	}
	s.next++
	h := s.next
	s.views[h] = &Placed{Handle: h, View: v, Position: at}
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
	return h, nil
}

func (s *Headless) Detach(h Handle) error {
	s.mu.Lock()
	if _, ok := s.views[h]; !ok {
		s.mu.Unlock()
		return ErrUnknownHandle
	}
	delete(s.views, h)
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
	return nil
}

func (s *Headless) UpdatePosition(h Handle, at geom.Point) error {
	return s.mutate(h, func(p *Placed) { p.Position = at })
}

func (s *Headless) Update(h Handle, v View) error {
	return s.mutate(h, func(p *Placed) { p.View = v })
}

func (s *Headless) mutate(h Handle, f func(*Placed)) error {
	s.mu.Lock()
	p, ok := s.views[h]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownHandle
	}
	f(p)
	fn := s.onChange
	s.mu.Unlock()
	notify(fn)
	return nil
}

// Views returns the attached views in attach order.
func (s *Headless) Views() []Placed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Placed, 0, len(s.views))
	for _, p := range s.views {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Len returns the number of attached views.
func (s *Headless) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

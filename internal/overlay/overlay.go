// Package overlay is the orchestrator of the bubble overlay. It owns every
// live bubble, routes pointer events to per-bubble gesture controllers,
// keeps the single action zone, and resolves drops into clipboard writes,
// history appends and external launches.
//
// All overlay state is confined to one loop goroutine (Run). Public methods
// enqueue work onto that loop. Clipboard reads and writes, history
// persistence and launches run on background lanes and post their results
// back to the loop before touching any state.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/clip"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/gesture"
	"go.klb.dev/bubbleclip/internal/history"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/surface"
	"go.klb.dev/bubbleclip/internal/worker"
	"go.klb.dev/bubbleclip/internal/zone"
)

var (
	// ErrClosed is returned by calls made after Run has returned.
	ErrClosed = errors.New("overlay closed")
	// ErrUnknownBubble is returned for an id that names no live bubble.
	ErrUnknownBubble = errors.New("unknown bubble")
)

const (
	DefaultBubbleSize = 60.0
	DefaultMaxBubbles = 3
	DefaultRestore    = 3
	bubbleGap         = 8.0
	queueSize         = 1024
)

// Mode is the global tap mode: what tapping a full bubble writes to the
// clipboard.
type Mode int

const (
	// ModeReplace writes the bubble content.
	ModeReplace Mode = iota
	// ModeExtend writes the current clipboard, a newline, then the content.
	ModeExtend
)

func (m Mode) String() string {
	if m == ModeExtend {
		return "extend"
	}
	return "replace"
}

// ParseMode parses "replace" or "extend".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return ModeReplace, nil
	case "extend", "append":
		return ModeExtend, nil
	}
	return ModeReplace, fmt.Errorf("unknown mode %q", s)
}

// History is the history collaborator. Append returns "" for a rejected
// duplicate, which is not an error.
type History interface {
	Append(ctx context.Context, content string, ct classify.ContentType) (string, error)
	Recent(ctx context.Context, n int) ([]history.Item, error)
}

// Launcher is the external-launch collaborator.
type Launcher interface {
	Launch(ctx context.Context, d actions.Directive, payload string) error
}

// Notifier shows transient user-visible notices.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Config sizes and tunes the overlay. Zero values take defaults.
type Config struct {
	Screen        geom.Size
	BubbleSize    float64
	DragThreshold float64
	EdgeThreshold float64
	ZoneThickness float64
	SlotLength    float64
	MaxBubbles    int
	Restore       int
	Separator     string
	Mode          Mode
	// NoOverlay starts in degraded mode.
	NoOverlay bool
}

func (c Config) withDefaults() Config {
	if c.BubbleSize <= 0 {
		c.BubbleSize = DefaultBubbleSize
	}
	if c.MaxBubbles <= 0 {
		c.MaxBubbles = DefaultMaxBubbles
	}
	if c.Restore < 0 {
		c.Restore = 0
	}
	if c.Separator == "" {
		c.Separator = bubble.DefaultSeparator
	}
	return c
}

// Deps are the collaborators. Clipboard and Surface are required; nil
// History, Launcher, Notifier and Hub disable their features.
type Deps struct {
	Surface   surface.Surface
	Clipboard clip.Bridge
	History   History
	Launcher  Launcher
	Notifier  Notifier
	Hub       *hub.Hub
	Registry  *actions.Registry
}

// BubbleView is the surface view of one bubble.
type BubbleView struct {
	bubble.Snapshot
	Size     float64
	Dragging bool
}

func (v BubbleView) ViewID() string { return "bubble:" + v.ID }

type entry struct {
	b    *bubble.Bubble
	ctl  *gesture.Controller
	hits *sessionHits

	handle   surface.Handle
	attached bool
}

// sessionHits resolves drops only while the bubble's own session owns the
// zone, so a drag never lands on a strip raised by another drag.
type sessionHits struct {
	zone    *zone.Renderer
	session string
}

func (h *sessionHits) ActionAt(p geom.Point) (actions.Action, bool) {
	if h.session == "" || h.zone.Owner() != h.session {
		return actions.Action{}, false
	}
	return h.zone.ActionAt(p)
}

// Orchestrator coordinates bubbles, gestures and the action zone.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	registry *actions.Registry

	ops   chan func()
	done  chan struct{}
	lanes *worker.Lanes
	ctx   context.Context

	// loop-owned
	bubbles  map[string]*entry
	seq      uint64
	zone     *zone.Renderer
	degraded bool
	mode     Mode
	lastSeen string
	pending  int
	idle     []chan struct{}
	evicting map[string]bool
	dirty    bool
	snapSeq  uint64
}

// New returns an orchestrator. Call Run to start its loop.
func New(cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.withDefaults()
	reg := deps.Registry
	if reg == nil {
		reg = actions.New()
	}
	o := &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		registry: reg,
		ops:      make(chan func(), queueSize),
		done:     make(chan struct{}),
		lanes:    worker.New(),
		ctx:      context.Background(),
		bubbles:  make(map[string]*entry),
		evicting: make(map[string]bool),
		degraded: cfg.NoOverlay,
		mode:     cfg.Mode,
	}
	o.zone = zone.NewRenderer(zone.Config{
		Screen:     cfg.Screen,
		Thickness:  cfg.ZoneThickness,
		SlotLength: cfg.SlotLength,
		Gap:        zone.DefaultGap,
	}, deps.Surface)
	return o
}

// Run drives the loop until ctx is cancelled. It hides every overlay view
// on the way out.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	slog.Info("overlay started",
		"clipboard", o.deps.Clipboard.Name(),
		"screen", fmt.Sprintf("%gx%g", o.cfg.Screen.W, o.cfg.Screen.H),
		"degraded", o.degraded,
		"mode", o.mode,
	)
	o.dirty = true
	o.flush()

	watch := o.deps.Clipboard.Watch()
	for {
		select {
		case <-ctx.Done():
			o.teardown()
			close(o.done)
			o.lanes.Close()
			slog.Info("overlay stopped")
			return nil
		case fn := <-o.ops:
			fn()
		case <-watch:
			o.clipboardChanged()
		}
		o.flush()
	}
}

func (o *Orchestrator) teardown() {
	for _, e := range o.sorted() {
		if e.ctl.Active() {
			e.ctl.Cancel()
		}
		o.detach(e)
	}
	o.zone.Hide()
}

// post enqueues fn on the loop. It never blocks after Run has returned.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.ops <- fn:
	case <-o.done:
	}
}

// call runs fn on the loop and waits for it.
func (o *Orchestrator) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case o.ops <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrClosed
	}
}

// spawn runs work on lane. The continuation work returns, if any, runs back
// on the loop.
func (o *Orchestrator) spawn(lane string, work func(ctx context.Context) func()) {
	o.pending++
	err := o.lanes.Submit(lane, func() {
		next := work(o.ctx)
		o.post(func() {
			if next != nil {
				next()
			}
			o.jobDone()
		})
	})
	if err != nil {
		slog.Debug("background lane closed", "lane", lane, "err", err)
		o.jobDone()
	}
}

func (o *Orchestrator) jobDone() {
	o.pending--
	if o.pending > 0 {
		return
	}
	for _, ch := range o.idle {
		close(ch)
	}
	o.idle = nil
}

// Settle waits until no background work is pending.
func (o *Orchestrator) Settle(ctx context.Context) error {
	ch := make(chan struct{})
	err := o.call(ctx, func() {
		if o.pending == 0 {
			close(ch)
			return
		}
		o.idle = append(o.idle, ch)
	})
	if err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrClosed
	}
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot(ctx context.Context) (hub.Snapshot, error) {
	var s hub.Snapshot
	err := o.call(ctx, func() { s = o.snapshot() })
	return s, err
}

func (o *Orchestrator) snapshot() hub.Snapshot {
	s := hub.Snapshot{Seq: o.snapSeq, Degraded: o.degraded, Mode: o.mode.String()}
	for _, e := range o.sorted() {
		s.Bubbles = append(s.Bubbles, e.b.Snapshot())
		if e.ctl.Active() {
			s.Dragging = append(s.Dragging, e.b.ID)
		}
	}
	if v, ok := o.zone.View(); ok {
		s.Zone = &v
	}
	return s
}

func (o *Orchestrator) flush() {
	if !o.dirty {
		return
	}
	o.dirty = false
	o.snapSeq++
	if o.deps.Hub != nil {
		o.deps.Hub.Publish(o.snapshot())
	}
}

// sorted returns live bubbles oldest first.
func (o *Orchestrator) sorted() []*entry {
	out := make([]*entry, 0, len(o.bubbles))
	for _, e := range o.bubbles {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].b.Seq < out[j].b.Seq })
	return out
}

func (o *Orchestrator) lookup(id string) (*entry, error) {
	e, ok := o.bubbles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBubble, id)
	}
	return e, nil
}

func (o *Orchestrator) bubbleSize() geom.Size {
	return geom.Size{W: o.cfg.BubbleSize, H: o.cfg.BubbleSize}
}

// slot places the k-th bubble in a row along the top edge, wrapping below.
func (o *Orchestrator) slot(k int) geom.Point {
	step := o.cfg.BubbleSize + bubbleGap
	perRow := 1
	if o.cfg.Screen.W > bubbleGap+step {
		perRow = int((o.cfg.Screen.W - bubbleGap) / step)
	}
	p := geom.Point{
		X: bubbleGap + float64(k%perRow)*step,
		Y: float64(k/perRow) * step,
	}
	return geom.Clamp(geom.RectAt(p, o.bubbleSize()), o.cfg.Screen).Min()
}

func (o *Orchestrator) newBubble(content string) *entry {
	o.seq++
	id := ulid.Make().String()
	pos := o.slot(len(o.bubbles))
	var b *bubble.Bubble
	if strings.TrimSpace(content) == "" {
		b = bubble.New(id, o.seq, pos)
	} else {
		b = bubble.NewStoring(id, o.seq, pos, content)
	}
	hits := &sessionHits{zone: o.zone}
	e := &entry{
		b: b,
		ctl: gesture.NewController(gesture.Config{
			DragThreshold: o.cfg.DragThreshold,
			EdgeThreshold: o.cfg.EdgeThreshold,
			Screen:        o.cfg.Screen,
		}, hits),
		hits: hits,
	}
	o.bubbles[id] = e
	o.attach(e)
	o.dirty = true
	slog.Debug("bubble created", "bubble", id, "state", b.State)
	return e
}

func (o *Orchestrator) view(e *entry) BubbleView {
	return BubbleView{Snapshot: e.b.Snapshot(), Size: o.cfg.BubbleSize, Dragging: e.ctl.Active()}
}

func (o *Orchestrator) attach(e *entry) {
	if o.degraded || e.attached || o.deps.Surface == nil {
		return
	}
	h, err := o.deps.Surface.Attach(o.view(e), e.b.Position)
	if err != nil {
		o.surfaceError("attach bubble", err)
		return
	}
	e.handle = h
	e.attached = true
}

// refresh redraws e after a content, state or position change.
func (o *Orchestrator) refresh(e *entry) {
	o.dirty = true
	if !e.attached {
		return
	}
	if err := o.deps.Surface.Update(e.handle, o.view(e)); err != nil {
		o.surfaceError("update bubble", err)
		return
	}
	if err := o.deps.Surface.UpdatePosition(e.handle, e.b.Position); err != nil {
		o.surfaceError("move bubble", err)
	}
}

func (o *Orchestrator) detach(e *entry) {
	if !e.attached {
		return
	}
	e.attached = false
	if err := o.deps.Surface.Detach(e.handle); err != nil {
		slog.Debug("detach bubble", "bubble", e.b.ID, "err", err)
	}
}

// surfaceError degrades on a denied permission and logs anything else.
func (o *Orchestrator) surfaceError(op string, err error) {
	if errors.Is(err, surface.ErrPermissionDenied) {
		o.enterDegraded(op + ": " + err.Error())
		return
	}
	slog.Warn("overlay surface error", "op", op, "err", err)
}

func (o *Orchestrator) remove(e *entry) {
	if e.ctl.Active() {
		res := e.ctl.Cancel()
		o.zone.Release(res.SessionID)
	}
	o.detach(e)
	delete(o.bubbles, e.b.ID)
	delete(o.evicting, e.b.ID)
	o.dirty = true
	slog.Debug("bubble removed", "bubble", e.b.ID)
}

func (o *Orchestrator) notify(msg string) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(msg)
	}
}

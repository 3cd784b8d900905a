package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/gesture"
	"go.klb.dev/bubbleclip/internal/worker"
	"go.klb.dev/bubbleclip/internal/zone"
)

// PointerDown starts a drag session on bubbleID at pointer p.
func (o *Orchestrator) PointerDown(bubbleID string, p geom.Point) {
	o.post(func() { o.pointerDown(bubbleID, p) })
}

// PointerMove advances the drag session of bubbleID.
func (o *Orchestrator) PointerMove(bubbleID string, p geom.Point) {
	o.post(func() { o.pointerMove(bubbleID, p) })
}

// PointerUp releases the drag session of bubbleID.
func (o *Orchestrator) PointerUp(bubbleID string, p geom.Point) {
	o.post(func() { o.pointerUp(bubbleID, p) })
}

// CancelPointer cancels the drag session of bubbleID, e.g. when the pointer
// leaves the trackable surface.
func (o *Orchestrator) CancelPointer(bubbleID string) {
	o.post(func() {
		if e, ok := o.bubbles[bubbleID]; ok && e.ctl.Active() {
			o.resolve(e, e.ctl.Cancel())
		}
	})
}

// ScrollZone scrolls a visible action zone along its primary axis, for
// strips with more actions than fit on screen.
func (o *Orchestrator) ScrollZone(delta float64) {
	o.post(func() {
		if !o.zone.Visible() {
			return
		}
		if err := o.zone.Scroll(delta); err != nil {
			o.surfaceError("scroll zone", err)
		}
		o.dirty = true
	})
}

// Suspend cancels every active drag; the host is going to the background.
func (o *Orchestrator) Suspend() {
	o.post(func() {
		o.cancelDrags()
		slog.Debug("overlay suspended")
	})
}

func (o *Orchestrator) cancelDrags() {
	for _, e := range o.sorted() {
		if e.ctl.Active() {
			o.resolve(e, e.ctl.Cancel())
		}
	}
	o.zone.Hide()
}

func (o *Orchestrator) pointerDown(id string, p geom.Point) {
	if o.degraded {
		return
	}
	e, ok := o.bubbles[id]
	if !ok || o.evicting[id] {
		return
	}
	if e.ctl.Active() {
		o.resolve(e, e.ctl.Cancel())
	}
	s := e.ctl.PointerDown(id, e.b.Position, p)
	e.hits.session = s.ID
	o.refresh(e)
}

func (o *Orchestrator) pointerMove(id string, p geom.Point) {
	e, ok := o.bubbles[id]
	if !ok || !e.ctl.Active() {
		return
	}
	sig := e.ctl.PointerMove(p)
	if sig.Kind == gesture.SignalBelowThreshold {
		return
	}
	e.b.Position = sig.Position
	o.refresh(e)

	s := e.ctl.Session()
	switch sig.Kind {
	case gesture.SignalEdgeEntered:
		o.showZone(e, s, sig.Edge)
	case gesture.SignalEdgeMoved:
		// another drag may have taken the zone and released it while this
		// one stayed in its band
		if !o.zone.Visible() && e.b.HasContent() {
			o.showZone(e, s, sig.Edge)
			return
		}
		if err := o.zone.UpdateGlow(s.ID, sig.Intensity); err != nil {
			o.surfaceError("update zone", err)
		}
	case gesture.SignalEdgeExited:
		o.zone.Release(s.ID)
		o.dirty = true
	}
}

func (o *Orchestrator) showZone(e *entry, s *gesture.Session, edge geom.Edge) {
	var acts []actions.Action
	if e.b.HasContent() {
		r := classify.Inspect(e.b.Content)
		if r.Ambiguous {
			slog.Debug("classification ambiguous", "bubble", e.b.ID, "type", r.Type)
		}
		acts = o.registry.ActionsFor(r.Type, e.b.Content)
	}
	err := o.zone.Show(s, acts, edge)
	switch {
	case errors.Is(err, zone.ErrRenderAttachRace):
		slog.Debug("zone request from ended session ignored", "bubble", e.b.ID)
	case err != nil:
		o.surfaceError("show zone", err)
	}
	o.dirty = true
}

func (o *Orchestrator) pointerUp(id string, p geom.Point) {
	e, ok := o.bubbles[id]
	if !ok || !e.ctl.Active() {
		return
	}
	o.resolve(e, e.ctl.PointerUp(p))
}

// resolve applies a finished session: the zone goes away, then the drop is
// dispatched as a tap, an action, or a plain snap.
func (o *Orchestrator) resolve(e *entry, res gesture.DropResult) {
	o.zone.Release(res.SessionID)
	e.hits.session = ""
	o.dirty = true

	switch {
	case res.Tap && !res.Cancelled:
		o.tap(e)
	case res.Action != nil && !res.Cancelled:
		o.snap(e, res.Position)
		o.drop(e, *res.Action)
	default:
		o.snap(e, res.Position)
	}
}

func (o *Orchestrator) snap(e *entry, pos geom.Point) {
	e.b.Position = geom.Snap(geom.RectAt(pos, o.bubbleSize()), o.cfg.Screen).Min()
	o.refresh(e)
}

// drop runs a dropped action: read the clipboard operand when the policy
// needs one, merge, write back, record and launch.
func (o *Orchestrator) drop(e *entry, a actions.Action) {
	if e.b.State != bubble.Storing {
		slog.Debug("drop ignored", "bubble", e.b.ID, "action", a.ID, "err", fmt.Errorf("%w: state %s", bubble.ErrInvalidTransition, e.b.State))
		return
	}
	slog.Info("action dropped", "bubble", e.b.ID, "action", a.ID, "merge", a.Merge, "launch", a.Launch)

	id := e.b.ID
	if a.Merge == actions.MergeKeep {
		o.applyDrop(id, a, "")
		return
	}
	o.spawn(worker.LaneClipboard, func(context.Context) func() {
		text, _, err := o.deps.Clipboard.Read()
		if err != nil {
			slog.Warn("clipboard read failed", "err", err)
			return nil
		}
		return func() { o.applyDrop(id, a, text) }
	})
}

func (o *Orchestrator) applyDrop(id string, a actions.Action, operand string) {
	e, ok := o.bubbles[id]
	if !ok {
		return
	}
	if err := e.b.ApplyAction(a.Merge, operand); err != nil {
		slog.Debug("drop ignored", "bubble", id, "action", a.ID, "err", err)
		return
	}
	o.refresh(e)

	content := e.b.Content
	o.record(content, classify.Classify(content))
	o.writeClipboard(content, func() {
		if a.Launches() {
			o.launch(a.Launch, content)
		}
	})
}

// writeClipboard writes text on the clipboard lane and runs then on the
// loop once the write has gone through.
func (o *Orchestrator) writeClipboard(text string, then func()) {
	o.lastSeen = text
	o.spawn(worker.LaneClipboard, func(context.Context) func() {
		if err := o.deps.Clipboard.Write(text); err != nil {
			slog.Warn("clipboard write failed", "err", err)
			return nil
		}
		return then
	})
}

func (o *Orchestrator) launch(d actions.Directive, payload string) {
	if o.deps.Launcher == nil {
		return
	}
	o.spawn(worker.LaneLaunch, func(ctx context.Context) func() {
		err := o.deps.Launcher.Launch(ctx, d, payload)
		if err == nil {
			slog.Debug("launched", "directive", d)
			return nil
		}
		return func() {
			slog.Warn("external launch failed", "directive", d, "err", err)
			o.notify(fmt.Sprintf("Could not %s", launchVerb(d)))
		}
	})
}

func launchVerb(d actions.Directive) string {
	switch d {
	case actions.OpenURL:
		return "open the link"
	case actions.Dial:
		return "start a call"
	case actions.Email:
		return "compose an email"
	case actions.Map:
		return "show the map"
	case actions.Search:
		return "start a search"
	}
	return "launch " + d.String()
}

// record appends content to history on the history lane.
func (o *Orchestrator) record(content string, ct classify.ContentType) {
	if o.deps.History == nil {
		return
	}
	o.spawn(worker.LaneHistory, func(ctx context.Context) func() {
		if _, err := o.deps.History.Append(ctx, content, ct); err != nil {
			slog.Warn("history append failed", "err", err)
		}
		return nil
	})
}

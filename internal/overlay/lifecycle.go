package overlay

import (
	"context"
	"log/slog"

	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/worker"
)

// SurfaceLost reports that the overlay surface is gone (permission revoked,
// window destroyed). Drags are cancelled and the overlay degrades: capture
// and history keep working, nothing is drawn.
func (o *Orchestrator) SurfaceLost() {
	o.post(func() { o.enterDegraded("surface lost") })
}

// SurfaceRestored leaves degraded mode and re-attaches every bubble.
func (o *Orchestrator) SurfaceRestored() {
	o.post(func() {
		if !o.degraded {
			return
		}
		o.degraded = false
		o.dirty = true
		for _, e := range o.sorted() {
			o.attach(e)
			if o.degraded {
				return
			}
		}
		slog.Info("overlay restored", "bubbles", len(o.bubbles))
	})
}

func (o *Orchestrator) enterDegraded(reason string) {
	if o.degraded {
		return
	}
	o.degraded = true
	o.dirty = true
	o.cancelDrags()
	for _, e := range o.bubbles {
		o.detach(e)
	}
	slog.Warn("overlay unavailable, continuing without it", "reason", reason)
	o.notify("Overlay unavailable; clipboard capture continues")
}

// Resize updates the screen geometry. Bubbles that no longer fit are moved
// back on screen and snapped.
func (o *Orchestrator) Resize(size geom.Size) {
	o.post(func() {
		if size == o.cfg.Screen {
			return
		}
		o.cfg.Screen = size
		if err := o.zone.SetScreen(size); err != nil {
			o.surfaceError("resize zone", err)
		}
		for _, e := range o.sorted() {
			e.ctl.SetScreen(size)
			r := geom.RectAt(e.b.Position, o.bubbleSize())
			if geom.Clamp(r, size) != r && !e.ctl.Active() {
				o.snap(e, e.b.Position)
			}
		}
		o.dirty = true
		slog.Debug("screen resized", "w", size.W, "h", size.H)
	})
}

// TrimMemory reacts to memory pressure: the oldest bubbles beyond the
// configured cap that are neither pinned nor being dragged are evicted. Each
// evicted bubble's content is appended to history before the bubble goes
// away; a failed append keeps the bubble.
func (o *Orchestrator) TrimMemory() {
	o.post(o.trim)
}

func (o *Orchestrator) trim() {
	live := len(o.bubbles) - len(o.evicting)
	excess := live - o.cfg.MaxBubbles
	if excess <= 0 {
		return
	}
	var victims []*entry
	for _, e := range o.sorted() {
		if len(victims) == excess {
			break
		}
		if e.b.Pinned || e.ctl.Active() || o.evicting[e.b.ID] {
			continue
		}
		victims = append(victims, e)
	}
	slog.Info("trimming bubbles", "live", live, "cap", o.cfg.MaxBubbles, "evicting", len(victims))

	for _, e := range victims {
		if !e.b.HasContent() || o.deps.History == nil {
			o.remove(e)
			continue
		}
		id, content := e.b.ID, e.b.Content
		o.evicting[id] = true
		o.spawn(worker.LaneHistory, func(ctx context.Context) func() {
			_, err := o.deps.History.Append(ctx, content, classify.Classify(content))
			return func() {
				if err != nil {
					slog.Warn("eviction aborted, history append failed", "bubble", id, "err", err)
					delete(o.evicting, id)
					return
				}
				if e, ok := o.bubbles[id]; ok {
					o.remove(e)
				}
			}
		})
	}
}

// LoadHistory restores the most recent history items as bubbles, oldest
// first, skipping content already on screen.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	if o.deps.History == nil || o.cfg.Restore == 0 {
		return nil
	}
	return o.call(ctx, func() {
		n := o.cfg.Restore
		o.spawn(worker.LaneHistory, func(ctx context.Context) func() {
			items, err := o.deps.History.Recent(ctx, n)
			if err != nil {
				slog.Warn("history load failed", "err", err)
				return nil
			}
			return func() {
				have := make(map[string]bool, len(o.bubbles))
				for _, e := range o.bubbles {
					have[e.b.Content] = true
				}
				restored := 0
				for i := len(items) - 1; i >= 0; i-- {
					c := items[i].Content
					if have[c] {
						continue
					}
					have[c] = true
					o.newBubble(c)
					restored++
				}
				if len(items) > 0 {
					o.lastSeen = items[0].Content
				}
				slog.Info("history restored", "bubbles", restored)
			}
		})
	})
}

package overlay

import (
	"context"
	"log/slog"
	"strings"

	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/worker"
)

const (
	sourceClipboard = "clipboard"
	sourceTap       = "tap"
)

// ClipboardChanged asks the loop to read the clipboard and route any new
// text as a capture. The loop also does this on every bridge Watch signal.
func (o *Orchestrator) ClipboardChanged() {
	o.post(o.clipboardChanged)
}

func (o *Orchestrator) clipboardChanged() {
	o.spawn(worker.LaneClipboard, func(context.Context) func() {
		text, ok, err := o.deps.Clipboard.Read()
		if err != nil {
			slog.Warn("clipboard read failed", "err", err)
			return nil
		}
		if !ok {
			return nil
		}
		return func() { o.capture(text, sourceClipboard) }
	})
}

// Capture routes text as if it had just been copied, and puts it on the
// system clipboard. source names the origin in logs.
func (o *Orchestrator) Capture(ctx context.Context, text, source string) error {
	return o.call(ctx, func() {
		if o.capture(text, source) {
			o.writeClipboard(text, nil)
		}
	})
}

// capture routes externally copied text. Blank text and text we have just
// seen or written are ignored. Every bubble carrying a REPLACE or APPEND
// marker consumes the capture; otherwise the oldest EMPTY bubble stores it
// and a fresh EMPTY bubble takes its place; otherwise a new bubble is
// created. Accepted captures are recorded in history.
func (o *Orchestrator) capture(text, source string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if text == o.lastSeen {
		slog.Debug("capture ignored, already seen", "source", source)
		return false
	}
	o.lastSeen = text
	ct := classify.Classify(text)
	hub.LogContent("content captured", source, ct, text)

	var marked, empty []*entry
	for _, e := range o.sorted() {
		if o.evicting[e.b.ID] {
			continue
		}
		switch {
		case e.b.State.Marked():
			marked = append(marked, e)
		case e.b.State == bubble.Empty:
			empty = append(empty, e)
		}
	}

	switch {
	case len(marked) > 0:
		for _, e := range marked {
			state := e.b.State
			if err := e.b.Capture(text, o.cfg.Separator); err != nil {
				slog.Debug("capture skipped", "bubble", e.b.ID, "err", err)
				continue
			}
			slog.Debug("marked bubble captured", "bubble", e.b.ID, "marker", state)
			o.refresh(e)
		}
	case len(empty) > 0:
		e := empty[0]
		if err := e.b.Capture(text, o.cfg.Separator); err != nil {
			slog.Debug("capture skipped", "bubble", e.b.ID, "err", err)
			return false
		}
		o.refresh(e)
		o.newBubble("")
	default:
		o.newBubble(text)
	}

	o.record(text, ct)
	return true
}

// tap handles a pointer released without dragging. EMPTY bubbles capture
// the current clipboard; marked bubbles drop their marker; full bubbles copy
// out per the global mode.
func (o *Orchestrator) tap(e *entry) {
	id := e.b.ID
	switch {
	case e.b.State == bubble.Empty:
		o.spawn(worker.LaneClipboard, func(context.Context) func() {
			text, ok, err := o.deps.Clipboard.Read()
			if err != nil {
				slog.Warn("clipboard read failed", "err", err)
				return nil
			}
			if !ok || strings.TrimSpace(text) == "" {
				return func() { o.notify("Clipboard is empty") }
			}
			return func() { o.tapCapture(id, text) }
		})
	case e.b.State.Marked():
		_ = e.b.ClearMark()
		o.refresh(e)
	case o.mode == ModeExtend:
		o.spawn(worker.LaneClipboard, func(context.Context) func() {
			current, _, err := o.deps.Clipboard.Read()
			if err != nil {
				slog.Warn("clipboard read failed", "err", err)
				return nil
			}
			return func() { o.copyOut(id, current) }
		})
	default:
		o.copyOut(id, "")
	}
}

func (o *Orchestrator) tapCapture(id, text string) {
	e, ok := o.bubbles[id]
	if !ok {
		return
	}
	if err := e.b.Capture(text, o.cfg.Separator); err != nil {
		slog.Debug("tap capture skipped", "bubble", id, "err", err)
		return
	}
	o.lastSeen = text
	ct := classify.Classify(text)
	hub.LogContent("content captured", sourceTap, ct, text)
	o.refresh(e)
	o.newBubble("")
	o.record(text, ct)
}

// copyOut writes the bubble content to the clipboard, after prefix and a
// newline when prefix is not blank.
func (o *Orchestrator) copyOut(id, prefix string) {
	e, ok := o.bubbles[id]
	if !ok || !e.b.HasContent() {
		return
	}
	text := e.b.Content
	if strings.TrimSpace(prefix) != "" {
		text = prefix + "\n" + text
	}
	slog.Debug("bubble copied", "bubble", id, "mode", o.mode)
	o.writeClipboard(text, nil)
}

// Add creates a bubble holding content, or an EMPTY bubble for blank
// content, and returns its id.
func (o *Orchestrator) Add(ctx context.Context, content string) (string, error) {
	var id string
	err := o.call(ctx, func() { id = o.newBubble(content).b.ID })
	return id, err
}

// Remove destroys a bubble. Its content is not recorded.
func (o *Orchestrator) Remove(ctx context.Context, id string) error {
	return o.mutate(ctx, id, func(e *entry) { o.remove(e) })
}

// Pin protects a bubble from memory-pressure eviction.
func (o *Orchestrator) Pin(ctx context.Context, id string, pinned bool) error {
	return o.mutate(ctx, id, func(e *entry) {
		e.b.Pinned = pinned
		o.refresh(e)
	})
}

// MarkReplace makes the next capture replace the bubble's content.
func (o *Orchestrator) MarkReplace(ctx context.Context, id string) error {
	return o.transition(ctx, id, "mark-replace", (*bubble.Bubble).MarkReplace)
}

// MarkAppend makes the next capture append to the bubble's content.
func (o *Orchestrator) MarkAppend(ctx context.Context, id string) error {
	return o.transition(ctx, id, "mark-append", (*bubble.Bubble).MarkAppend)
}

// ClearMark drops a pending marker.
func (o *Orchestrator) ClearMark(ctx context.Context, id string) error {
	return o.transition(ctx, id, "clear-mark", (*bubble.Bubble).ClearMark)
}

// transition applies a state-machine event. Invalid transitions are no-ops
// and are only logged.
func (o *Orchestrator) transition(ctx context.Context, id, event string, fn func(*bubble.Bubble) error) error {
	return o.mutate(ctx, id, func(e *entry) {
		if err := fn(e.b); err != nil {
			slog.Debug("transition ignored", "bubble", id, "event", event, "err", err)
			return
		}
		o.refresh(e)
	})
}

func (o *Orchestrator) mutate(ctx context.Context, id string, fn func(*entry)) error {
	var lerr error
	err := o.call(ctx, func() {
		e, err := o.lookup(id)
		if err != nil {
			lerr = err
			return
		}
		fn(e)
	})
	if err != nil {
		return err
	}
	return lerr
}

// ToggleMode flips the global tap mode.
func (o *Orchestrator) ToggleMode() {
	o.post(func() {
		if o.mode == ModeReplace {
			o.mode = ModeExtend
		} else {
			o.mode = ModeReplace
		}
		o.dirty = true
		slog.Info("tap mode changed", "mode", o.mode)
	})
}

// SetMode sets the global tap mode.
func (o *Orchestrator) SetMode(ctx context.Context, m Mode) error {
	return o.call(ctx, func() {
		o.mode = m
		o.dirty = true
	})
}

// Package bubble holds the bubble data model and its state machine.
//
//	EMPTY --capture--> STORING
//	STORING --mark-replace--> REPLACE --capture--> STORING (content replaced)
//	STORING --mark-append--> APPEND --capture--> STORING (content appended)
//	STORING --drop-on-action--> STORING (content merged with the clipboard)
//
// REPLACE and APPEND are one-shot markers consumed by the next external
// capture. Transitions that do not apply return ErrInvalidTransition and
// leave the bubble untouched.
package bubble

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
)

// ErrInvalidTransition is returned for a transition the current state does
// not accept. It is never surfaced to the user.
var ErrInvalidTransition = errors.New("invalid bubble transition")

// State is the lifecycle state of a bubble.
type State int

const (
	Empty State = iota
	Storing
	Replace
	Append
)

var stateNames = [...]string{"EMPTY", "STORING", "REPLACE", "APPEND"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Marked reports whether s is one of the one-shot capture markers.
func (s State) Marked() bool { return s == Replace || s == Append }

// DefaultSeparator joins appended captures.
const DefaultSeparator = "\n"

// Bubble is one overlay unit. It is owned by the orchestrator and mutated
// only through the transition methods below.
type Bubble struct {
	ID        string
	Position  geom.Point
	Content   string
	State     State
	Pinned    bool
	CreatedAt time.Time
	// Seq orders bubbles by creation; lower is older.
	Seq uint64
}

// New returns an EMPTY bubble.
func New(id string, seq uint64, pos geom.Point) *Bubble {
	return &Bubble{ID: id, Seq: seq, Position: pos, State: Empty, CreatedAt: time.Now()}
}

// NewStoring returns a bubble already holding content, as restored from
// history. Blank content yields an EMPTY bubble.
func NewStoring(id string, seq uint64, pos geom.Point, content string) *Bubble {
	b := New(id, seq, pos)
	_ = b.Capture(content, "")
	return b
}

// HasContent reports whether the bubble holds content.
func (b *Bubble) HasContent() bool { return b.State != Empty }

// Type classifies the current content. The second result is false when the
// bubble is EMPTY.
func (b *Bubble) Type() (classify.ContentType, bool) {
	if !b.HasContent() {
		return classify.TEXT, false
	}
	return classify.Classify(b.Content), true
}

// Capture stores externally captured text. EMPTY bubbles take it as is,
// REPLACE bubbles swap it in, APPEND bubbles append it after sep.
func (b *Bubble) Capture(text, sep string) error {
	if strings.TrimSpace(text) == "" {
		return b.invalid("capture", "blank operand")
	}
	switch b.State {
	case Empty, Replace:
		b.Content = text
	case Append:
		if b.Content == "" {
			b.Content = text
		} else {
			b.Content = b.Content + sep + text
		}
	default:
		return b.invalid("capture", "not awaiting capture")
	}
	b.State = Storing
	return nil
}

// MarkReplace makes the next capture replace the content.
func (b *Bubble) MarkReplace() error { return b.mark(Replace) }

// MarkAppend makes the next capture append to the content.
func (b *Bubble) MarkAppend() error { return b.mark(Append) }

func (b *Bubble) mark(s State) error {
	if b.State == Empty {
		return b.invalid("mark-"+strings.ToLower(s.String()), "bubble is empty")
	}
	b.State = s
	return nil
}

// ClearMark drops a pending REPLACE or APPEND marker.
func (b *Bubble) ClearMark() error {
	if !b.State.Marked() {
		return b.invalid("clear-mark", "no marker")
	}
	b.State = Storing
	return nil
}

// ApplyAction merges operand into the content per policy. Only STORING
// bubbles accept drops, and a blank operand never replaces content.
func (b *Bubble) ApplyAction(policy actions.MergePolicy, operand string) error {
	if b.State != Storing {
		return b.invalid("drop-on-action", "not storing")
	}
	if policy == actions.MergeReplace && strings.TrimSpace(operand) == "" {
		return b.invalid("drop-on-action", "blank replace operand")
	}
	b.Content = policy.Apply(b.Content, operand)
	return nil
}

func (b *Bubble) invalid(event, why string) error {
	return fmt.Errorf("%w: %s in %s (%s)", ErrInvalidTransition, event, b.State, why)
}

// Snapshot is an immutable copy of a bubble for observers.
type Snapshot struct {
	ID          string
	Position    geom.Point
	Content     string
	State       State
	ContentType classify.ContentType
	HasType     bool
	Pinned      bool
	CreatedAt   time.Time
}

// Snapshot copies b.
func (b *Bubble) Snapshot() Snapshot {
	ct, ok := b.Type()
	return Snapshot{
		ID:          b.ID,
		Position:    b.Position,
		Content:     b.Content,
		State:       b.State,
		ContentType: ct,
		HasType:     ok,
		Pinned:      b.Pinned,
		CreatedAt:   b.CreatedAt,
	}
}

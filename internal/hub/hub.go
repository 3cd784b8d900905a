// Package hub fans overlay snapshots out to observers. It is
// transport-agnostic: observers register, receive snapshots through a
// non-blocking Send, and late joiners get the latest snapshot immediately.
package hub

import (
	"log/slog"
	"sort"
	"sync"

	"go.klb.dev/bubbleclip/internal/bubble"
	"go.klb.dev/bubbleclip/internal/zone"
)

// Snapshot is the observable overlay state after one loop step.
type Snapshot struct {
	Seq      uint64
	Bubbles  []bubble.Snapshot
	Zone     *zone.View
	Dragging []string // ids of bubbles with an active drag session
	Degraded bool
	Mode     string
}

// Bubble returns the snapshot of the bubble with the given id.
func (s Snapshot) Bubble(id string) (bubble.Snapshot, bool) {
	for _, b := range s.Bubbles {
		if b.ID == id {
			return b, true
		}
	}
	return bubble.Snapshot{}, false
}

// Peer is anything that can observe overlay snapshots.
type Peer interface {
	ID() string
	// Send delivers a snapshot to the peer. Must be non-blocking.
	Send(Snapshot)
}

// Hub routes snapshots from the orchestrator to all registered peers.
type Hub struct {
	mu     sync.RWMutex
	peers  map[string]Peer
	latest *Snapshot
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{peers: make(map[string]Peer)}
}

// Register adds a peer and immediately delivers the latest snapshot.
func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	h.peers[p.ID()] = p
	latest := h.latest
	total := len(h.peers)
	h.mu.Unlock()

	slog.Debug("observer registered", "peer", p.ID(), "total", total)

	if latest != nil {
		p.Send(*latest)
	}
}

// Unregister removes a peer from the hub.
func (h *Hub) Unregister(p Peer) {
	h.mu.Lock()
	delete(h.peers, p.ID())
	total := len(h.peers)
	h.mu.Unlock()

	slog.Debug("observer unregistered", "peer", p.ID(), "total", total)
}

// Publish stores s as the latest snapshot and fans it out to every peer.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	h.latest = &s
	targets := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.Unlock()

	for _, p := range targets {
		p.Send(s)
	}
}

// Latest returns the most recent snapshot, if any was published.
func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Snapshot{}, false
	}
	return *h.latest, true
}

// Peers returns the ids of the registered peers, sorted.
func (h *Hub) Peers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.peers))
	for id := range h.peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ChanPeer is a Peer backed by a buffered channel. When the buffer is full
// the oldest queued snapshot is dropped; observers only care about the
// newest state.
type ChanPeer struct {
	id string
	ch chan Snapshot
}

// NewChanPeer returns a peer with a buffer of size n (at least 1).
func NewChanPeer(id string, n int) *ChanPeer {
	if n < 1 {
		n = 1
	}
	return &ChanPeer{id: id, ch: make(chan Snapshot, n)}
}

func (p *ChanPeer) ID() string { return p.id }

// C returns the receive side of the peer.
func (p *ChanPeer) C() <-chan Snapshot { return p.ch }

func (p *ChanPeer) Send(s Snapshot) {
	for {
		select {
		case p.ch <- s:
			return
		default:
		}
		select {
		case <-p.ch:
		default:
		}
	}
}

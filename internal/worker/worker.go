// Package worker runs background jobs on named lanes. Jobs on the same lane
// run one at a time in submission order; different lanes run in parallel.
// Submit never blocks, so it is safe to call from the overlay loop.
package worker

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker lanes closed")

const (
	LaneClipboard = "clipboard"
	LaneHistory   = "history"
	LaneLaunch    = "launch"
)

// Lanes is a set of ordered background queues, created on first use.
type Lanes struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

type lane struct {
	name  string
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
}

// New returns an empty set of lanes.
func New() *Lanes {
	return &Lanes{lanes: make(map[string]*lane)}
}

// Submit queues fn on the named lane.
func (l *Lanes) Submit(name string, fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	ln, ok := l.lanes[name]
	if !ok {
		ln = &lane{name: name, wake: make(chan struct{}, 1), done: make(chan struct{})}
		l.lanes[name] = ln
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			ln.run()
		}()
	}
	l.mu.Unlock()

	ln.mu.Lock()
	ln.queue = append(ln.queue, fn)
	ln.mu.Unlock()
	select {
	case ln.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting jobs, lets every lane drain its queue, and waits for
// the lane goroutines to exit.
func (l *Lanes) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, ln := range l.lanes {
		close(ln.done)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (ln *lane) run() {
	for {
		for {
			fn, ok := ln.pop()
			if !ok {
				break
			}
			ln.exec(fn)
		}
		select {
		case <-ln.wake:
		case <-ln.done:
			for {
				fn, ok := ln.pop()
				if !ok {
					return
				}
				ln.exec(fn)
			}
		}
	}
}

func (ln *lane) pop() (func(), bool) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	if len(ln.queue) == 0 {
		return nil, false
	}
	fn := ln.queue[0]
	ln.queue[0] = nil
	ln.queue = ln.queue[1:]
	return fn, true
}

func (ln *lane) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background job panicked", "lane", ln.name, "panic", r)
		}
	}()
	fn()
}

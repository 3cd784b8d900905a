// Package clip is the clipboard bridge: plain-text read, write and change
// notification on top of the system clipboard, plus an in-memory bridge for
// tests and headless runs.
package clip

// Bridge is the interface every clipboard implementation satisfies.
type Bridge interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard text. ok is false when the
	// clipboard is empty or holds no text.
	Read() (text string, ok bool, err error)

	// Write replaces the clipboard text. Last writer wins.
	Write(text string) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. The caller should call Read()
	// when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

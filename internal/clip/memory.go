package clip

import "sync"

// Memory is an in-process clipboard. Writes from any caller raise a change
// signal, like the system clipboard does.
type Memory struct {
	mu      sync.Mutex
	text    string
	set     bool
	writes  []string
	watchCh chan struct{}
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.set, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	m.text = text
	m.set = true
	m.writes = append(m.writes, text)
	m.mu.Unlock()
	notify(m.watchCh)
	return nil
}

// Writes returns every text written so far, oldest first.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}

// headlessBackend is a no-op bridge for environments without a display
// server. It never produces Watch events and silently discards writes.
type headlessBackend struct {
	watchCh chan struct{}
}

// NewHeadless returns the no-op bridge.
func NewHeadless() Bridge { return &headlessBackend{watchCh: make(chan struct{})} }

func (b *headlessBackend) Name() string                { return "headless (no-op)" }
func (b *headlessBackend) Read() (string, bool, error) { return "", false, nil }
func (b *headlessBackend) Write(string) error          { return nil }
func (b *headlessBackend) Watch() <-chan struct{}      { return b.watchCh }
func (b *headlessBackend) Close()                      {}

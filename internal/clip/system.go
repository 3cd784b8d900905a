package clip

import (
	"context"
	"log/slog"

	"golang.design/x/clipboard"
)

type systemBackend struct {
	watchCh chan struct{}
	cancel  context.CancelFunc
}

// New returns the system clipboard bridge, or a headless no-op bridge if the
// display environment is unavailable (e.g. a server without X11 or Wayland).
// clipboard.Init is called here rather than in init() so that CLI
// sub-commands that never construct a Bridge don't trigger the warning.
func New() Bridge {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewHeadless()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &systemBackend{
		watchCh: make(chan struct{}, 1),
		cancel:  cancel,
	}
	changes := clipboard.Watch(ctx, clipboard.FmtText)
	go func() {
		for range changes {
			notify(b.watchCh)
		}
	}()
	return b
}

func (b *systemBackend) Name() string { return "system clipboard" }

func (b *systemBackend) Read() (string, bool, error) {
	text := clipboard.Read(clipboard.FmtText)
	if text == nil {
		return "", false, nil
	}
	return string(text), true, nil
}

func (b *systemBackend) Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *systemBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *systemBackend) Close()                 { b.cancel() }

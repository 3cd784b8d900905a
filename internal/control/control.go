// Package control serves the local control channel used by the bubbleclip
// CLI tools. Each connection carries one request and at most one response.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/ipc"
	"go.klb.dev/bubbleclip/internal/message"
	"go.klb.dev/bubbleclip/internal/wire"
)

const (
	readTimeout    = 5 * time.Second
	requestTimeout = 10 * time.Second
	previewWidth   = 40
)

var (
	// ErrNoBubble is returned when a MARK names no live bubble.
	ErrNoBubble = errors.New("no such bubble")
	// ErrAmbiguous is returned when a MARK id prefix matches several bubbles.
	ErrAmbiguous = errors.New("ambiguous bubble id")
)

// Overlay is the part of the orchestrator the control channel drives.
type Overlay interface {
	Capture(ctx context.Context, text, source string) error
	Snapshot(ctx context.Context) (hub.Snapshot, error)
	TrimMemory()
	MarkReplace(ctx context.Context, id string) error
	MarkAppend(ctx context.Context, id string) error
	ClearMark(ctx context.Context, id string) error
	Pin(ctx context.Context, id string, pinned bool) error
}

// Server answers control requests against an Overlay.
type Server struct {
	o Overlay
}

// NewServer returns a Server for o.
func NewServer(o Overlay) *Server {
	return &Server{o: o}
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("control accept: %w", err)
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	wc := wire.New(conn)
	defer wc.Close()

	wc.SetReadDeadline(readTimeout)
	msg, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("control read failed", "err", err)
		return
	}
	wc.SetReadDeadline(0)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp := s.Handle(ctx, msg)
	if err := wc.WriteMsg(resp); err != nil {
		slog.Debug("control write failed", "err", err)
	}
}

// Handle answers one request.
func (s *Server) Handle(ctx context.Context, msg *message.Message) *message.Message {
	slog.Debug("control request", "type", msg.Type, "source", msg.Source)
	switch msg.Type {
	case message.TypeCapture:
		text, err := msg.Text()
		if err != nil {
			return message.NewError(err)
		}
		source := "control"
		if msg.Source != "" {
			source = "control:" + msg.Source
		}
		if err := s.o.Capture(ctx, text, source); err != nil {
			return message.NewError(err)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeStatus:
		snap, err := s.o.Snapshot(ctx)
		if err != nil {
			return message.NewError(err)
		}
		return StatusOf(snap)

	case message.TypeTrim:
		s.o.TrimMemory()
		return &message.Message{Type: message.TypeOK}

	case message.TypeMark:
		if err := s.mark(ctx, msg.Bubble, msg.Marker); err != nil {
			return message.NewError(err)
		}
		return &message.Message{Type: message.TypeOK}
	}
	return message.NewError(fmt.Errorf("unsupported request %q", msg.Type))
}

func (s *Server) mark(ctx context.Context, prefix string, m message.Marker) error {
	snap, err := s.o.Snapshot(ctx)
	if err != nil {
		return err
	}
	id, err := resolve(snap, prefix)
	if err != nil {
		return err
	}
	switch m {
	case message.MarkReplace:
		return s.o.MarkReplace(ctx, id)
	case message.MarkAppend:
		return s.o.MarkAppend(ctx, id)
	case message.MarkClear:
		return s.o.ClearMark(ctx, id)
	case message.MarkPin:
		return s.o.Pin(ctx, id, true)
	case message.MarkUnpin:
		return s.o.Pin(ctx, id, false)
	}
	return fmt.Errorf("unknown marker %q", m)
}

// resolve finds the bubble whose id equals or uniquely starts with prefix.
// Ids are compared case-insensitively.
func resolve(snap hub.Snapshot, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNoBubble)
	}
	var match string
	for _, b := range snap.Bubbles {
		id := strings.ToUpper(b.ID)
		if id == prefix {
			return b.ID, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
			}
			match = b.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNoBubble, prefix)
	}
	return match, nil
}

// StatusOf converts a hub snapshot to a STATUS_RESPONSE.
func StatusOf(snap hub.Snapshot) *message.Message {
	resp := &message.Message{
		Type:     message.TypeStatusResponse,
		Degraded: snap.Degraded,
		Mode:     snap.Mode,
	}
	for _, b := range snap.Bubbles {
		info := message.BubbleInfo{
			ID:      b.ID,
			State:   b.State.String(),
			Pinned:  b.Pinned,
			X:       b.Position.X,
			Y:       b.Position.Y,
			Preview: actions.Preview(b.Content, previewWidth),
		}
		if b.HasType {
			info.Type = b.ContentType.String()
		}
		resp.Bubbles = append(resp.Bubbles, info)
	}
	return resp
}

// Request sends msg to the running overlay and returns its response.
func Request(msg *message.Message) (*message.Message, error) {
	conn, err := ipc.Dial()
	if err != nil {
		return nil, fmt.Errorf("bubbleclip is not running (%s): %w", ipc.SocketPath(), err)
	}
	return Exchange(conn, msg)
}

// Exchange writes msg on conn, reads one response and closes conn. ERROR
// responses are returned as errors.
func Exchange(conn net.Conn, msg *message.Message) (*message.Message, error) {
	wc := wire.New(conn)
	defer wc.Close()
	if err := wc.WriteMsg(msg); err != nil {
		return nil, fmt.Errorf("send %s: %w", msg.Type, err)
	}
	wc.SetReadDeadline(requestTimeout)
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Type == message.TypeError {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

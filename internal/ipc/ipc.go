// Package ipc provides the local control channel endpoint used by CLI tools
// (copy/status/trim/mark) to talk to a running bubbleclip overlay: a Unix
// domain socket, or a named pipe on Windows.
package ipc

import (
	"net"
	"os"
)

// SocketPath returns the platform-appropriate endpoint.
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/bubbleclip.sock or $TMPDIR/bubbleclip.sock
//     (override with $BUBBLECLIP_SOCKET)
//   - Windows:       \\.\pipe\bubbleclip
func SocketPath() string {
	if s := os.Getenv("BUBBLECLIP_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether an overlay appears to be listening. It does a
// cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial()
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the control endpoint, removing any stale
// socket file first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	removeStale(path)
	return listenIPC(path)
}

// Dial connects to the control endpoint.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath())
}

//go:build !windows

package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenDial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.sock")
	t.Setenv("BUBBLECLIP_SOCKET", path)
	assert.Equal(t, path, SocketPath())
	assert.False(t, IsRunning())

	ln, err := Listen()
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	assert.True(t, IsRunning())
	require.NoError(t, ln.Close())
}

func TestSocketPathDefault(t *testing.T) {
	t.Setenv("BUBBLECLIP_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/bubbleclip.sock", SocketPath())
}

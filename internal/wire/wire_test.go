package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/message"
)

func TestRoundTripOverPipe(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := New(a), New(b)
	defer ca.Close()
	defer cb.Close()

	go func() {
		_ = ca.WriteMsg(message.NewCapture("test", "hello\nworld"))
		_ = ca.WriteMsg(&message.Message{Type: message.TypeTrim})
	}()

	m, err := cb.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeCapture, m.Type)
	text, err := m.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", text)

	m, err = cb.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeTrim, m.Type)
}

func TestReadGarbage(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	c := New(b)
	defer c.Close()

	go func() { _, _ = a.Write([]byte("not json\n")) }()
	_, err := c.ReadMsg()
	assert.Error(t, err)
}

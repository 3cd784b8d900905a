package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneOrder(t *testing.T) {
	l := New()
	var mu sync.Mutex
	var got []int
	for i := range 100 {
		require.NoError(t, l.Submit(LaneHistory, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	l.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLanesRunInParallel(t *testing.T) {
	l := New()
	defer l.Close()

	block := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, l.Submit(LaneLaunch, func() { <-block }))
	require.NoError(t, l.Submit(LaneClipboard, func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clipboard lane blocked behind launch lane")
	}
	close(block)
}

func TestSubmitAfterClose(t *testing.T) {
	l := New()
	l.Close()
	assert.ErrorIs(t, l.Submit(LaneHistory, func() {}), ErrClosed)
	l.Close()
}

func TestPanicDoesNotKillLane(t *testing.T) {
	l := New()
	var ran atomic.Bool
	require.NoError(t, l.Submit(LaneHistory, func() { panic("boom") }))
	require.NoError(t, l.Submit(LaneHistory, func() { ran.Store(true) }))
	l.Close()
	assert.True(t, ran.Load())
}

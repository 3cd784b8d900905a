package bubble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/geom"
)

func storing(t *testing.T, content string) *Bubble {
	t.Helper()
	b := New("b1", 1, geom.Point{})
	require.NoError(t, b.Capture(content, DefaultSeparator))
	require.Equal(t, Storing, b.State)
	return b
}

func TestCaptureIntoEmpty(t *testing.T) {
	b := New("b1", 1, geom.Point{})
	assert.False(t, b.HasContent())

	require.NoError(t, b.Capture("hello", DefaultSeparator))
	assert.Equal(t, Storing, b.State)
	assert.Equal(t, "hello", b.Content)

	ct, ok := b.Type()
	assert.True(t, ok)
	assert.Equal(t, classify.TEXT, ct)
}

func TestCaptureBlankIsNoop(t *testing.T) {
	b := New("b1", 1, geom.Point{})
	err := b.Capture("   ", DefaultSeparator)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Empty, b.State)
	assert.Empty(t, b.Content)
}

func TestCaptureWhileStoringIsNoop(t *testing.T) {
	b := storing(t, "keep")
	assert.ErrorIs(t, b.Capture("other", DefaultSeparator), ErrInvalidTransition)
	assert.Equal(t, "keep", b.Content)
}

func TestReplaceMarker(t *testing.T) {
	b := storing(t, "old")
	require.NoError(t, b.MarkReplace())
	assert.Equal(t, Replace, b.State)

	require.NoError(t, b.Capture("new", DefaultSeparator))
	assert.Equal(t, Storing, b.State)
	assert.Equal(t, "new", b.Content)

	// one-shot: a second capture is no longer routed here
	assert.ErrorIs(t, b.Capture("again", DefaultSeparator), ErrInvalidTransition)
}

func TestAppendMarker(t *testing.T) {
	b := storing(t, "first")
	require.NoError(t, b.MarkAppend())
	require.NoError(t, b.Capture("second", " | "))
	assert.Equal(t, "first | second", b.Content)
	assert.Equal(t, Storing, b.State)
}

func TestMarkerSwitchAndClear(t *testing.T) {
	b := storing(t, "x")
	require.NoError(t, b.MarkReplace())
	require.NoError(t, b.MarkAppend())
	assert.Equal(t, Append, b.State)
	require.NoError(t, b.ClearMark())
	assert.Equal(t, Storing, b.State)
	assert.ErrorIs(t, b.ClearMark(), ErrInvalidTransition)
}

func TestMarkEmptyIsNoop(t *testing.T) {
	b := New("b1", 1, geom.Point{})
	assert.ErrorIs(t, b.MarkReplace(), ErrInvalidTransition)
	assert.ErrorIs(t, b.MarkAppend(), ErrInvalidTransition)
	assert.Equal(t, Empty, b.State)
}

func TestApplyActionRoundTrip(t *testing.T) {
	tests := []struct {
		policy actions.MergePolicy
		want   string
	}{
		{actions.MergeReplace, "X"},
		{actions.MergeAppend, "YX"},
		{actions.MergePrepend, "XY"},
		{actions.MergeKeep, "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			b := storing(t, "Y")
			require.NoError(t, b.ApplyAction(tt.policy, "X"))
			assert.Equal(t, tt.want, b.Content)
			assert.Equal(t, Storing, b.State)
		})
	}
}

func TestApplyActionInvalid(t *testing.T) {
	b := New("b1", 1, geom.Point{})
	assert.ErrorIs(t, b.ApplyAction(actions.MergeAppend, "X"), ErrInvalidTransition)

	b = storing(t, "Y")
	assert.ErrorIs(t, b.ApplyAction(actions.MergeReplace, " "), ErrInvalidTransition)
	assert.Equal(t, "Y", b.Content)

	require.NoError(t, b.MarkAppend())
	assert.ErrorIs(t, b.ApplyAction(actions.MergeAppend, "X"), ErrInvalidTransition)
}

func TestNewStoringAndSnapshot(t *testing.T) {
	b := NewStoring("b2", 2, geom.Point{X: 5, Y: 6}, "https://example.com")
	s := b.Snapshot()
	assert.Equal(t, Storing, s.State)
	assert.Equal(t, classify.URL, s.ContentType)
	assert.True(t, s.HasType)
	assert.Equal(t, geom.Point{X: 5, Y: 6}, s.Position)

	e := NewStoring("b3", 3, geom.Point{}, "")
	assert.Equal(t, Empty, e.State)
	assert.False(t, e.Snapshot().HasType)
}

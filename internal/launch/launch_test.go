package launch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/actions"
)

func TestURI(t *testing.T) {
	l := New(nil)
	tests := []struct {
		d       actions.Directive
		payload string
		want    string
	}{
		{actions.OpenURL, " https://example.com/a?b=c ", "https://example.com/a?b=c"},
		{actions.Dial, "+420 777-123-456", "tel:+420777123456"},
		{actions.Dial, "(555) 123 4567", "tel:5551234567"},
		{actions.Email, "mailto:jane@example.com", "mailto:jane@example.com"},
		{actions.Email, "jane@example.com", "mailto:jane@example.com"},
		{actions.Map, "10 Downing Street, London", "https://www.openstreetmap.org/search?query=10+Downing+Street%2C+London"},
		{actions.Search, "go generics", "https://duckduckgo.com/?q=go+generics"},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			got, err := l.URI(tt.d, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIErrors(t *testing.T) {
	l := New(nil)
	for _, c := range []struct {
		d       actions.Directive
		payload string
	}{
		{actions.OpenURL, "not a link"},
		{actions.OpenURL, "ftp://example.com"},
		{actions.OpenURL, "https://example.com is down"},
		{actions.OpenURL, "http://example.com\nsecond line"},
		{actions.Dial, "no digits"},
		{actions.Search, "  "},
		{actions.DirectiveNone, "x"},
	} {
		_, err := l.URI(c.d, c.payload)
		assert.ErrorIs(t, err, ErrLaunchFailed, "%s %q", c.d, c.payload)
	}
}

func TestLaunch(t *testing.T) {
	var opened []string
	l := New(OpenerFunc(func(_ context.Context, uri string) error {
		opened = append(opened, uri)
		return nil
	}), WithSearchURL("https://search.example/?q=%s"))

	require.NoError(t, l.Launch(context.Background(), actions.Search, "a b"))
	assert.Equal(t, []string{"https://search.example/?q=a+b"}, opened)
}

func TestLaunchOpenerFails(t *testing.T) {
	boom := errors.New("no handler")
	l := New(OpenerFunc(func(context.Context, string) error { return boom }))
	err := l.Launch(context.Background(), actions.OpenURL, "https://example.com")
	assert.ErrorIs(t, err, ErrLaunchFailed)
	assert.ErrorIs(t, err, boom)
}

// Package launch hands smart-action payloads to the desktop: links, dialers,
// mail clients, maps and web search, all through the platform URI opener.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/classify"
)

// ErrLaunchFailed wraps every failure to hand a payload to the desktop.
var ErrLaunchFailed = errors.New("external launch failed")

const (
	DefaultSearchURL = "https://duckduckgo.com/?q=%s"
	DefaultMapURL    = "https://www.openstreetmap.org/search?query=%s"
)

// Opener opens a URI with whatever the desktop associates with it.
type Opener interface {
	Open(ctx context.Context, uri string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, uri string) error

func (f OpenerFunc) Open(ctx context.Context, uri string) error { return f(ctx, uri) }

// Exec opens URIs with the platform helper: xdg-open, open, or rundll32.
type Exec struct{}

func (Exec) Open(ctx context.Context, uri string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", uri)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", uri)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.CommandContext(ctx, "xdg-open", uri)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// Launcher turns directives into URIs and opens them.
type Launcher struct {
	opener    Opener
	searchURL string
	mapURL    string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithSearchURL sets the search template; %s receives the escaped query.
func WithSearchURL(tmpl string) Option {
	return func(l *Launcher) {
		if tmpl != "" {
			l.searchURL = tmpl
		}
	}
}

// WithMapURL sets the map search template.
func WithMapURL(tmpl string) Option {
	return func(l *Launcher) {
		if tmpl != "" {
			l.mapURL = tmpl
		}
	}
}

// New returns a launcher opening URIs with o. A nil o uses Exec.
func New(o Opener, opts ...Option) *Launcher {
	if o == nil {
		o = Exec{}
	}
	l := &Launcher{opener: o, searchURL: DefaultSearchURL, mapURL: DefaultMapURL}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch opens payload per d. Every error wraps ErrLaunchFailed.
func (l *Launcher) Launch(ctx context.Context, d actions.Directive, payload string) error {
	uri, err := l.URI(d, payload)
	if err != nil {
		return err
	}
	if err := l.opener.Open(ctx, uri); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLaunchFailed, d, err)
	}
	return nil
}

// URI builds the URI for d.
func (l *Launcher) URI(d actions.Directive, payload string) (string, error) {
	p := strings.TrimSpace(payload)
	if p == "" {
		return "", fmt.Errorf("%w: %s: empty payload", ErrLaunchFailed, d)
	}
	switch d {
	case actions.OpenURL:
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: not a link: %q", ErrLaunchFailed, p)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrLaunchFailed, u.Scheme)
		}
		return u.String(), nil
	case actions.Dial:
		digits := classify.Digits(p)
		if digits == "" {
			return "", fmt.Errorf("%w: no digits in %q", ErrLaunchFailed, p)
		}
		if strings.HasPrefix(p, "+") {
			digits = "+" + digits
		}
		return "tel:" + digits, nil
	case actions.Email:
		addr := strings.TrimPrefix(p, "mailto:")
		return (&url.URL{Scheme: "mailto", Opaque: addr}).String(), nil
	case actions.Map:
		return fmt.Sprintf(l.mapURL, url.QueryEscape(p)), nil
	case actions.Search:
		return fmt.Sprintf(l.searchURL, url.QueryEscape(p)), nil
	default:
		return "", fmt.Errorf("%w: no launch for %q", ErrLaunchFailed, d)
	}
}

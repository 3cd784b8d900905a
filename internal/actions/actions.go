// Package actions is the smart-action registry: a static table from content
// type to the ordered quick actions offered at an activated screen edge.
package actions

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"

	"go.klb.dev/bubbleclip/internal/classify"
)

// MergePolicy says how a drop combines the system clipboard (the operand)
// with the bubble's content.
type MergePolicy int

const (
	// MergeKeep leaves the content as is; the bubble is only copied out.
	MergeKeep MergePolicy = iota
	MergeReplace
	MergeAppend
	MergePrepend
)

var mergeNames = [...]string{"keep", "replace", "append", "prepend"}

func (m MergePolicy) String() string {
	if m < 0 || int(m) >= len(mergeNames) {
		return "unknown"
	}
	return mergeNames[m]
}

// Apply merges operand into content according to m.
func (m MergePolicy) Apply(content, operand string) string {
	switch m {
	case MergeReplace:
		return operand
	case MergeAppend:
		return content + operand
	case MergePrepend:
		return operand + content
	default:
		return content
	}
}

// Directive names an external launch performed after a drop.
type Directive int

const (
	DirectiveNone Directive = iota
	OpenURL
	Dial
	Email
	Map
	Search
)

var directiveNames = [...]string{"", "OPEN_URL", "DIAL", "EMAIL", "MAP", "SEARCH"}

func (d Directive) String() string {
	if d < 0 || int(d) >= len(directiveNames) {
		return "UNKNOWN"
	}
	if d == DirectiveNone {
		return "NONE"
	}
	return directiveNames[d]
}

// ParseDirective converts a name produced by String back into a Directive.
func ParseDirective(s string) (Directive, bool) {
	for i, n := range directiveNames {
		if i > 0 && strings.EqualFold(n, s) {
			return Directive(i), true
		}
	}
	return DirectiveNone, strings.EqualFold(s, "none")
}

// Action is one entry of an action strip. Values are immutable copies of the
// registry's templates with the label interpolated.
type Action struct {
	// ID is stable across content and identifies the template.
	ID          string
	Label       string
	ContentType classify.ContentType
	Merge       MergePolicy
	Launch      Directive
}

// Launches reports whether the action carries an external-launch directive.
func (a Action) Launches() bool { return a.Launch != DirectiveNone }

type template struct {
	id     string
	label  string // may contain one %s for the preview
	merge  MergePolicy
	launch Directive
}

// DefaultPreviewWidth is the cell width of the content preview in labels.
const DefaultPreviewWidth = 24

var specific = map[classify.ContentType][]template{
	classify.URL:     {{"open-url", "Open %s", MergeKeep, OpenURL}},
	classify.PHONE:   {{"dial", "Call %s", MergeKeep, Dial}},
	classify.EMAIL:   {{"email", "Email %s", MergeKeep, Email}},
	classify.ADDRESS: {{"map", "Map %s", MergeKeep, Map}},
	classify.CODE:    {{"copy-code", "Copy code", MergeKeep, DirectiveNone}},
}

var merges = []template{
	{"replace", "Replace with clipboard", MergeReplace, DirectiveNone},
	{"append", "Append clipboard", MergeAppend, DirectiveNone},
	{"prepend", "Prepend clipboard", MergePrepend, DirectiveNone},
}

var (
	copyTmpl   = template{"copy", "Copy", MergeKeep, DirectiveNone}
	searchTmpl = template{"search", "Search %s", MergeKeep, Search}
)

// Registry resolves action lists. The zero value is not usable; call New.
type Registry struct {
	table        map[classify.ContentType][]template
	previewWidth uint
}

// Option configures a Registry.
type Option func(*Registry)

// WithPreviewWidth sets the label preview width in terminal cells.
func WithPreviewWidth(w uint) Option {
	return func(r *Registry) { r.previewWidth = w }
}

// New builds the static registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		table:        make(map[classify.ContentType][]template),
		previewWidth: DefaultPreviewWidth,
	}
	for _, ct := range classify.Types() {
		var list []template
		list = append(list, specific[ct]...)
		list = append(list, merges...)
		if ct != classify.CODE {
			list = append(list, copyTmpl)
		}
		list = append(list, searchTmpl)
		r.table[ct] = list
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ActionsFor returns the ordered actions for ct, most specific first and the
// generic copy/search actions last. content only feeds label previews; blank
// content yields an empty list so no action zone renders.
func (r *Registry) ActionsFor(ct classify.ContentType, content string) []Action {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	tmpls, ok := r.table[ct]
	if !ok {
		tmpls = r.table[classify.TEXT]
	}
	preview := Preview(content, r.previewWidth)
	out := make([]Action, len(tmpls))
	for i, t := range tmpls {
		label := t.label
		if strings.Contains(label, "%s") {
			label = fmt.Sprintf(label, preview)
		}
		out[i] = Action{
			ID:          t.id,
			Label:       label,
			ContentType: ct,
			Merge:       t.merge,
			Launch:      t.launch,
		}
	}
	return out
}

// Preview collapses whitespace and truncates s to width cells with an
// ellipsis.
func Preview(s string, width uint) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || width == 0 {
		return s
	}
	return truncate.StringWithTail(s, width, "…")
}

package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/classify"
)

func TestActionsForNeverEmptyForContent(t *testing.T) {
	r := New()
	for _, ct := range classify.Types() {
		acts := r.ActionsFor(ct, "something")
		require.NotEmpty(t, acts, ct.String())
		last := acts[len(acts)-1]
		assert.Equal(t, Search, last.Launch, "generic search comes last for %s", ct)
		for _, a := range acts {
			assert.Equal(t, ct, a.ContentType)
			assert.NotEmpty(t, a.Label)
		}
	}
}

func TestActionsForBlank(t *testing.T) {
	r := New()
	for _, ct := range classify.Types() {
		assert.Empty(t, r.ActionsFor(ct, ""))
		assert.Empty(t, r.ActionsFor(ct, "  \n\t"))
	}
}

func TestPhoneDialFirst(t *testing.T) {
	content := "+420777123456"
	ct := classify.Classify(content)
	require.Equal(t, classify.PHONE, ct)

	acts := New().ActionsFor(ct, content)
	require.NotEmpty(t, acts)
	assert.Equal(t, Dial, acts[0].Launch)
	assert.Equal(t, MergeKeep, acts[0].Merge)
	assert.Equal(t, "Call +420777123456", acts[0].Label)
}

func TestSpecificFirst(t *testing.T) {
	r := New()
	cases := map[classify.ContentType]Directive{
		classify.URL:     OpenURL,
		classify.EMAIL:   Email,
		classify.ADDRESS: Map,
	}
	for ct, d := range cases {
		assert.Equal(t, d, r.ActionsFor(ct, "x")[0].Launch, ct.String())
	}
	assert.Equal(t, "copy-code", r.ActionsFor(classify.CODE, "x")[0].ID)
	assert.Equal(t, "replace", r.ActionsFor(classify.TEXT, "x")[0].ID)
}

func TestContentDoesNotChangeSelection(t *testing.T) {
	r := New()
	ids := func(acts []Action) []string {
		var out []string
		for _, a := range acts {
			out = append(out, a.ID)
		}
		return out
	}
	a := r.ActionsFor(classify.URL, "https://a.example")
	b := r.ActionsFor(classify.URL, "completely different content that is long")
	assert.Equal(t, ids(a), ids(b))
}

func TestLabelPreviewTruncated(t *testing.T) {
	r := New(WithPreviewWidth(8))
	acts := r.ActionsFor(classify.URL, "https://example.com/very/long/path")
	assert.Equal(t, "Open https:/…", acts[0].Label)
}

func TestMergeApply(t *testing.T) {
	assert.Equal(t, "X", MergeReplace.Apply("Y", "X"))
	assert.Equal(t, "YX", MergeAppend.Apply("Y", "X"))
	assert.Equal(t, "XY", MergePrepend.Apply("Y", "X"))
	assert.Equal(t, "Y", MergeKeep.Apply("Y", "X"))
}

func TestParseDirective(t *testing.T) {
	for _, d := range []Directive{OpenURL, Dial, Email, Map, Search} {
		got, ok := ParseDirective(d.String())
		assert.True(t, ok)
		assert.Equal(t, d, got)
	}
	got, ok := ParseDirective("none")
	assert.True(t, ok)
	assert.Equal(t, DirectiveNone, got)
	_, ok = ParseDirective("bogus")
	assert.False(t, ok)
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/bubbleclip/internal/classify"
	"go.klb.dev/bubbleclip/internal/history"
	"go.klb.dev/bubbleclip/internal/message"
	"go.klb.dev/bubbleclip/internal/overlay"
)

func TestParseMarker(t *testing.T) {
	m, err := parseMarker("PIN")
	require.NoError(t, err)
	assert.Equal(t, message.MarkPin, m)

	_, err = parseMarker("wobble")
	assert.Error(t, err)
}

func TestParseScreen(t *testing.T) {
	s, err := parseScreen("1280x720")
	require.NoError(t, err)
	assert.Equal(t, 1280.0, s.W)
	assert.Equal(t, 720.0, s.H)

	for _, bad := range []string{"", "1280", "0x10", "axb"} {
		_, err := parseScreen(bad)
		assert.Error(t, err, bad)
	}
}

func TestOverlayConfigFromEnv(t *testing.T) {
	t.Setenv("BUBBLECLIP_MAX_BUBBLES", "5")
	t.Setenv("BUBBLECLIP_MODE", "extend")

	cmd := &cobra.Command{Use: "run"}
	addOverlayFlags(cmd)
	addConfigFlag(cmd)
	require.NoError(t, cmd.Flags().Set("config", "/nonexistent/bubbleclip.toml"))

	v := viper.New()
	err := bindViper(cmd, v)
	require.Error(t, err, "an explicit config file must exist")

	require.NoError(t, cmd.Flags().Set("config", ""))
	v = viper.New()
	require.NoError(t, bindViper(cmd, v))

	cfg, err := overlayConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxBubbles)
	assert.Equal(t, overlay.ModeExtend, cfg.Mode)
	assert.Equal(t, 1920.0, cfg.Screen.W)
	assert.Equal(t, 100.0, cfg.EdgeThreshold)
	assert.Equal(t, "\n", cfg.Separator)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &message.Message{
		Type:     message.TypeStatusResponse,
		Mode:     "replace",
		Degraded: true,
		Bubbles: []message.BubbleInfo{
			{ID: "01HAAA", State: "STORING", Type: "URL", Pinned: true, X: 0, Y: 30, Preview: "https://example.com"},
			{ID: "01HABB", State: "EMPTY", X: 76},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "off (degraded)")
	assert.Contains(t, out, "01HAAA")
	assert.Contains(t, out, "0,30")
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "EMPTY")

	buf.Reset()
	printStatus(&buf, &message.Message{Type: message.TypeStatusResponse, Mode: "extend"})
	assert.Contains(t, buf.String(), "No bubbles.")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil, 0)
	assert.Contains(t, buf.String(), "History is empty.")

	buf.Reset()
	printHistory(&buf, []history.Item{
		{ID: "01HX", Content: "call me\n555 0100", Type: classify.PHONE, CreatedAt: time.Now()},
	}, 3)
	out := buf.String()
	assert.Contains(t, out, "PHONE")
	assert.Contains(t, out, "call me 555 0100")
	assert.Contains(t, out, "(1 of 3 rows)")
}

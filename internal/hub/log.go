package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/bubbleclip/internal/classify"
)

const previewRunes = 120

// LogContent logs a content event at INFO (source, type, size) and adds a
// preview of up to 120 runes at DEBUG.
func LogContent(event, source string, ct classify.ContentType, text string) {
	slog.Info(event, "source", source, "type", ct, "size", len(text))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r := []rune(text)
	preview := text
	if len(r) > previewRunes {
		preview = string(r[:previewRunes]) + "…"
	}
	slog.Debug("content", "source", source, "preview", preview)
}

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{raw: "", want: slog.LevelInfo},
		{raw: "DEBUG", want: slog.LevelDebug},
		{raw: " warn ", want: slog.LevelWarn},
		{raw: "warning", want: slog.LevelWarn},
		{raw: "error", want: slog.LevelError},
		{raw: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, parseLevel(tt.raw))
		})
	}
}

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("published", slog.String("topic", "Go"))

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"topic":"Go"`)
}

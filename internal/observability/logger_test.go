package observability_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddtft/internal/observability"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLogger(observability.LogConfig{
		Level: "info", Format: "json", Output: &buf, ServiceName: "ddtft",
	})

	log.Debug().Msg("hidden")
	log.Info().Str("field", "vat_id").Msg("pipeline.Chain: field overridden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "ddtft", entry["service"])
	assert.Equal(t, "vat_id", entry["field"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "console", Output: &buf})
	log.Debug().Msg("stage finished")
	assert.Contains(t, buf.String(), "stage finished")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, observability.ParseLevel(in), in)
	}
}

package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

func TestZerologLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *Logger)
		level string
	}{
		{"debug", func(l *Logger) { l.Debug("msg") }, "debug"},
		{"info", func(l *Logger) { l.Info("msg") }, "info"},
		{"warn", func(l *Logger) { l.Warn("msg") }, "warn"},
		{"error", func(l *Logger) { l.Error("msg") }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := bytes.Buffer{}
			zlog := zerolog.New(&output)
			tt.log(NewLogger(&zlog))

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(output.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
		})
	}
}

func TestZerologLogger_LogLevelFiltering(t *testing.T) {
	output := bytes.Buffer{}
	zlog := zerolog.New(&output).Level(zerolog.WarnLevel)
	logger := NewLogger(&zlog)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Zero(t, output.Len(), "debug and info should be filtered out")

	logger.Warn("warn message")
	logger.Error("error message")
	assert.NotZero(t, output.Len())
}

func TestZerologLogger_Fields(t *testing.T) {
	output := bytes.Buffer{}
	zlog := zerolog.New(&output)
	logger := NewLogger(&zlog)

	logger.Info("user upgraded",
		premium.Field{Key: "email", Value: "a@example.com"},
		premium.Field{Key: "rows", Value: 1},
		premium.Field{Key: "error", Value: errors.New("boom")},
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &entry))
	assert.Equal(t, "a@example.com", entry["email"])
	assert.Equal(t, float64(1), entry["rows"])
	assert.Equal(t, "boom", entry["error"])
}

package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	original := Set(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer Set(original)

	tests := []struct {
		name  string
		fn    func(msg string, args ...any)
		level string
	}{
		{"Info", Info, "INFO"},
		{"Error", Error, "ERROR"},
		{"Warn", Warn, "WARN"},
		{"Debug", Debug, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn(tt.name + " message")

			var rec logRecord
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			assert.Equal(t, tt.name+" message", rec.Msg)
			assert.Equal(t, tt.level, rec.Level)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigure_FiltersBelowLevel(t *testing.T) {
	original := L()
	defer Set(original)

	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn"))

	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_RejectsUnknownLevel(t *testing.T) {
	original := L()
	defer Set(original)

	assert.Error(t, Configure(&bytes.Buffer{}, "chatty"))
	assert.Same(t, original, L())
}

func TestConfigure_ConcurrentWithLogging(t *testing.T) {
	original := L()
	defer Set(original)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick", "n", j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, Configure(io.Discard, "debug"))
			}
		}()
	}
	wg.Wait()
}

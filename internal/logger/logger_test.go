package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the
// previous output, level and format on cleanup.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	origOutput, origColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	origLevel := currentLevel.Load()
	origFormat := currentFormat.Load()
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = origOutput, origColor
		mu.Unlock()
		currentLevel.Store(origLevel)
		currentFormat.Store(origFormat)
		reconfigure()
	})
	return buf
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry), buf.String())
	return entry
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug msg", "info msg", "warn msg", "error msg"}, nil},
		{"INFO", []string{"info msg", "warn msg", "error msg"}, []string{"debug msg"}},
		{"WARN", []string{"warn msg", "error msg"}, []string{"debug msg", "info msg"}},
		{"ERROR", []string{"error msg"}, []string{"debug msg", "info msg", "warn msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug msg")
			Info("info msg")
			Warn("warn msg")
			Error("error msg")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	captureOutput(t)
	SetLevel("warn")
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	_, ok = ParseLevel("trace")
	assert.False(t, ok)

	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	Info("container started", KeyProvider, "postgres", "note", "two words", Endpoint("localhost", 55432))

	out := buf.String()
	assert.Contains(t, out, "[INFO] container started")
	assert.Contains(t, out, "provider=postgres")
	assert.Contains(t, out, `note="two words"`)
	assert.Contains(t, out, "endpoint.host=localhost")
	assert.Contains(t, out, "endpoint.port=55432")
}

func TestTextFormat_WithAttrsAndGroup(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	With(KeySessionID, "s1").WithGroup("runtime").Info("stopped", KeyOperation, "stop")

	out := buf.String()
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "runtime.operation=stop")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("resolved", "key1", "value1", "key2", 42)

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "resolved", entry["msg"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Contains(t, entry, "time")
}

func TestSetFormat_IgnoresUnknown(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")
	SetFormat("xml")

	Info("still text")
	assert.Contains(t, buf.String(), "[INFO] still text")
}

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("abc123"))
		ctx = ProviderContext(ctx, "redis")
		InfoCtx(ctx, "instance ready", "extra", "value")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry[KeySessionID])
		assert.Equal(t, "redis", entry[KeyProvider])
		assert.Equal(t, "value", entry["extra"])
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated on purpose
			InfoCtx(nil, "no context")
		})
		assert.Contains(t, buf.String(), "no context")
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		WarnCtx(context.Background(), "plain")
		assert.Contains(t, buf.String(), "plain")
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("s1")
	assert.False(t, lc.StartTime.IsZero())
	assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)

	withProvider := lc.WithProvider("postgres")
	assert.Equal(t, "postgres", withProvider.Provider)
	assert.Equal(t, "s1", withProvider.SessionID)
	assert.Empty(t, lc.Provider)

	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Equal(t, 0.0, nilLC.DurationMs())
	assert.Equal(t, "mysql", nilLC.WithProvider("mysql").Provider)
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "", Err(nil).Key)

	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, KeyProvider, Provider("redis").Key)
	assert.Equal(t, "endpoint", Endpoint("h", 1).Key)
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				Info("concurrent", KeyCount, i)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "["), line)
	}
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		captureOutput(t)
		path := filepath.Join(t.TempDir(), "ephemera.log")

		require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))
		t.Cleanup(func() { _ = Init(Config{Output: "stderr"}) })

		Debug("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		captureOutput(t)
		assert.Error(t, Init(Config{Level: "loud"}))
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		captureOutput(t)
		assert.Error(t, Init(Config{Format: "xml"}))
	})

	t.Run("UnwritableFile", func(t *testing.T) {
		captureOutput(t)
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.ErrorContains(t, err, "failed to open log file")
	})
}

func TestInitWithWriter(t *testing.T) {
	captureOutput(t)
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "WARN", "text", false)

	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kataras/golog"
)

func newBufferedGolog(buf *bytes.Buffer) *golog.Logger {
	logger := golog.New()
	logger.SetOutput(buf)
	logger.SetLevel("debug")
	return logger
}

func TestGologLoggerInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGologLogger(newBufferedGolog(&buf))

	logger.Info("hello %s", "world")

	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("expected formatted message, got: %s", buf.String())
	}
}

func TestGologLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGologLogger(newBufferedGolog(&buf))

	logger.SetLevel(LevelError)
	if logger.GetLevel() != LevelError {
		t.Fatalf("expected LevelError, got %v", logger.GetLevel())
	}

	logger.Info("filtered out")
	if strings.Contains(buf.String(), "filtered out") {
		t.Fatalf("message below level was logged: %s", buf.String())
	}

	logger.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error message was dropped: %s", buf.String())
	}
}

func TestGologLoggerDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGologLogger(newBufferedGolog(&buf))

	// Info by default: debug is filtered by the wrapper.
	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug logged at default level: %s", buf.String())
	}
}

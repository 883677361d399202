package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          LogLevel
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:           "debug level shows all messages",
			level:          LogDebug,
			expectedOutput: []string{"[DEBUG] debug message", "[INFO] info message", "[WARN] warn message", "[ERROR] error message"},
		},
		{
			name:           "info level hides debug messages",
			level:          LogInfo,
			expectedOutput: []string{"[INFO] info message", "[ERROR] error message"},
			notExpected:    []string{"[DEBUG]"},
		},
		{
			name:           "error level shows only errors",
			level:          LogError,
			expectedOutput: []string{"[ERROR] error message"},
			notExpected:    []string{"[DEBUG]", "[INFO]", "[WARN]"},
		},
		{
			name:        "off level is silent",
			level:       LogOff,
			notExpected: []string{"message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(&buf, tt.level)
			l.Debug("debug message")
			l.Info("info message")
			l.Warn("warn message")
			l.Error("error message")

			output := buf.String()
			for _, expected := range tt.expectedOutput {
				if !strings.Contains(output, expected) {
					t.Errorf("expected output to contain %q, got %q", expected, output)
				}
			}
			for _, unexpected := range tt.notExpected {
				if strings.Contains(output, unexpected) {
					t.Errorf("expected output not to contain %q, got %q", unexpected, output)
				}
			}
		})
	}
}

func TestLoggerFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LogInfo).WithFields(Fields{"zeta": 1, "alpha": "a"})
	l.Info("hello %s", "world")

	line := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(line, "hello world alpha=a zeta=1") {
		t.Errorf("unexpected log line %q", line)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&buf, LogInfo)
	_ = parent.WithField("id", "abc")
	parent.Info("plain")

	if strings.Contains(buf.String(), "id=abc") {
		t.Errorf("parent logger picked up child field: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		"INFO":    LogInfo,
		"warning": LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"bogus":   LogInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	if l == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l.Error("dropped")
}

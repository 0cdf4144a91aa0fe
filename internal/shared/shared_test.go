package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	tu "github.com/desertthunder/trackui/internal/testing"
)

func TestClampPercent(t *testing.T) {
	tc := []struct {
		name string
		in   int
		want int
	}{
		{name: "within range", in: 42, want: 42},
		{name: "lower bound", in: 0, want: 0},
		{name: "upper bound", in: 100, want: 100},
		{name: "above range", in: 150, want: 100},
		{name: "below range", in: -5, want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPercent(tt.in); got != tt.want {
				t.Errorf("ClampPercent(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 30); got != "short" {
		t.Errorf("expected untouched string, got %q", got)
	}

	long := strings.Repeat("a", 40)
	got := Truncate(long, 30)
	if got != strings.Repeat("a", 30)+"..." {
		t.Errorf("expected 30 runes plus ellipsis, got %q", got)
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		WithLogger(logger, "loop", "indicator").Info("tick")

		out := buf.String()
		if !strings.Contains(out, "tick") || !strings.Contains(out, "loop=indicator") {
			t.Errorf("expected message and key-value pair, got %q", out)
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "trackui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("hello")

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "hello") {
			t.Errorf("expected log line in file, got %q", content)
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if ParseLogLevel("DEBUG") != log.DebugLevel {
			t.Error("expected debug level")
		}
		if ParseLogLevel("bogus") != log.InfoLevel {
			t.Error("expected info fallback")
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}

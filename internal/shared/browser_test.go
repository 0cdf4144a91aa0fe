package shared

import (
	"errors"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tc := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "http://127.0.0.1:5000")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, name)
			}
			if args[len(args)-1] != "http://127.0.0.1:5000" {
				t.Errorf("expected url as last argument, got %v", args)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		if _, _, err := browserCommand("plan9", "http://x"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	orig := startCommand
	defer func() { startCommand = orig }()

	var got []string
	startCommand = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := OpenBrowser("http://127.0.0.1:5000"); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			t.Skip("platform without browser support")
		}
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) == 0 || got[len(got)-1] != "http://127.0.0.1:5000" {
		t.Errorf("expected browser command with url, got %v", got)
	}

	startCommand = func(string, ...string) error { return errors.New("boom") }
	if err := OpenBrowser("http://127.0.0.1:5000"); err == nil {
		t.Error("expected start failure to surface")
	}
}

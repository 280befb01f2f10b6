package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMaskToken(t *testing.T) {
	tc := []struct {
		name  string
		token string
		want  string
	}{
		{name: "empty", token: "  ", want: ""},
		{name: "short", token: "abcd", want: "***"},
		{name: "long", token: "0123456789abcdef", want: "012***def"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.token); got != tt.want {
				t.Errorf("MaskToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tc := []struct {
		name  string
		epoch int64
		want  string
	}{
		{name: "seconds", epoch: now.Unix() - 10, want: "just now"},
		{name: "minutes", epoch: now.Unix() - 5*60, want: "5m ago"},
		{name: "hours", epoch: now.Unix() - 3*3600, want: "3h ago"},
		{name: "days", epoch: now.Unix() - 2*86400, want: "2d ago"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelative(tt.epoch, now); got != tt.want {
				t.Errorf("FormatRelative() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("expected untouched string, got %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héll…" {
		t.Errorf("expected rune-aware truncation, got %q", got)
	}
}

func TestHTTPError(t *testing.T) {
	err := fmt.Errorf("fetch page: %w", &HTTPError{Status: 404, Body: "not found"})

	if !errors.Is(err, ErrAPIRequest) {
		t.Error("expected HTTPError to match ErrAPIRequest")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatal("expected errors.As to find HTTPError")
	}
	if httpErr.Status != 404 {
		t.Errorf("expected status 404, got %d", httpErr.Status)
	}
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	getRuntime = func() string { return "plan9" }
	if _, err := browserCommand("https://musicbrainz.org"); err == nil {
		t.Error("expected error for unsupported platform")
	}

	getRuntime = func() string { return "linux" }
	cmd, err := browserCommand("https://musicbrainz.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Args[0] != "xdg-open" {
		t.Errorf("expected xdg-open, got %s", cmd.Args[0])
	}
}

package llm

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "", zap.NewNop()); err == nil {
		t.Fatal("missing API key accepted")
	}
	if _, err := NewClient("   ", "", zap.NewNop()); err == nil {
		t.Fatal("blank API key accepted")
	}
}

func TestTranslateNoOps(t *testing.T) {
	// The no-op branches never touch the API, so a bare client suffices.
	c := &Client{logger: zap.NewNop()}
	ctx := context.Background()

	cases := []struct {
		name           string
		text           string
		source, target string
	}{
		{"empty text", "", "ro", "en"},
		{"blank text", "   ", "ro", "en"},
		{"unknown source", "salut", "unknown", "en"},
		{"empty source", "salut", "", "en"},
		{"source equals target", "hello", "en", "en"},
		{"source prefix of target family", "hello", "en-us", "en"},
		{"empty target", "hello", "ro", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Translate(ctx, tc.text, tc.source, tc.target); got != tc.text {
				t.Fatalf("Translate(%q, %q, %q) = %q, want passthrough", tc.text, tc.source, tc.target, got)
			}
		})
	}
}

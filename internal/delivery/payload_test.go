package delivery

import (
	"strings"
	"testing"
	"time"

	"hookrelay/internal/platform"
)

func TestBuildMessage(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 14, 5, 0, 0, time.FixedZone("CST", 8*3600))

	req := Request{
		Platform:   platform.Instagram,
		ConfigName: "main",
		Title:      "👤 alice",
		Body:       "a new photo",
		Formatting: Formatting{
			BotName:          "IG Notifier",
			IconURL:          "https://cdn.example/icon.png",
			ColorHex:         "E4405F",
			IncludeTitle:     true,
			IncludeTimestamp: true,
		},
	}

	msg := buildMessage(req, now)
	if msg.Username != "IG Notifier" {
		t.Fatalf("Username = %q", msg.Username)
	}
	if msg.AvatarURL != "https://cdn.example/icon.png" {
		t.Fatalf("AvatarURL = %q", msg.AvatarURL)
	}
	if len(msg.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(msg.Embeds))
	}
	e := msg.Embeds[0]
	if e.Title != "👤 alice" {
		t.Fatalf("Title = %q", e.Title)
	}
	if e.Description != "a new photo" {
		t.Fatalf("Description = %q", e.Description)
	}
	if e.Color != 0xE4405F {
		t.Fatalf("Color = %#x", e.Color)
	}
	if e.Timestamp != "2026-08-30T14:05:00+08:00" {
		t.Fatalf("Timestamp = %q", e.Timestamp)
	}
	if e.Footer.Text != "Instagram notification relay - main" {
		t.Fatalf("Footer = %q", e.Footer.Text)
	}
}

func TestBuildMessageOmissions(t *testing.T) {
	t.Parallel()
	req := Request{
		Platform: platform.Twitter,
		Title:    "👤 @bob",
		Body:     "hello",
		Formatting: Formatting{
			IconURL:          "not-a-url",
			IncludeTitle:     false,
			IncludeTimestamp: false,
		},
	}
	msg := buildMessage(req, time.Now())
	if msg.Username != "" || msg.AvatarURL != "" {
		t.Fatalf("unexpected identity fields: %q %q", msg.Username, msg.AvatarURL)
	}
	e := msg.Embeds[0]
	if e.Title != "" {
		t.Fatalf("Title = %q, want empty when titles are off", e.Title)
	}
	if e.Timestamp != "" {
		t.Fatalf("Timestamp = %q, want empty", e.Timestamp)
	}
	if e.Color != 0x1DA1F2 {
		t.Fatalf("Color = %#x, want twitter default", e.Color)
	}
}

func TestBuildMessageTruncation(t *testing.T) {
	t.Parallel()
	req := Request{
		Platform: platform.Instagram,
		Title:    strings.Repeat("標", 300),
		Body:     strings.Repeat("x", 2500),
		Formatting: Formatting{
			BotName:      strings.Repeat("n", 100),
			IncludeTitle: true,
		},
	}
	msg := buildMessage(req, time.Now())
	if got := len([]rune(msg.Username)); got != 80 {
		t.Fatalf("username runes = %d, want 80", got)
	}
	e := msg.Embeds[0]
	if got := len([]rune(e.Title)); got != 256 {
		t.Fatalf("title runes = %d, want 256", got)
	}
	if got := len([]rune(e.Description)); got != 2000 {
		t.Fatalf("description runes = %d, want 2000", got)
	}
}

func TestResolveColor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		hex  string
		p    platform.Platform
		want int
	}{
		{"valid", "1DA1F2", platform.Twitter, 0x1DA1F2},
		{"hash prefix", "#00FF00", platform.Twitter, 0x00FF00},
		{"empty falls back", "", platform.Instagram, 0xE4405F},
		{"garbage falls back", "zzz", platform.Instagram, 0xE4405F},
		{"out of range falls back", "1FFFFFF", platform.Twitter, 0x1DA1F2},
		{"unknown platform neutral", "", platform.Platform("OTHER"), 0x5865F2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveColor(tt.hex, tt.p); got != tt.want {
				t.Fatalf("resolveColor(%q) = %#x, want %#x", tt.hex, got, tt.want)
			}
		})
	}
}

func TestFooterTextDigest(t *testing.T) {
	t.Parallel()
	got := footerText(platform.DefaultsFor(platform.Platform("")), "")
	if got != "hookrelay" {
		t.Fatalf("footerText = %q", got)
	}
}

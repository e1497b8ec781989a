package delivery

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"hookrelay/internal/platform"
)

// Discord-imposed field limits.
const (
	maxUsernameLen    = 80
	maxTitleLen       = 256
	maxDescriptionLen = 2000
)

type discordMessage struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp,omitempty"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// buildMessage assembles the webhook payload for one request. now is a
// parameter so tests can pin the embed timestamp.
func buildMessage(req Request, now time.Time) discordMessage {
	d := platform.DefaultsFor(req.Platform)

	msg := discordMessage{}
	if name := strings.TrimSpace(req.Formatting.BotName); name != "" {
		msg.Username = truncateRunes(name, maxUsernameLen)
	}
	if icon := strings.TrimSpace(req.Formatting.IconURL); icon != "" && strings.HasPrefix(icon, "http") {
		msg.AvatarURL = icon
	}

	embed := discordEmbed{
		Color:  resolveColor(req.Formatting.ColorHex, req.Platform),
		Footer: discordFooter{Text: footerText(d, req.ConfigName)},
	}
	if req.Formatting.IncludeTitle {
		if title := strings.TrimSpace(req.Title); title != "" {
			embed.Title = truncateRunes(title, maxTitleLen)
		}
	}
	if body := strings.TrimSpace(req.Body); body != "" {
		embed.Description = truncateRunes(body, maxDescriptionLen)
	}
	if req.Formatting.IncludeTimestamp {
		// Local time with explicit UTC offset.
		embed.Timestamp = now.Format("2006-01-02T15:04:05-07:00")
	}

	msg.Embeds = []discordEmbed{embed}
	return msg
}

func encodeMessage(req Request, now time.Time) ([]byte, error) {
	return json.Marshal(buildMessage(req, now))
}

// resolveColor parses a 6-digit hex color and clamps it to the 24-bit
// RGB range; anything invalid falls back to the platform brand color,
// or the neutral default for unknown platforms.
func resolveColor(hex string, p platform.Platform) int {
	fallback := platform.NeutralColor
	if d := platform.DefaultsFor(p); d.ColorHex != "" {
		if v, err := strconv.ParseInt(d.ColorHex, 16, 32); err == nil {
			fallback = int(v)
		}
	}

	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hex == "" {
		return fallback
	}
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil || v < 0 || v > 0xFFFFFF {
		return fallback
	}
	return int(v)
}

func footerText(d platform.Defaults, configName string) string {
	text := "hookrelay"
	if d.DisplayName != "" {
		text = d.DisplayName + " notification relay"
	}
	if strings.TrimSpace(configName) != "" {
		text += " - " + configName
	}
	return text
}

// truncateRunes cuts on rune boundaries; the Discord limits are
// character counts, not bytes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

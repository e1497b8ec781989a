// Package routing holds the user-defined routing configurations: which
// platform to watch, which keywords to filter on, and where and how to
// deliver matches.
package routing

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"hookrelay/internal/platform"
)

// FilterMode selects how a config's keyword list is evaluated.
type FilterMode string

const (
	IncludeAny FilterMode = "INCLUDE_ANY"
	IncludeAll FilterMode = "INCLUDE_ALL"
	ExcludeAny FilterMode = "EXCLUDE_ANY"
	ExcludeAll FilterMode = "EXCLUDE_ALL"
	NoFilter   FilterMode = "NO_FILTER"
)

func validFilterMode(m FilterMode) bool {
	switch m {
	case IncludeAny, IncludeAll, ExcludeAny, ExcludeAll, NoFilter:
		return true
	}
	return false
}

// Config is one routing rule. The JSON field names match the persisted
// form the Android app used, so an exported settings blob loads as-is.
type Config struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Platform   platform.Platform `json:"platform"`
	WebhookURL string            `json:"webhookUrl"`
	Keywords   []string          `json:"keywords"`
	FilterMode FilterMode        `json:"filterMode"`
	Enabled    bool              `json:"isEnabled"`

	// Formatting options for the outgoing webhook message.
	BotName          string `json:"botName"`
	IconURL          string `json:"iconUrl"`
	ColorHex         string `json:"color"` // 6 hex digits, empty = platform default
	IncludeTitle     bool   `json:"includeTitle"`
	IncludeTimestamp bool   `json:"includeTimestamp"`
}

// UnmarshalJSON treats a missing option key as "on". Persisted entries
// from before an option existed carry no key for it, and those configs
// were running with the option enabled.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		Enabled          *bool `json:"isEnabled"`
		IncludeTitle     *bool `json:"includeTitle"`
		IncludeTimestamp *bool `json:"includeTimestamp"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Enabled = aux.Enabled == nil || *aux.Enabled
	c.IncludeTitle = aux.IncludeTitle == nil || *aux.IncludeTitle
	c.IncludeTimestamp = aux.IncludeTimestamp == nil || *aux.IncludeTimestamp
	return nil
}

// normalize repairs fields that older or hand-edited persisted entries
// may carry: missing IDs get a fresh one, unknown platforms fall back
// to Instagram and unknown filter modes to NO_FILTER, mirroring the
// tolerant loader this data format grew up with.
func (c *Config) normalize() {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}
	if p, ok := platform.Parse(string(c.Platform)); ok {
		c.Platform = p
	} else {
		c.Platform = platform.Instagram
	}
	if !validFilterMode(c.FilterMode) {
		c.FilterMode = NoFilter
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
}

// Default returns a new config pre-filled with the platform's defaults.
func Default(p platform.Platform) Config {
	d := platform.DefaultsFor(p)
	return Config{
		ID:               uuid.NewString(),
		Name:             d.DisplayName + " default",
		Platform:         p,
		Keywords:         []string{},
		FilterMode:       IncludeAny,
		Enabled:          true,
		BotName:          d.BotName,
		IconURL:          d.IconURL,
		ColorHex:         d.ColorHex,
		IncludeTitle:     true,
		IncludeTimestamp: true,
	}
}

// webhookPrefixes are the only accepted destinations. Validation runs
// at save time, not delivery time.
var webhookPrefixes = []string{
	"https://discord.com/api/webhooks/",
	"https://discordapp.com/api/webhooks/",
}

// ValidateWebhookURL accepts an empty URL (delivery disabled for the
// config, but the config stays editable) or a URL under one of the
// known webhook prefixes.
func ValidateWebhookURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return true
	}
	for _, p := range webhookPrefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

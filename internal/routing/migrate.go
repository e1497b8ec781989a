package routing

import (
	"context"
	"strings"

	"hookrelay/internal/platform"
	logx "hookrelay/pkg/logx"
)

// Legacy settings keys from the single-webhook-per-platform era. They
// live in the same key-value store the config collection does.
var legacyKeys = map[platform.Platform]struct {
	webhook, botName, iconURL, color, includeTitle string
}{
	platform.Instagram: {
		webhook:      "instagram_webhook_url",
		botName:      "instagram_bot_name",
		iconURL:      "instagram_icon_url",
		color:        "instagram_color",
		includeTitle: "include_instagram_title",
	},
	platform.Twitter: {
		webhook:      "twitter_webhook_url",
		botName:      "twitter_bot_name",
		iconURL:      "twitter_icon_url",
		color:        "twitter_color",
		includeTitle: "include_twitter_title",
	},
}

const legacyKeyTimestamp = "include_timestamp"

// migrateLegacy synthesizes one config per platform that has a
// non-empty legacy webhook. It is only called when the collection is
// empty, so re-running after a user deletes every config re-imports the
// stale legacy settings; that matches the behavior this store replaces
// and is accepted.
func (s *Store) migrateLegacy(ctx context.Context) {
	migrated := 0
	for _, p := range platform.All() {
		keys := legacyKeys[p]
		url, err := s.kv.GetString(ctx, keys.webhook, "")
		if err != nil || strings.TrimSpace(url) == "" {
			continue
		}

		d := platform.DefaultsFor(p)
		c := Default(p)
		c.WebhookURL = url
		c.BotName = getStringOr(ctx, s, keys.botName, d.BotName)
		c.IconURL = getStringOr(ctx, s, keys.iconURL, d.IconURL)
		c.ColorHex = getStringOr(ctx, s, keys.color, d.ColorHex)
		c.IncludeTitle = getBoolOr(ctx, s, keys.includeTitle, true)
		c.IncludeTimestamp = getBoolOr(ctx, s, legacyKeyTimestamp, true)

		s.mu.Lock()
		s.configs = append(s.configs, c)
		err = s.persistLocked(ctx)
		if err != nil {
			s.configs = s.configs[:len(s.configs)-1]
		}
		s.mu.Unlock()
		if err != nil {
			continue
		}
		migrated++
		s.log.Info("migrated legacy webhook settings", logx.String("platform", string(p)))
	}
	if migrated == 0 {
		s.log.Debug("no legacy settings to migrate")
	}
}

func getStringOr(ctx context.Context, s *Store, key, def string) string {
	v, err := s.kv.GetString(ctx, key, def)
	if err != nil || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getBoolOr(ctx context.Context, s *Store, key string, def bool) bool {
	v, err := s.kv.GetBool(ctx, key, def)
	if err != nil {
		return def
	}
	return v
}

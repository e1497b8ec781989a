// Package platform defines the source applications whose notifications
// hookrelay observes, keyed by their fixed Android package identifiers,
// together with the per-platform delivery defaults.
package platform

import "strings"

// Platform identifies one supported source application.
type Platform string

const (
	Instagram Platform = "INSTAGRAM"
	Twitter   Platform = "TWITTER"
)

// Defaults carries the per-platform constants consulted at config
// creation and delivery time. Keeping them in one table avoids the same
// literals being repeated across call sites.
type Defaults struct {
	DisplayName string
	PackageName string
	BotName     string
	IconURL     string
	// ColorHex is the default embed color (6 hex digits, no '#').
	ColorHex string
	// FallbackTitle is used when no author could be extracted and the
	// config asks for a title.
	FallbackTitle string
	// AuthorPrefix is prepended to an extracted author in display
	// labels ("@" on Twitter, nothing on Instagram).
	AuthorPrefix string
}

var table = map[Platform]Defaults{
	Instagram: {
		DisplayName:   "Instagram",
		PackageName:   "com.instagram.android",
		BotName:       "Instagram Bot",
		IconURL:       "https://upload.wikimedia.org/wikipedia/commons/a/a5/Instagram_icon.png",
		ColorHex:      "E4405F",
		FallbackTitle: "📸 Instagram",
		AuthorPrefix:  "",
	},
	Twitter: {
		DisplayName:   "X (Twitter)",
		PackageName:   "com.twitter.android",
		BotName:       "X Bot",
		IconURL:       "https://upload.wikimedia.org/wikipedia/commons/c/ce/X_logo_2023.svg",
		ColorHex:      "1DA1F2",
		FallbackTitle: "🐦 X (Twitter)",
		AuthorPrefix:  "@",
	},
}

// NeutralColor is the embed color fallback when a platform default does
// not apply either (Discord blurple).
const NeutralColor = 0x5865F2

// All returns the supported platforms in a stable order.
func All() []Platform { return []Platform{Instagram, Twitter} }

// DefaultsFor returns the defaults table entry for p.
// The zero Defaults is returned for unknown platforms.
func DefaultsFor(p Platform) Defaults { return table[p] }

// Valid reports whether p names a supported platform.
func Valid(p Platform) bool {
	_, ok := table[p]
	return ok
}

// Parse maps a stored platform name to a Platform, case-insensitively.
func Parse(s string) (Platform, bool) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if Valid(p) {
		return p, true
	}
	return "", false
}

// FromPackage resolves an Android package identifier to its platform.
// Unknown packages return ok=false; that is the expected outcome for
// the vast majority of device notifications.
func FromPackage(pkg string) (Platform, bool) {
	for p, d := range table {
		if d.PackageName == pkg {
			return p, true
		}
	}
	return "", false
}

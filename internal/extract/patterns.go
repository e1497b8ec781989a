package extract

import (
	"fmt"
	"regexp"

	"hookrelay/internal/platform"
)

// rule pairs a compiled pattern with its scan mode. Patterns are
// ordered most-specific first; generic first-token fallbacks come last.
type rule struct {
	re *regexp.Regexp
	// all scans every match in the source (used where the author may
	// appear anywhere, e.g. "@name" mid-sentence) instead of only the
	// first.
	all bool
}

// profile bundles the heuristics of one platform: the ordered pattern
// cascade, the text-source priority, the username validator, and the
// label templates stripped from the body when an author was found.
type profile struct {
	patterns []rule
	sources  func(f Fields) []string
	valid    func(string) bool
	// labels are regexp templates; %s is replaced with the quoted
	// author. The first matching label prefix is removed from the body.
	labels []string
}

var profiles = map[platform.Platform]profile{
	platform.Instagram: {
		patterns: []rule{
			// "username 張貼了" (posted)
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]+)\s*張貼了`)},
			// "username 的直播視訊開始了" (went live)
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]+)\s*的直播視訊開始了`)},
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]+)\s*posted`)},
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]+)\s*is live`)},
			// leading token followed by whitespace
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]+)\s`)},
			// anything that looks like a full-field username
			{re: regexp.MustCompile(`^([a-zA-Z0-9_.]{1,30})(?:\s|$)`)},
		},
		sources: func(f Fields) []string { return []string{f.BigText, f.Text, f.Title, f.SubText} },
		valid:   validInstagramUsername,
		labels: []string{
			`^%s\s*張貼了\s*`,
			`^%s\s*的直播視訊開始了\s*`,
			`^%s\s+posted\s+`,
			`^%s\s+is live\b\s*`,
			`^@?%s\s*[:：]\s*`,
			`^@?%s\s+`,
		},
	},
	platform.Twitter: {
		patterns: []rule{
			// "@username 發布了 / posted / replied ..."
			{re: regexp.MustCompile(`@([a-zA-Z0-9_]+)\s*(?:發布了|發佈了|posted|tweeted|說|replied|回覆)`), all: true},
			// "@username:" with either colon width
			{re: regexp.MustCompile(`@([a-zA-Z0-9_]+)\s*[:：]`), all: true},
			{re: regexp.MustCompile(`^@([a-zA-Z0-9_]+)(?:\s|$)`)},
			// bare "username 發布了" without the @
			{re: regexp.MustCompile(`^([a-zA-Z0-9_]+)\s*(?:發布了|發佈了|posted|tweeted)`)},
			// any "@username" wherever it appears
			{re: regexp.MustCompile(`@([a-zA-Z0-9_]+)`), all: true},
			{re: regexp.MustCompile(`來自\s*@?([a-zA-Z0-9_]+)`), all: true},
			{re: regexp.MustCompile(`From\s*@?([a-zA-Z0-9_]+)`), all: true},
			// last resort: a token of plausible handle length
			{re: regexp.MustCompile(`([a-zA-Z0-9_]{3,15})`), all: true},
		},
		sources: func(f Fields) []string { return []string{f.Title, f.BigText, f.Text, f.SubText} },
		valid:   validTwitterUsername,
		labels: []string{
			`^@?%s\s*[:：]\s*`,
			`^@?%s\s*(?:發布了|發佈了)\s*`,
			`^@?%s\s+(?:posted|tweeted)\s+`,
			`^@?%s\s+`,
			`^@?%s$`,
		},
	},
}

// stripAuthorLabel removes the first matching author label prefix from
// the body. The author is regexp-quoted, so arbitrary extracted text
// can never break the template.
func stripAuthorLabel(pr profile, author, body string) string {
	quoted := regexp.QuoteMeta(author)
	for _, tpl := range pr.labels {
		re, err := regexp.Compile(fmt.Sprintf(tpl, quoted))
		if err != nil {
			continue
		}
		if loc := re.FindStringIndex(body); loc != nil {
			return body[loc[1]:]
		}
	}
	return body
}

// Package extract turns raw notification text fields into an
// (author, body) pair using per-platform heuristic regex cascades.
//
// The heuristics are best-effort by design: notification text formats
// are unstable across app versions and locales, so extraction never
// fails. When no pattern matches, the author comes back empty and the
// body is assembled from whatever text is available.
package extract

import (
	"strings"

	"hookrelay/internal/platform"
)

// Fields holds the raw text of one notification, as delivered by the
// notification listener on the device.
type Fields struct {
	Title   string
	Text    string
	BigText string
	SubText string
}

// Result is the extracted content. Author may be empty; an empty Body
// means the notification carried nothing worth forwarding.
type Result struct {
	Author string
	Body   string
}

// Extract runs the platform's pattern cascade over the notification
// fields. It is total: any input (including empty or malformed text)
// yields a well-formed Result.
func Extract(p platform.Platform, f Fields) Result {
	prof, ok := profiles[p]
	if !ok {
		return Result{Body: bestBody(f)}
	}

	author := prof.findAuthor(f)
	body := cleanBody(prof, author, f)
	return Result{Author: author, Body: body}
}

// findAuthor walks the candidate text sources in the profile's priority
// order, applying each pattern in order of specificity. The first
// capture that passes username validation wins; the search is
// deterministic and short-circuiting.
func (pr profile) findAuthor(f Fields) string {
	for _, source := range pr.sources(f) {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		for _, rule := range pr.patterns {
			if rule.all {
				for _, m := range rule.re.FindAllStringSubmatch(source, -1) {
					if len(m) > 1 && pr.valid(m[1]) {
						return m[1]
					}
				}
				continue
			}
			if m := rule.re.FindStringSubmatch(source); len(m) > 1 && pr.valid(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}

// cleanBody builds the forwarded body: big text first, plain text as
// fallback, with any leading author label stripped and a distinct
// subtext appended as a trailing line.
func cleanBody(pr profile, author string, f Fields) string {
	body := f.BigText
	if body == "" {
		body = f.Text
	}
	body = strings.TrimSpace(body)

	if author != "" {
		body = stripAuthorLabel(pr, author, body)
	}

	sub := strings.TrimSpace(f.SubText)
	if sub != "" && sub != f.Title && sub != f.Text && sub != f.BigText {
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		body += sub
	}
	return strings.TrimSpace(body)
}

func bestBody(f Fields) string {
	body := f.BigText
	if body == "" {
		body = f.Text
	}
	return strings.TrimSpace(body)
}

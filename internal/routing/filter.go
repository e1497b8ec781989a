package routing

import "strings"

// Matches evaluates the config's keyword predicate against content.
// Matching is case-insensitive substring containment.
//
// An empty keyword list (also after dropping blank entries) or
// NO_FILTER always matches; the permissive default means a config with
// no usable filter forwards everything.
func (c Config) Matches(content string) bool {
	if len(c.Keywords) == 0 || c.FilterMode == NoFilter {
		return true
	}

	contentLower := strings.ToLower(content)
	keywords := make([]string, 0, len(c.Keywords))
	for _, k := range c.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return true
	}

	contains := func(k string) bool { return strings.Contains(contentLower, k) }

	switch c.FilterMode {
	case IncludeAny:
		for _, k := range keywords {
			if contains(k) {
				return true
			}
		}
		return false
	case IncludeAll:
		for _, k := range keywords {
			if !contains(k) {
				return false
			}
		}
		return true
	case ExcludeAny:
		for _, k := range keywords {
			if contains(k) {
				return false
			}
		}
		return true
	case ExcludeAll:
		// True unless every keyword is present.
		for _, k := range keywords {
			if !contains(k) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

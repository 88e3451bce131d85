package keywords

import (
	"strings"
	"unicode/utf8"

	"cofind/internal/lexicon"
)

// Matcher decides whether a piece of review text backs the requested
// preferences. Ordinary keywords match as case-insensitive substrings. The
// prayer-room concept only matches one of its literal phrases.
type Matcher struct {
	general []string
	prayer  []string
}

func NewMatcher(lx *lexicon.Lexicon, expanded []string) Matcher {
	var m Matcher
	prayerRequested := false
	seen := make(map[string]struct{}, len(expanded))
	for _, raw := range expanded {
		kw := lexicon.Normalize(raw)
		if kw == "" {
			continue
		}
		if lx.IsPrayerRoom(kw) {
			prayerRequested = true
			continue
		}
		if utf8.RuneCountInString(kw) < minMatchLen {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		m.general = append(m.general, kw)
	}
	if prayerRequested {
		m.prayer = lx.PrayerRoom()
	}
	return m
}

// Empty reports whether there is nothing to validate against.
func (m Matcher) Empty() bool {
	return len(m.general) == 0 && len(m.prayer) == 0
}

func (m Matcher) Match(text string) bool {
	_, ok := m.MatchedKeyword(text)
	return ok
}

// MatchedKeyword returns the first keyword found in text.
func (m Matcher) MatchedKeyword(text string) (string, bool) {
	if text == "" || m.Empty() {
		return "", false
	}
	t := lexicon.Normalize(text)
	for _, p := range m.prayer {
		if strings.Contains(t, p) {
			return p, true
		}
	}
	for _, kw := range m.general {
		if strings.Contains(t, kw) {
			return kw, true
		}
	}
	return "", false
}

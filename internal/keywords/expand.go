package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"cofind/internal/lexicon"
)

// minMatchLen is the shortest keyword that takes part in loose substring
// matching, both for synonym-key lookup and against review text.
const minMatchLen = 3

type Expander struct {
	lx *lexicon.Lexicon
}

func NewExpander(lx *lexicon.Lexicon) *Expander {
	return &Expander{lx: lx}
}

// Expand returns the keywords together with their synonyms, plus the gaming
// facility bundle when any keyword is about gaming. The result is a sorted,
// deduplicated superset of the input.
func (e *Expander) Expand(keywords []string) []string {
	set := make(map[string]struct{}, len(keywords)*4)
	norm := make([]string, 0, len(keywords))
	for _, raw := range keywords {
		kw := lexicon.Normalize(raw)
		if kw == "" {
			continue
		}
		norm = append(norm, kw)
		set[kw] = struct{}{}
		for _, syn := range e.synonymsFor(kw) {
			set[syn] = struct{}{}
		}
	}

	if e.mentionsGaming(norm) {
		for _, f := range e.lx.GamingFacilities() {
			set[f] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// synonymsFor tries an exact table hit first, then the longest table key that
// contains or is contained in the keyword.
func (e *Expander) synonymsFor(kw string) []string {
	if syns, ok := e.lx.Synonyms(kw); ok {
		return syns
	}
	if utf8.RuneCountInString(kw) < minMatchLen {
		return nil
	}
	best := ""
	for _, key := range e.lx.Keys() {
		if utf8.RuneCountInString(key) < minMatchLen {
			continue
		}
		if !strings.Contains(kw, key) && !strings.Contains(key, kw) {
			continue
		}
		if len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil
	}
	syns, _ := e.lx.Synonyms(best)
	return append([]string{best}, syns...)
}

func (e *Expander) mentionsGaming(keywords []string) bool {
	joined := strings.Join(keywords, " ")
	for _, term := range e.lx.GamingTerms() {
		if strings.Contains(joined, term) {
			return true
		}
		for _, kw := range keywords {
			if strings.Contains(kw, term) {
				return true
			}
		}
	}
	return false
}

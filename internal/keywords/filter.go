// Package keywords turns user preference text into the keyword set used to
// select and verify coffee-shop recommendations.
package keywords

import (
	"strings"

	"cofind/internal/lexicon"
)

// Filter separates on-topic keywords from ones naming off-topic things
// (animals, vehicles, celestial objects, ...).
type Filter struct {
	deny []string
}

func NewFilter(lx *lexicon.Lexicon) *Filter {
	return &Filter{deny: lx.Denylist()}
}

// Apply classifies each keyword. A keyword is removed when it contains, or is
// contained in, a denylist term. Order is preserved; empty keywords vanish.
func (f *Filter) Apply(keywords []string) (relevant, removed []string) {
	relevant = make([]string, 0, len(keywords))
	for _, raw := range keywords {
		kw := lexicon.Normalize(raw)
		if kw == "" {
			continue
		}
		if f.isIrrelevant(kw) {
			removed = append(removed, kw)
			continue
		}
		relevant = append(relevant, kw)
	}
	return relevant, removed
}

func (f *Filter) isIrrelevant(kw string) bool {
	for _, term := range f.deny {
		if strings.Contains(kw, term) || strings.Contains(term, kw) {
			return true
		}
	}
	return false
}

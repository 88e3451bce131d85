// Package recommend assembles grounded coffee-shop recommendations: it picks
// candidate shops, renders them for the model, builds the prompts and checks
// the model's answer against real review text.
package recommend

import (
	"sort"

	"cofind/internal/domain"
	"cofind/internal/keywords"
)

// Candidate is a shop picked for the current request with the reviews that
// made it relevant (empty for filler shops).
type Candidate struct {
	Shop           domain.Shop
	MatchedReviews []domain.Review
}

// SelectCandidates puts every shop with a matching review first, then fills up
// to maxShops with the best-ranked remaining shops. Relevant shops are never
// truncated, even past maxShops.
func SelectCandidates(shops []domain.Shop, reviews map[string][]domain.Review, m keywords.Matcher, maxShops int) []Candidate {
	var relevant, other []Candidate
	for _, s := range shops {
		c := Candidate{Shop: s}
		if !m.Empty() {
			for _, r := range reviews[s.PlaceID] {
				if m.Match(r.Text) {
					c.MatchedReviews = append(c.MatchedReviews, r)
				}
			}
		}
		if len(c.MatchedReviews) > 0 {
			relevant = append(relevant, c)
		} else {
			other = append(other, c)
		}
	}
	sortByRank(relevant)
	sortByRank(other)

	fill := maxShops - len(relevant)
	if fill < 0 {
		fill = 0
	}
	if fill > len(other) {
		fill = len(other)
	}
	out := make([]Candidate, 0, len(relevant)+fill)
	out = append(out, relevant...)
	return append(out, other[:fill]...)
}

// Select is SelectCandidates without the matched reviews.
func Select(shops []domain.Shop, reviews map[string][]domain.Review, m keywords.Matcher, maxShops int) []domain.Shop {
	cands := SelectCandidates(shops, reviews, m, maxShops)
	out := make([]domain.Shop, len(cands))
	for i, c := range cands {
		out[i] = c.Shop
	}
	return out
}

// rating desc, then review count desc; unknown values rank as 0.
func sortByRank(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].Shop, cs[j].Shop
		if a.RatingOr0() != b.RatingOr0() {
			return a.RatingOr0() > b.RatingOr0()
		}
		return a.ReviewCountOr0() > b.ReviewCountOr0()
	})
}

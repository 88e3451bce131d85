package recommend

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"cofind/internal/domain"
)

const (
	maxContextReviews = 3
	minReviewRunes    = 20
	maxReviewRunes    = 150
)

// MapsURL links a place on Google Maps by its place_id.
func MapsURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(placeID)
}

// FormatContext renders shops and a few of their reviews as plain text for the
// prompt. Output is deterministic for a given input.
func FormatContext(shops []domain.Shop, reviews map[string][]domain.Review, location string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data coffee shop di %s (%d tempat):\n", location, len(shops))

	for i, s := range shops {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "   Rating: %s (%d ulasan)\n", formatRating(s.Rating), s.ReviewCountOr0())
		if s.Address != "" {
			fmt.Fprintf(&b, "   Alamat: %s\n", s.Address)
		}
		fmt.Fprintf(&b, "   Google Maps: %s\n", MapsURL(s.PlaceID))

		written := 0
		for _, r := range reviews[s.PlaceID] {
			if written == maxContextReviews {
				break
			}
			text := oneLine(r.Text)
			if utf8.RuneCountInString(text) < minReviewRunes {
				continue
			}
			if written == 0 {
				b.WriteString("   Ulasan:\n")
			}
			fmt.Fprintf(&b, "   - \"%s\" - %s (Rating %d/5)\n", truncateRunes(text, maxReviewRunes), authorOrAnon(r.AuthorName), r.Rating)
			written++
		}
	}
	return b.String()
}

func formatRating(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f/5.0", *r)
}

func authorOrAnon(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Anonim"
	}
	return strings.TrimSpace(name)
}

// oneLine collapses whitespace so a review never breaks the line format.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

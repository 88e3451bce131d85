package app

import (
	"strconv"
	"strings"
	"time"

	"cofind/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Legacy Places responses use snake_case; the newer API and hand-made
// snapshots use other spellings.
var shopAliases = map[string][]string{
	"place_id": {"place_id", "placeId", "id"},
	"name":     {"name", "displayName.text", "display_name"},
	"address":  {"formatted_address", "formattedAddress", "address", "vicinity", "shortFormattedAddress"},
	"rating":   {"rating"},
	"total":    {"user_ratings_total", "userRatingCount", "reviews_count", "reviews"},
}

var reviewAliases = map[string][]string{
	"author": {"author_name", "authorAttribution.displayName", "author", "name"},
	"text":   {"text", "text.text", "originalText.text", "comment", "review"},
	"rating": {"rating", "score"},
	"time":   {"time", "publishTime", "created_at"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstTimeFlexible: unix seconds or an RFC 3339 string.
func firstTimeFlexible(m map[string]any, paths ...string) time.Time {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if v > 0 {
				return time.Unix(int64(v), 0).UTC()
			}
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

/********** shop mapper **********/

// mapShop reports false when the payload has no usable place id; the other
// fields are filled either way.
func mapShop(p map[string]any) (domain.Shop, bool) {
	s := domain.Shop{
		PlaceID: firstNonEmptyAlias(p, shopAliases, "place_id"),
		Name:    firstNonEmptyAlias(p, shopAliases, "name"),
		Address: firstNonEmptyAlias(p, shopAliases, "address"),
		Rating:  getFloatFlexible(p, shopAliases["rating"]...),
	}
	if n := firstInt64Flexible(p, shopAliases["total"]...); n != nil {
		x := int(*n)
		s.UserRatingsTotal = &x
	}
	return s, s.PlaceID != ""
}

/********** reviews mapper **********/

// reviewPayloads pulls the embedded review list out of a details payload.
func reviewPayloads(details map[string]any) []map[string]any {
	raw, _ := details["reviews"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// mapReviews keeps only reviews with text: a bare star rating cannot back a
// recommendation.
func mapReviews(placeID string, in []map[string]any) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		text := firstNonEmptyAlias(r, reviewAliases, "text")
		if text == "" {
			continue
		}
		rv := domain.Review{
			PlaceID:    placeID,
			AuthorName: firstNonEmptyAlias(r, reviewAliases, "author"),
			Text:       text,
			Source:     domain.ReviewSourceGoogle,
			CreatedAt:  firstTimeFlexible(r, reviewAliases["time"]...),
		}
		if f := getFloatFlexible(r, reviewAliases["rating"]...); f != nil {
			rv.Rating = domain.ReviewRating(*f)
		}
		out = append(out, rv)
	}
	return out
}

package domain

import (
	"math"
	"time"
)

const (
	ReviewSourceGoogle = "google"
	ReviewSourceUser   = "user"
)

type Review struct {
	ID         int64     `json:"id,omitempty"`
	PlaceID    string    `json:"place_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	Source     string    `json:"source,omitempty"`
	UserID     *string   `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// ReviewRating rounds a source rating to a whole star count within 0..5.
func ReviewRating(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(5, f))))
}

// ReviewPatch carries the fields of a review edit; nil leaves a field as is.
type ReviewPatch struct {
	Rating *int
	Text   *string
}

type ReviewLike struct {
	ReviewID  int64 `json:"review_id"`
	Liked     bool  `json:"liked"`
	LikeCount int   `json:"like_count"`
}

// RatingSummary is the mean star rating over every stored review of a shop,
// rounded to two decimals. Average is 0 when Count is 0.
type RatingSummary struct {
	PlaceID     string  `json:"place_id"`
	Average     float64 `json:"average_rating"`
	ReviewCount int     `json:"review_count"`
}

package domain

import "time"

// Shop is a coffee shop as known to the store or the Places API.
// Rating and UserRatingsTotal are absent for places without public ratings.
type Shop struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	Address          string   `json:"address"`
}

func (s Shop) RatingOr0() float64 {
	if s.Rating == nil {
		return 0
	}
	return *s.Rating
}

func (s Shop) ReviewCountOr0() int {
	if s.UserRatingsTotal == nil {
		return 0
	}
	return *s.UserRatingsTotal
}

// Snapshot is a read-only view of shops and their reviews for one location.
// It is built once per request (or loaded from an immutable file) and never mutated.
type Snapshot struct {
	Location string              `json:"location"`
	Shops    []Shop              `json:"shops"`
	Reviews  map[string][]Review `json:"reviews"`
}

// Favorite is a saved shop. The want-to-visit list uses the same shape.
type Favorite struct {
	UserID  string    `json:"user_id"`
	PlaceID string    `json:"place_id"`
	AddedAt time.Time `json:"added_at"`
}

type ShopDetail struct {
	Shop    Shop     `json:"shop"`
	Reviews []Review `json:"reviews"`
}

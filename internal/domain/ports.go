package domain

import "context"

type ShopRepository interface {
	// Write paths
	UpsertShop(ctx context.Context, s Shop) error
	UpsertReviews(ctx context.Context, placeID string, rs []Review) error
	LogMiss(ctx context.Context, key string, status int, reason string) error

	// Read paths
	GetShop(ctx context.Context, placeID string) (Shop, error)
	ListShops(ctx context.Context, limit int) ([]Shop, error)
	ListReviews(ctx context.Context, placeID string, limit int) ([]Review, error)
	AverageRating(ctx context.Context, placeID string) (RatingSummary, error)
}

// UserContentRepository holds what users write through the API.
// Review edits are owner-checked: an unknown id is ErrNotFound, someone
// else's review is ErrForbidden.
type UserContentRepository interface {
	AddUserReview(ctx context.Context, r Review) (int64, error)
	UpdateUserReview(ctx context.Context, id int64, userID string, patch ReviewPatch) (Review, error)
	DeleteUserReview(ctx context.Context, id int64, userID string) (Review, error)
	ListUserReviews(ctx context.Context, userID string, limit int) ([]Review, error)
	ToggleReviewLike(ctx context.Context, userID string, reviewID int64) (ReviewLike, error)

	AddFavorite(ctx context.Context, userID, placeID string) error
	RemoveFavorite(ctx context.Context, userID, placeID string) error
	ListFavorites(ctx context.Context, userID string) ([]Favorite, error)

	AddWantToVisit(ctx context.Context, userID, placeID string) error
	RemoveWantToVisit(ctx context.Context, userID, placeID string) error
	ListWantToVisit(ctx context.Context, userID string) ([]Favorite, error)
	IsWantToVisit(ctx context.Context, userID, placeID string) (bool, error)
}

// ShopSource is the read-only lookup consumed by the recommendation pipeline.
type ShopSource interface {
	Snapshot(ctx context.Context, location string) (Snapshot, error)
}

type PlacesClient interface {
	TextSearch(ctx context.Context, query string) ([]map[string]any, error)
	Details(ctx context.Context, placeID string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generator is the text-completion capability.
type Generator interface {
	Generate(ctx context.Context, req CompletionRequest) (string, error)
}

// KeywordExtractor turns free-form text into preference keywords.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cofind/internal/domain"
)

const (
	DefaultListLimit    = 50
	DefaultReviewsLimit = 50
	MaxLimit            = 200
)

// Cache keys. Writers invalidate through the same helpers.
func shopKey(placeID string) string               { return "shop:" + placeID }
func detailKey(placeID string) string             { return "detail:" + placeID }
func shopsKey(limit int) string                   { return fmt.Sprintf("shops:%d", limit) }
func reviewsKey(placeID string, limit int) string { return fmt.Sprintf("reviews:%s:%d", placeID, limit) }
func ratingKey(placeID string) string             { return "rating:" + placeID }

// ClampLimit maps a requested page size into [1, MaxLimit].
func ClampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

type QueryService struct {
	repo     domain.ShopRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ShopRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetShop(ctx context.Context, placeID string) (domain.Shop, error) {
	key := shopKey(placeID)
	var sh domain.Shop
	if ok, _ := s.cache.Get(ctx, key, &sh); ok {
		return sh, nil
	}
	sh, err := s.repo.GetShop(ctx, placeID)
	if err != nil {
		return domain.Shop{}, err
	}
	_ = s.cache.Set(ctx, key, sh, int(s.cacheTTL.Seconds()))
	return sh, nil
}

func (s *QueryService) ListShops(ctx context.Context, limit int) ([]domain.Shop, error) {
	limit = ClampLimit(limit, DefaultListLimit)
	key := shopsKey(limit)
	var out []domain.Shop
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	shops, err := s.repo.ListShops(ctx, limit)
	if err != nil {
		return nil, err
	}
	out = append([]domain.Shop{}, shops...)
	s.setBounded(ctx, key, out)
	return out, nil
}

func (s *QueryService) ListReviews(ctx context.Context, placeID string, limit int) ([]domain.Review, error) {
	limit = ClampLimit(limit, DefaultReviewsLimit)
	key := reviewsKey(placeID, limit)
	var out []domain.Review
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	// 404 for unknown shops rather than an empty list.
	if _, err := s.GetShop(ctx, placeID); err != nil {
		return nil, err
	}
	rs, err := s.repo.ListReviews(ctx, placeID, limit)
	if err != nil {
		return nil, err
	}
	// copy slice to avoid aliasing the repo's backing array
	out = append([]domain.Review{}, rs...)
	s.setBounded(ctx, key, out)
	return out, nil
}

// AverageRating summarizes every stored review of a known shop.
func (s *QueryService) AverageRating(ctx context.Context, placeID string) (domain.RatingSummary, error) {
	key := ratingKey(placeID)
	var sum domain.RatingSummary
	if ok, _ := s.cache.Get(ctx, key, &sum); ok {
		return sum, nil
	}
	if _, err := s.GetShop(ctx, placeID); err != nil {
		return domain.RatingSummary{}, err
	}
	sum, err := s.repo.AverageRating(ctx, placeID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	_ = s.cache.Set(ctx, key, sum, int(s.cacheTTL.Seconds()))
	return sum, nil
}

// ShopDetail is a shop with its most recent reviews.
func (s *QueryService) ShopDetail(ctx context.Context, placeID string) (domain.ShopDetail, error) {
	key := detailKey(placeID)
	var d domain.ShopDetail
	if ok, _ := s.cache.Get(ctx, key, &d); ok {
		return d, nil
	}
	sh, err := s.repo.GetShop(ctx, placeID)
	if err != nil {
		return domain.ShopDetail{}, err
	}
	rs, err := s.repo.ListReviews(ctx, placeID, DefaultReviewsLimit)
	if err != nil {
		return domain.ShopDetail{}, err
	}
	d = domain.ShopDetail{Shop: sh, Reviews: append([]domain.Review{}, rs...)}
	s.setBounded(ctx, key, d)
	return d, nil
}

// setBounded skips caching oversized values.
func (s *QueryService) setBounded(ctx context.Context, key string, v any) {
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}

// invalidateShop drops every cached read that includes placeID.
func invalidateShop(ctx context.Context, c domain.Cache, placeID string) {
	if c == nil {
		return
	}
	_ = c.Del(ctx, shopKey(placeID))
	_ = c.Del(ctx, detailKey(placeID))
	invalidateReviews(ctx, c, placeID)
	// The list endpoint's default and max page sizes cover nearly all reads.
	for _, lim := range []int{DefaultListLimit, MaxLimit} {
		_ = c.Del(ctx, shopsKey(lim))
	}
}

func invalidateReviews(ctx context.Context, c domain.Cache, placeID string) {
	if c == nil {
		return
	}
	_ = c.Del(ctx, detailKey(placeID))
	_ = c.Del(ctx, ratingKey(placeID))
	for _, lim := range []int{DefaultReviewsLimit, 10, 20, 100, MaxLimit} {
		_ = c.Del(ctx, reviewsKey(placeID, lim))
	}
}

package app_test

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"cofind/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu       sync.Mutex
	shops    map[string]domain.Shop
	reviews  map[string][]domain.Review
	misses   map[string]int
	favs     map[string][]string
	want     map[string][]string
	likes    map[int64]map[string]bool
	userRevs []domain.Review
	reads    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		shops:   map[string]domain.Shop{},
		reviews: map[string][]domain.Review{},
		misses:  map[string]int{},
		favs:    map[string][]string{},
		want:    map[string][]string{},
		likes:   map[int64]map[string]bool{},
	}
}

func (f *fakeRepo) UpsertShop(ctx context.Context, s domain.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shops[s.PlaceID] = s
	return nil
}
func (f *fakeRepo) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews[placeID] = rs
	return nil
}
func (f *fakeRepo) LogMiss(ctx context.Context, key string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses[key] = status
	return nil
}
func (f *fakeRepo) GetShop(ctx context.Context, placeID string) (domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	s, ok := f.shops[placeID]
	if !ok {
		return domain.Shop{}, domain.ErrNotFound
	}
	return s, nil
}
func (f *fakeRepo) ListShops(ctx context.Context, limit int) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	var out []domain.Shop
	for _, s := range f.shops {
		if len(out) == limit {
			break
		}
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeRepo) ListReviews(ctx context.Context, placeID string, limit int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	rs := f.reviews[placeID]
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, nil
}

func (f *fakeRepo) AddUserReview(ctx context.Context, r domain.Review) (int64, error) {
	for _, ex := range f.userRevs {
		if ex.PlaceID == r.PlaceID && *ex.UserID == *r.UserID {
			return 0, domain.ErrAlreadyExists
		}
	}
	r.ID = int64(len(f.userRevs) + 1)
	f.userRevs = append(f.userRevs, r)
	return r.ID, nil
}
func (f *fakeRepo) AverageRating(ctx context.Context, placeID string) (domain.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	sum, n := 0, 0
	for _, r := range f.reviews[placeID] {
		sum += r.Rating
		n++
	}
	for _, r := range f.userRevs {
		if r.ID > 0 && r.PlaceID == placeID {
			sum += r.Rating
			n++
		}
	}
	out := domain.RatingSummary{PlaceID: placeID, ReviewCount: n}
	if n > 0 {
		out.Average = math.Round(float64(sum)/float64(n)*100) / 100
	}
	return out, nil
}

// ownedReview returns the index of user review id, enforcing ownership.
func (f *fakeRepo) ownedReview(id int64, userID string) (int, error) {
	for i, r := range f.userRevs {
		if r.ID != id {
			continue
		}
		if r.UserID == nil || *r.UserID != userID {
			return -1, domain.ErrForbidden
		}
		return i, nil
	}
	return -1, domain.ErrNotFound
}
func (f *fakeRepo) UpdateUserReview(ctx context.Context, id int64, userID string, p domain.ReviewPatch) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.ownedReview(id, userID)
	if err != nil {
		return domain.Review{}, err
	}
	if p.Rating != nil {
		f.userRevs[i].Rating = *p.Rating
	}
	if p.Text != nil {
		f.userRevs[i].Text = *p.Text
	}
	return f.userRevs[i], nil
}
func (f *fakeRepo) DeleteUserReview(ctx context.Context, id int64, userID string) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.ownedReview(id, userID)
	if err != nil {
		return domain.Review{}, err
	}
	rv := f.userRevs[i]
	f.userRevs[i].ID = -1 // keeps later ids unique
	return rv, nil
}
func (f *fakeRepo) ListUserReviews(ctx context.Context, userID string, limit int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.userRevs {
		if r.ID > 0 && r.UserID != nil && *r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeRepo) ToggleReviewLike(ctx context.Context, userID string, reviewID int64) (domain.ReviewLike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reviewID < 1 || reviewID > int64(len(f.userRevs)) || f.userRevs[reviewID-1].ID < 0 {
		return domain.ReviewLike{}, domain.ErrNotFound
	}
	if f.likes[reviewID] == nil {
		f.likes[reviewID] = map[string]bool{}
	}
	liked := !f.likes[reviewID][userID]
	if liked {
		f.likes[reviewID][userID] = true
	} else {
		delete(f.likes[reviewID], userID)
	}
	return domain.ReviewLike{ReviewID: reviewID, Liked: liked, LikeCount: len(f.likes[reviewID])}, nil
}
func (f *fakeRepo) AddFavorite(ctx context.Context, userID, placeID string) error {
	f.favs[userID] = append(f.favs[userID], placeID)
	return nil
}
func (f *fakeRepo) RemoveFavorite(ctx context.Context, userID, placeID string) error {
	return domain.ErrNotFound
}
func (f *fakeRepo) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var out []domain.Favorite
	for _, pid := range f.favs[userID] {
		out = append(out, domain.Favorite{UserID: userID, PlaceID: pid})
	}
	return out, nil
}

func (f *fakeRepo) AddWantToVisit(ctx context.Context, userID, placeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pid := range f.want[userID] {
		if pid == placeID {
			return domain.ErrAlreadyExists
		}
	}
	f.want[userID] = append(f.want[userID], placeID)
	return nil
}
func (f *fakeRepo) RemoveWantToVisit(ctx context.Context, userID, placeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, pid := range f.want[userID] {
		if pid == placeID {
			f.want[userID] = append(f.want[userID][:i], f.want[userID][i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}
func (f *fakeRepo) ListWantToVisit(ctx context.Context, userID string) ([]domain.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Favorite
	for _, pid := range f.want[userID] {
		out = append(out, domain.Favorite{UserID: userID, PlaceID: pid})
	}
	return out, nil
}
func (f *fakeRepo) IsWantToVisit(ctx context.Context, userID, placeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pid := range f.want[userID] {
		if pid == placeID {
			return true, nil
		}
	}
	return false, nil
}

// fakeCache round-trips through JSON like the Redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type fakePlaces struct {
	mu        sync.Mutex
	search    []map[string]any
	searchErr error
	details   map[string]map[string]any
	detailErr map[string]error
	calls     int
}

func (p *fakePlaces) TextSearch(ctx context.Context, query string) ([]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.search, p.searchErr
}
func (p *fakePlaces) Details(ctx context.Context, placeID string) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := p.detailErr[placeID]; err != nil {
		return nil, err
	}
	d, ok := p.details[placeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func pfloat(f float64) *float64 { return &f }
func pint(i int) *int           { return &i }

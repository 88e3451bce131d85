package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"cofind/internal/adapters/observability"
	"cofind/internal/domain"
)

// SearchQuery is the Places text query used to discover shops in a city.
func SearchQuery(location string) string {
	return "coffee shop in " + strings.TrimSpace(location)
}

type IngestionService struct {
	places domain.PlacesClient
	repo   domain.ShopRepository
	cache  domain.Cache
}

func NewIngestionService(p domain.PlacesClient, r domain.ShopRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{places: p, repo: r, cache: cache}
}

// DiscoverLocation searches for coffee shops in location, stores the basic
// shop rows and returns their place ids for detail ingestion.
func (s *IngestionService) DiscoverLocation(ctx context.Context, location string) ([]string, error) {
	results, err := s.places.TextSearch(ctx, SearchQuery(location))
	if err != nil {
		if isMiss(err) {
			_ = s.repo.LogMiss(ctx, "search:"+location, missStatus(err), err.Error())
			return nil, nil
		}
		return nil, fmt.Errorf("search %q: %w", location, err)
	}

	ids := make([]string, 0, len(results))
	for _, p := range results {
		sh, ok := mapShop(p)
		if !ok {
			continue
		}
		if err := s.repo.UpsertShop(ctx, sh); err != nil {
			return ids, fmt.Errorf("upsert shop %s: %w", sh.PlaceID, err)
		}
		invalidateShop(ctx, s.cache, sh.PlaceID)
		ids = append(ids, sh.PlaceID)
	}
	return ids, nil
}

// IngestPlace refreshes one shop and its Google reviews from place details.
// Missing or denied places are recorded as misses, not failures.
func (s *IngestionService) IngestPlace(ctx context.Context, placeID string) error {
	outcome, err := s.ingestPlace(ctx, placeID)
	observability.ObserveIngest(outcome)
	return err
}

func (s *IngestionService) ingestPlace(ctx context.Context, placeID string) (string, error) {
	d, err := s.places.Details(ctx, placeID)
	if err != nil {
		if isMiss(err) {
			_ = s.repo.LogMiss(ctx, "details:"+placeID, missStatus(err), err.Error())
			// Evict any stale caches so we don't keep serving an old snapshot.
			invalidateShop(ctx, s.cache, placeID)
			return "miss", nil
		}
		return "failed", err
	}

	sh, _ := mapShop(d)
	sh.PlaceID = placeID
	if sh.Name == "" {
		_ = s.repo.LogMiss(ctx, "details:"+placeID, 422, "no name")
		return "miss", nil
	}
	// Parent upsert first to satisfy FK for reviews.
	if err := s.repo.UpsertShop(ctx, sh); err != nil {
		return "failed", err
	}
	if err := s.repo.UpsertReviews(ctx, placeID, mapReviews(placeID, reviewPayloads(d))); err != nil {
		return "failed", fmt.Errorf("upsert reviews failed for %s: %w", placeID, err)
	}
	invalidateShop(ctx, s.cache, placeID)
	return "ok", nil
}

type IngestStats struct {
	Discovered int
	OK         int // stored or recorded as a miss
	Failed     int
}

// IngestLocation runs discovery, then details for every place found with at
// most workers detail calls in flight. A failing place is logged and counted;
// only discovery errors and cancellation are returned.
func (s *IngestionService) IngestLocation(ctx context.Context, location string, workers int) (IngestStats, error) {
	var st IngestStats
	ids, err := s.DiscoverLocation(ctx, location)
	if err != nil {
		return st, err
	}
	st.Discovered = len(ids)
	if workers <= 0 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg         sync.WaitGroup
		ok, failed atomic.Int64
	)
	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err = sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(placeID string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.IngestPlace(ctx, placeID); err != nil {
				failed.Add(1)
				log.Warn().Str("place_id", placeID).Err(err).Msg("ingest failed")
				return
			}
			ok.Add(1)
			log.Debug().Str("place_id", placeID).Msg("ingest ok")
		}(id)
	}
	wg.Wait()

	st.OK, st.Failed = int(ok.Load()), int(failed.Load())
	if err != nil {
		return st, fmt.Errorf("ingest %q interrupted: %w", location, err)
	}
	return st, nil
}

func isMiss(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || missStatus(err) == 403
}

func missStatus(err error) int {
	if errors.Is(err, domain.ErrNotFound) {
		return 404
	}
	low := strings.ToLower(err.Error())
	if strings.Contains(low, "403") || strings.Contains(low, "forbidden") ||
		strings.Contains(low, "401") || strings.Contains(low, "unauthorized") ||
		strings.Contains(low, "denied") {
		return 403
	}
	return 0
}

/********** user content **********/

const maxReviewTextRunes = 2000

type UserContentService struct {
	shops domain.ShopRepository
	users domain.UserContentRepository
	cache domain.Cache
}

func NewUserContentService(shops domain.ShopRepository, users domain.UserContentRepository, cache domain.Cache) *UserContentService {
	return &UserContentService{shops: shops, users: users, cache: cache}
}

type NewReview struct {
	UserID     string
	AuthorName string
	PlaceID    string
	Rating     int
	Text       string
}

// AddReview stores a user's review. Each user reviews a shop at most once.
func (s *UserContentService) AddReview(ctx context.Context, in NewReview) (domain.Review, error) {
	userID := strings.TrimSpace(in.UserID)
	text := strings.TrimSpace(in.Text)
	switch {
	case userID == "":
		return domain.Review{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	case in.Rating < 1 || in.Rating > 5:
		return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput)
	case text == "":
		return domain.Review{}, fmt.Errorf("%w: review text is required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(text) > maxReviewTextRunes:
		return domain.Review{}, fmt.Errorf("%w: review text is too long", domain.ErrInvalidInput)
	}
	if _, err := s.shops.GetShop(ctx, in.PlaceID); err != nil {
		return domain.Review{}, err
	}

	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = userID
	}
	rv := domain.Review{
		PlaceID:    in.PlaceID,
		AuthorName: author,
		Rating:     in.Rating,
		Text:       text,
		Source:     domain.ReviewSourceUser,
		UserID:     &userID,
		CreatedAt:  time.Now().UTC(),
	}
	id, err := s.users.AddUserReview(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	rv.ID = id
	invalidateReviews(ctx, s.cache, in.PlaceID)
	log.Info().Str("place_id", in.PlaceID).Str("user_id", userID).Int("rating", in.Rating).Msg("user review added")
	return rv, nil
}

// ReviewEdit changes a user's own review. Nil fields stay as stored.
type ReviewEdit struct {
	UserID   string
	ReviewID int64
	Rating   *int
	Text     *string
}

func (s *UserContentService) UpdateReview(ctx context.Context, in ReviewEdit) (domain.Review, error) {
	userID := strings.TrimSpace(in.UserID)
	if err := checkReviewRef(userID, in.ReviewID); err != nil {
		return domain.Review{}, err
	}
	if in.Rating == nil && in.Text == nil {
		return domain.Review{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	var patch domain.ReviewPatch
	if in.Rating != nil {
		if *in.Rating < 1 || *in.Rating > 5 {
			return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput)
		}
		patch.Rating = in.Rating
	}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		switch {
		case text == "":
			return domain.Review{}, fmt.Errorf("%w: review text is required", domain.ErrInvalidInput)
		case utf8.RuneCountInString(text) > maxReviewTextRunes:
			return domain.Review{}, fmt.Errorf("%w: review text is too long", domain.ErrInvalidInput)
		}
		patch.Text = &text
	}

	rv, err := s.users.UpdateUserReview(ctx, in.ReviewID, userID, patch)
	if err != nil {
		return domain.Review{}, err
	}
	invalidateReviews(ctx, s.cache, rv.PlaceID)
	log.Info().Int64("review_id", rv.ID).Str("user_id", userID).Msg("user review updated")
	return rv, nil
}

func (s *UserContentService) DeleteReview(ctx context.Context, userID string, reviewID int64) error {
	userID = strings.TrimSpace(userID)
	if err := checkReviewRef(userID, reviewID); err != nil {
		return err
	}
	rv, err := s.users.DeleteUserReview(ctx, reviewID, userID)
	if err != nil {
		return err
	}
	invalidateReviews(ctx, s.cache, rv.PlaceID)
	log.Info().Int64("review_id", reviewID).Str("place_id", rv.PlaceID).Str("user_id", userID).Msg("user review deleted")
	return nil
}

// ListUserReviews returns what userID wrote, newest first.
func (s *UserContentService) ListUserReviews(ctx context.Context, userID string, limit int) ([]domain.Review, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	rs, err := s.users.ListUserReviews(ctx, userID, ClampLimit(limit, DefaultReviewsLimit))
	if err != nil {
		return nil, err
	}
	return append([]domain.Review{}, rs...), nil
}

func (s *UserContentService) ToggleReviewLike(ctx context.Context, userID string, reviewID int64) (domain.ReviewLike, error) {
	userID = strings.TrimSpace(userID)
	if err := checkReviewRef(userID, reviewID); err != nil {
		return domain.ReviewLike{}, err
	}
	return s.users.ToggleReviewLike(ctx, userID, reviewID)
}

func checkReviewRef(userID string, reviewID int64) error {
	switch {
	case userID == "":
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	case reviewID <= 0:
		return fmt.Errorf("%w: review id must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func (s *UserContentService) AddFavorite(ctx context.Context, userID, placeID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.users.AddFavorite(ctx, userID, placeID)
}

func (s *UserContentService) RemoveFavorite(ctx context.Context, userID, placeID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.users.RemoveFavorite(ctx, userID, placeID)
}

func (s *UserContentService) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	favs, err := s.users.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	return favs, nil
}

// AddWantToVisit lists a shop once; listing it again is ErrAlreadyExists.
func (s *UserContentService) AddWantToVisit(ctx context.Context, userID, placeID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.users.AddWantToVisit(ctx, userID, placeID)
}

func (s *UserContentService) RemoveWantToVisit(ctx context.Context, userID, placeID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.users.RemoveWantToVisit(ctx, userID, placeID)
}

func (s *UserContentService) ListWantToVisit(ctx context.Context, userID string) ([]domain.Favorite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	list, err := s.users.ListWantToVisit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Favorite{}
	}
	return list, nil
}

func (s *UserContentService) IsWantToVisit(ctx context.Context, userID, placeID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.users.IsWantToVisit(ctx, userID, placeID)
}

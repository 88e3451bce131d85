package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"cofind/internal/domain"
	"cofind/internal/lexicon"
)

const (
	defaultDetailWorkers = 4
	maxDetailedShops     = 20
)

// PlacesSource builds snapshots from live Google Places data. Each location's
// snapshot is cached whole; a cached snapshot is never modified.
type PlacesSource struct {
	places   domain.PlacesClient
	cache    domain.Cache
	cacheTTL time.Duration
	workers  int
}

func NewPlacesSource(p domain.PlacesClient, c domain.Cache, ttl time.Duration, workers int) *PlacesSource {
	if workers <= 0 {
		workers = defaultDetailWorkers
	}
	return &PlacesSource{places: p, cache: c, cacheTTL: ttl, workers: workers}
}

func snapshotKey(location string) string {
	return "snapshot:" + strings.ReplaceAll(lexicon.Normalize(location), " ", "_")
}

func (s *PlacesSource) Snapshot(ctx context.Context, location string) (domain.Snapshot, error) {
	key := snapshotKey(location)
	var snap domain.Snapshot
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &snap); ok {
			return snap, nil
		}
	}

	results, err := s.places.TextSearch(ctx, SearchQuery(location))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("places search: %w", err)
	}
	snap = domain.Snapshot{Location: location, Reviews: map[string][]domain.Review{}}
	for _, p := range results {
		if sh, ok := mapShop(p); ok {
			snap.Shops = append(snap.Shops, sh)
		}
	}

	// Reviews only come with place details; fetch them for the first shops.
	detailed := snap.Shops
	if len(detailed) > maxDetailedShops {
		detailed = detailed[:maxDetailedShops]
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, sh := range detailed {
		placeID := sh.PlaceID
		g.Go(func() error {
			d, err := s.places.Details(gctx, placeID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// One bad place should not sink the whole snapshot.
				log.Warn().Err(err).Str("place_id", placeID).Msg("place details failed")
				return nil
			}
			rs := mapReviews(placeID, reviewPayloads(d))
			mu.Lock()
			snap.Reviews[placeID] = rs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, snap, int(s.cacheTTL.Seconds()))
	}
	log.Debug().Str("location", location).Int("shops", len(snap.Shops)).Int("detailed", len(detailed)).Msg("places snapshot built")
	return snap, nil
}

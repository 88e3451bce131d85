// Package jsonstore serves shops and reviews from a pair of JSON snapshot
// files exported from Google Places.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cofind/internal/domain"
)

type placeRecord struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
}

type placesFile struct {
	Places []placeRecord `json:"places"`
	Data   []placeRecord `json:"data"` // older exports
}

type reviewRecord struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
}

type reviewsFile struct {
	ReviewsByPlaceID map[string][]reviewRecord `json:"reviews_by_place_id"`
}

// Store is loaded once and never mutated.
type Store struct {
	shops   []domain.Shop
	reviews map[string][]domain.Review
}

// Open reads both snapshot files. An empty reviewsPath yields a store without
// reviews.
func Open(placesPath, reviewsPath string) (*Store, error) {
	pf, err := os.Open(placesPath)
	if err != nil {
		return nil, fmt.Errorf("open places snapshot: %w", err)
	}
	defer pf.Close()

	var rr io.Reader
	if reviewsPath != "" {
		f, err := os.Open(reviewsPath)
		if err != nil {
			return nil, fmt.Errorf("open reviews snapshot: %w", err)
		}
		defer f.Close()
		rr = f
	}
	return Parse(pf, rr)
}

func Parse(placesJSON, reviewsJSON io.Reader) (*Store, error) {
	var pf placesFile
	if err := json.NewDecoder(placesJSON).Decode(&pf); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}
	recs := pf.Places
	if len(recs) == 0 {
		recs = pf.Data
	}

	s := &Store{reviews: map[string][]domain.Review{}}
	seen := make(map[string]struct{}, len(recs))
	for _, p := range recs {
		id := strings.TrimSpace(p.PlaceID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		addr := p.Address
		if addr == "" {
			addr = p.FormattedAddress
		}
		s.shops = append(s.shops, domain.Shop{
			PlaceID:          id,
			Name:             strings.TrimSpace(p.Name),
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
			Address:          strings.TrimSpace(addr),
		})
	}

	if reviewsJSON == nil {
		return s, nil
	}
	var rf reviewsFile
	if err := json.NewDecoder(reviewsJSON).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	for pid, rs := range rf.ReviewsByPlaceID {
		if _, ok := seen[pid]; !ok {
			continue
		}
		for _, r := range rs {
			rev := domain.Review{
				PlaceID:    pid,
				AuthorName: r.AuthorName,
				Rating:     domain.ReviewRating(r.Rating),
				Text:       r.Text,
				Source:     domain.ReviewSourceGoogle,
			}
			if r.Time > 0 {
				rev.CreatedAt = time.Unix(r.Time, 0).UTC()
			}
			s.reviews[pid] = append(s.reviews[pid], rev)
		}
	}
	return s, nil
}

// Snapshot ignores location: the files already describe a single city.
func (s *Store) Snapshot(ctx context.Context, location string) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Location: location, Shops: s.shops, Reviews: s.reviews}, nil
}

func (s *Store) Shops() []domain.Shop { return s.shops }

func (s *Store) Reviews(placeID string) []domain.Review { return s.reviews[placeID] }

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"cofind/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Repo is the SQLite store for shops, reviews, saved shops and ingest misses.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

var (
	_ domain.ShopRepository        = (*Repo)(nil)
	_ domain.UserContentRepository = (*Repo)(nil)
	_ domain.ShopSource            = (*Repo)(nil)
)

func (r *Repo) UpsertShop(ctx context.Context, s domain.Shop) error {
	_, err := r.db.ExecContext(ctx, upsertShopSQL,
		s.PlaceID,
		s.Name,
		s.Address,
		valF64(s.Rating),
		valInt(s.UserRatingsTotal),
	)
	return err
}

// UpsertReviews replaces the stored Google reviews of placeID with rs.
func (r *Repo) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteGoogleReviewsSQL, placeID); err != nil {
		return err
	}
	if len(rs) > 0 {
		values := make([]string, 0, len(rs))
		args := make([]any, 0, len(rs)*7)
		for _, rv := range rs {
			// created_at falls back to now when the source has no timestamp.
			values = append(values, "(?,?,?,?,?,?,COALESCE(?, CURRENT_TIMESTAMP))")
			args = append(args,
				placeID,
				rv.AuthorName,
				rv.Rating,
				rv.Text,
				domain.ReviewSourceGoogle,
				nil, // user_id
				valTime(rv.CreatedAt),
			)
		}
		if _, err := tx.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ","), args...); err != nil {
			return mapConstraint(err)
		}
	}
	return tx.Commit()
}

func (r *Repo) LogMiss(ctx context.Context, key string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, key, status, reason)
	return err
}

func (r *Repo) GetShop(ctx context.Context, placeID string) (domain.Shop, error) {
	s, err := scanShop(r.db.QueryRowContext(ctx, getShopSQL, placeID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shop{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) ListShops(ctx context.Context, limit int) ([]domain.Shop, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := r.db.QueryContext(ctx, listShopsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviews(ctx context.Context, placeID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, placeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// AverageRating averages every stored review of placeID. It does not check
// that the shop exists.
func (r *Repo) AverageRating(ctx context.Context, placeID string) (domain.RatingSummary, error) {
	sum := domain.RatingSummary{PlaceID: placeID}
	if err := r.db.QueryRowContext(ctx, averageRatingSQL, placeID).Scan(&sum.Average, &sum.ReviewCount); err != nil {
		return domain.RatingSummary{}, err
	}
	sum.Average = math.Round(sum.Average*100) / 100
	return sum, nil
}

// Snapshot loads every stored shop with its reviews. The database holds one
// city, so location is only echoed back.
func (r *Repo) Snapshot(ctx context.Context, location string) (domain.Snapshot, error) {
	shops, err := r.ListShops(ctx, 0)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list shops: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, allReviewsSQL)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make(map[string][]domain.Review, len(shops))
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return domain.Snapshot{}, err
		}
		reviews[rv.PlaceID] = append(reviews[rv.PlaceID], rv)
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Location: location, Shops: shops, Reviews: reviews}, nil
}

// ---- user content ----

func (r *Repo) AddUserReview(ctx context.Context, rv domain.Review) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertUserReviewSQL,
		rv.PlaceID,
		rv.AuthorName,
		rv.Rating,
		rv.Text,
		valStr(rv.UserID),
		valTime(rv.CreatedAt),
	)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

// UpdateUserReview applies patch to review id if userID wrote it and returns
// the stored result.
func (r *Repo) UpdateUserReview(ctx context.Context, id int64, userID string, patch domain.ReviewPatch) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateUserReviewSQL, valInt(patch.Rating), valStr(patch.Text), id, userID)
	if err != nil {
		return domain.Review{}, mapConstraint(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Review{}, ownerError(ctx, tx, id)
	}
	rv, err := scanReview(tx.QueryRowContext(ctx, getReviewSQL, id))
	if err != nil {
		return domain.Review{}, err
	}
	return rv, tx.Commit()
}

// DeleteUserReview removes review id if userID wrote it and returns what was
// deleted. Likes go with it.
func (r *Repo) DeleteUserReview(ctx context.Context, id int64, userID string) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, err
	}
	defer tx.Rollback()

	rv, err := scanReview(tx.QueryRowContext(ctx, getReviewSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, fmt.Errorf("%w: review %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Review{}, err
	}
	res, err := tx.ExecContext(ctx, deleteUserReviewSQL, id, userID)
	if err != nil {
		return domain.Review{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Review{}, fmt.Errorf("%w: review %d belongs to someone else", domain.ErrForbidden, id)
	}
	return rv, tx.Commit()
}

func (r *Repo) ListUserReviews(ctx context.Context, userID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, listUserReviewsSQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// ToggleReviewLike flips userID's like on a review of any source.
func (r *Repo) ToggleReviewLike(ctx context.Context, userID string, reviewID int64) (domain.ReviewLike, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReviewLike{}, err
	}
	defer tx.Rollback()

	var owner, source string
	if err := tx.QueryRowContext(ctx, reviewOwnerSQL, reviewID).Scan(&owner, &source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReviewLike{}, fmt.Errorf("%w: review %d", domain.ErrNotFound, reviewID)
		}
		return domain.ReviewLike{}, err
	}

	like := domain.ReviewLike{ReviewID: reviewID}
	res, err := tx.ExecContext(ctx, deleteLikeSQL, userID, reviewID)
	if err != nil {
		return domain.ReviewLike{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := tx.ExecContext(ctx, insertLikeSQL, userID, reviewID); err != nil {
			return domain.ReviewLike{}, mapConstraint(err)
		}
		like.Liked = true
	}
	if err := tx.QueryRowContext(ctx, countLikesSQL, reviewID).Scan(&like.LikeCount); err != nil {
		return domain.ReviewLike{}, err
	}
	return like, tx.Commit()
}

// ownerError explains why an owner-checked write touched nothing.
func ownerError(ctx context.Context, tx *sql.Tx, id int64) error {
	var owner, source string
	err := tx.QueryRowContext(ctx, reviewOwnerSQL, id).Scan(&owner, &source)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: review %d", domain.ErrNotFound, id)
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: review %d belongs to someone else", domain.ErrForbidden, id)
}

// AddFavorite is idempotent.
func (r *Repo) AddFavorite(ctx context.Context, userID, placeID string) error {
	_, err := r.db.ExecContext(ctx, insertFavoriteSQL, userID, placeID)
	return mapConstraint(err)
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, placeID string) error {
	return r.deleteSaved(ctx, deleteFavoriteSQL, userID, placeID)
}

func (r *Repo) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return r.listSaved(ctx, listFavoritesSQL, userID)
}

// AddWantToVisit fails with ErrAlreadyExists when the shop is already listed.
func (r *Repo) AddWantToVisit(ctx context.Context, userID, placeID string) error {
	_, err := r.db.ExecContext(ctx, insertWantSQL, userID, placeID)
	return mapConstraint(err)
}

func (r *Repo) RemoveWantToVisit(ctx context.Context, userID, placeID string) error {
	return r.deleteSaved(ctx, deleteWantSQL, userID, placeID)
}

func (r *Repo) ListWantToVisit(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return r.listSaved(ctx, listWantSQL, userID)
}

func (r *Repo) IsWantToVisit(ctx context.Context, userID, placeID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, hasWantSQL, userID, placeID).Scan(&ok)
	return ok, err
}

func (r *Repo) deleteSaved(ctx context.Context, query, userID, placeID string) error {
	res, err := r.db.ExecContext(ctx, query, userID, placeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) listSaved(ctx context.Context, query, userID string) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		var added sql.NullTime
		if err := rows.Scan(&f.UserID, &f.PlaceID, &added); err != nil {
			return nil, err
		}
		f.AddedAt = added.Time
		out = append(out, f)
	}
	return out, rows.Err()
}

// ---- scanning ----

type scanner interface {
	Scan(dest ...any) error
}

func scanShop(sc scanner) (domain.Shop, error) {
	var s domain.Shop
	var rating sql.NullFloat64
	var total sql.NullInt64
	if err := sc.Scan(&s.PlaceID, &s.Name, &s.Address, &rating, &total); err != nil {
		return domain.Shop{}, err
	}
	if rating.Valid {
		v := rating.Float64
		s.Rating = &v
	}
	if total.Valid {
		v := int(total.Int64)
		s.UserRatingsTotal = &v
	}
	return s, nil
}

func scanReview(sc scanner) (domain.Review, error) {
	var rv domain.Review
	var userID sql.NullString
	var created sql.NullTime
	if err := sc.Scan(&rv.ID, &rv.PlaceID, &rv.AuthorName, &rv.Rating, &rv.Text, &rv.Source, &userID, &created); err != nil {
		return domain.Review{}, err
	}
	if userID.Valid {
		u := userID.String
		rv.UserID = &u
	}
	rv.CreatedAt = created.Time
	return rv, nil
}

// mapConstraint turns SQLite constraint failures into domain errors: a
// missing shop is ErrNotFound, a second review by the same user is
// ErrAlreadyExists.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: unknown coffee shop", domain.ErrNotFound)
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
	case sqlite3.ErrConstraintCheck:
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return err
}

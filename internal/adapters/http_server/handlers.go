package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"cofind/internal/app"
	"cofind/internal/domain"
	"cofind/internal/recommend"
)

const (
	userHeader   = "X-User-ID"
	maxBodyBytes = 64 << 10
)

type Handlers struct {
	Q     *app.QueryService
	Users *app.UserContentService
	Rec   *recommend.Service
	// Ping reports storage health for /healthz; nil means always healthy.
	Ping func(ctx context.Context) error
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)

	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/llm/analyze", h.analyze)

		r.Get("/coffeeshops", h.listShops)
		r.Get("/coffeeshops/{place_id}", h.getShop)
		r.Get("/coffeeshops/{place_id}/reviews", h.listReviews)
		r.Post("/coffeeshops/{place_id}/reviews", h.addReview)
		r.Get("/coffeeshops/{place_id}/rating", h.averageRating)

		r.Put("/reviews/{review_id}", h.updateReview)
		r.Delete("/reviews/{review_id}", h.deleteReview)
		r.Post("/reviews/{review_id}/like", h.toggleReviewLike)
		r.Get("/users/me/reviews", h.listMyReviews)

		r.Get("/favorites", h.listFavorites)
		r.Post("/favorites/{place_id}", h.addFavorite)
		r.Delete("/favorites/{place_id}", h.removeFavorite)

		r.Get("/want-to-visit", h.listWantToVisit)
		r.Get("/want-to-visit/{place_id}", h.isWantToVisit)
		r.Post("/want-to-visit/{place_id}", h.addWantToVisit)
		r.Delete("/want-to-visit/{place_id}", h.removeWantToVisit)
	})
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "storage unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers a read with a weak ETag, or 304 when the client has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// parseLimit reads ?limit; absent means def, anything outside 1..MaxLimit is an error.
func parseLimit(r *http.Request, def int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > app.MaxLimit {
		return 0, false
	}
	return l, true
}

func userID(r *http.Request) string { return strings.TrimSpace(r.Header.Get(userHeader)) }

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", userHeader+" header is required")
		return "", false
	}
	return uid, true
}

type shopList struct {
	Items []domain.Shop `json:"items"`
	Count int           `json:"count"`
}

func (h *Handlers) listShops(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, app.DefaultListLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and "+strconv.Itoa(app.MaxLimit))
		return
	}
	shops, err := h.Q.ListShops(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if shops == nil {
		shops = []domain.Shop{}
	}
	writeCached(w, r, shopList{Items: shops, Count: len(shops)})
}

func (h *Handlers) getShop(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ShopDetail(r.Context(), chi.URLParam(r, "place_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

type reviewList struct {
	PlaceID string          `json:"place_id"`
	Items   []domain.Review `json:"items"`
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, app.DefaultReviewsLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and "+strconv.Itoa(app.MaxLimit))
		return
	}
	placeID := chi.URLParam(r, "place_id")
	rs, err := h.Q.ListReviews(r.Context(), placeID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rs == nil {
		rs = []domain.Review{}
	}
	writeCached(w, r, reviewList{PlaceID: placeID, Items: rs})
}

type reviewBody struct {
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
	AuthorName string `json:"author_name"`
}

func (h *Handlers) addReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body reviewBody
	if err := decodeBody(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "body must be a JSON object")
		return
	}
	rv, err := h.Users.AddReview(r.Context(), app.NewReview{
		UserID:     uid,
		AuthorName: body.AuthorName,
		PlaceID:    chi.URLParam(r, "place_id"),
		Rating:     body.Rating,
		Text:       body.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	favs, err := h.Users.ListFavorites(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": uid, "items": favs})
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Users.AddFavorite(r.Context(), uid, chi.URLParam(r, "place_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Users.RemoveFavorite(r.Context(), uid, chi.URLParam(r, "place_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) averageRating(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Q.AverageRating(r.Context(), chi.URLParam(r, "place_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, sum)
}

// reviewID parses {review_id}, answering 400 itself when it is not a positive integer.
func reviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "review_id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid review id", "review id must be a positive integer")
		return 0, false
	}
	return id, true
}

type reviewPatchBody struct {
	Rating *int    `json:"rating"`
	Text   *string `json:"text"`
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	var body reviewPatchBody
	if err := decodeBody(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "body must be a JSON object")
		return
	}
	rv, err := h.Users.UpdateReview(r.Context(), app.ReviewEdit{UserID: uid, ReviewID: id, Rating: body.Rating, Text: body.Text})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	if err := h.Users.DeleteReview(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) toggleReviewLike(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := reviewID(w, r)
	if !ok {
		return
	}
	like, err := h.Users.ToggleReviewLike(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

func (h *Handlers) listMyReviews(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r, app.DefaultReviewsLimit)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and "+strconv.Itoa(app.MaxLimit))
		return
	}
	rs, err := h.Users.ListUserReviews(r.Context(), uid, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": uid, "items": rs})
}

func (h *Handlers) listWantToVisit(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := h.Users.ListWantToVisit(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": uid, "items": list})
}

func (h *Handlers) isWantToVisit(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	placeID := chi.URLParam(r, "place_id")
	listed, err := h.Users.IsWantToVisit(r.Context(), uid, placeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"place_id": placeID, "want_to_visit": listed})
}

func (h *Handlers) addWantToVisit(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Users.AddWantToVisit(r.Context(), uid, chi.URLParam(r, "place_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) removeWantToVisit(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Users.RemoveWantToVisit(r.Context(), uid, chi.URLParam(r, "place_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

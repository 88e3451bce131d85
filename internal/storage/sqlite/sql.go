package sqlite

// COALESCE keeps the stored value when a refresh has no rating data.
const upsertShopSQL = `
INSERT INTO coffee_shops (place_id, name, address, rating, user_ratings_total)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(place_id) DO UPDATE SET
  name               = excluded.name,
  address            = CASE WHEN excluded.address <> '' THEN excluded.address ELSE coffee_shops.address END,
  rating             = COALESCE(excluded.rating, coffee_shops.rating),
  user_ratings_total = COALESCE(excluded.user_ratings_total, coffee_shops.user_ratings_total),
  updated_at         = CURRENT_TIMESTAMP
`

// Google reviews are replaced wholesale per shop; user reviews are never touched.
const deleteGoogleReviewsSQL = `DELETE FROM reviews WHERE place_id = ? AND source = 'google'`

const insertReviewsPrefix = "INSERT INTO reviews\n  (place_id, author_name, rating, text, source, user_id, created_at)\nVALUES "

const insertUserReviewSQL = `
INSERT INTO reviews (place_id, author_name, rating, text, source, user_id, created_at)
VALUES (?, ?, ?, ?, 'user', ?, COALESCE(?, CURRENT_TIMESTAMP))
`

// The owner check lives in the WHERE clause; zero rows means missing or not
// owned, and the caller tells the two apart with reviewOwnerSQL.
const updateUserReviewSQL = `
UPDATE reviews
SET rating = COALESCE(?, rating),
    text   = COALESCE(?, text)
WHERE id = ? AND user_id = ? AND source = 'user'`

const deleteUserReviewSQL = `DELETE FROM reviews WHERE id = ? AND user_id = ? AND source = 'user'`

const reviewOwnerSQL = `SELECT COALESCE(user_id, ''), source FROM reviews WHERE id = ?`

const deleteLikeSQL = `DELETE FROM review_likes WHERE user_id = ? AND review_id = ?`

const insertLikeSQL = `INSERT INTO review_likes (user_id, review_id) VALUES (?, ?)`

const countLikesSQL = `SELECT COUNT(*) FROM review_likes WHERE review_id = ?`

const insertMissSQL = `
INSERT INTO ingest_misses (key, http_status, reason)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  http_status = excluded.http_status,
  reason      = excluded.reason,
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const shopColumns = `place_id, name, address, rating, user_ratings_total`

const getShopSQL = `SELECT ` + shopColumns + ` FROM coffee_shops WHERE place_id = ?`

// Unrated shops sort last, as in the recommendation ranking.
const listShopsSQL = `
SELECT ` + shopColumns + `
FROM coffee_shops
ORDER BY COALESCE(rating, 0) DESC, COALESCE(user_ratings_total, 0) DESC, place_id
LIMIT ?`

const reviewColumns = `id, place_id, author_name, rating, text, source, user_id, created_at`

const listReviewsSQL = `
SELECT ` + reviewColumns + `
FROM reviews
WHERE place_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

const getReviewSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

const listUserReviewsSQL = `
SELECT ` + reviewColumns + `
FROM reviews
WHERE user_id = ? AND source = 'user'
ORDER BY created_at DESC, id DESC
LIMIT ?`

// Google and user reviews both count.
const averageRatingSQL = `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE place_id = ?`

// Insertion order, so Google's own review order survives into prompts.
const allReviewsSQL = `SELECT ` + reviewColumns + ` FROM reviews ORDER BY place_id, id`

const insertFavoriteSQL = `INSERT OR IGNORE INTO favorites (user_id, place_id) VALUES (?, ?)`

const deleteFavoriteSQL = `DELETE FROM favorites WHERE user_id = ? AND place_id = ?`

const listFavoritesSQL = `
SELECT user_id, place_id, created_at
FROM favorites
WHERE user_id = ?
ORDER BY created_at DESC, place_id`

const insertWantSQL = `INSERT INTO want_to_visit (user_id, place_id) VALUES (?, ?)`

const deleteWantSQL = `DELETE FROM want_to_visit WHERE user_id = ? AND place_id = ?`

const listWantSQL = `
SELECT user_id, place_id, created_at
FROM want_to_visit
WHERE user_id = ?
ORDER BY created_at DESC, place_id`

const hasWantSQL = `SELECT EXISTS (SELECT 1 FROM want_to_visit WHERE user_id = ? AND place_id = ?)`

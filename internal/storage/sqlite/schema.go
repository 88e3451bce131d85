package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS coffee_shops (
  place_id           TEXT PRIMARY KEY,
  name               TEXT NOT NULL,
  address            TEXT NOT NULL DEFAULT '',
  rating             REAL,
  user_ratings_total INTEGER,
  created_at         DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at         DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reviews (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  place_id    TEXT NOT NULL REFERENCES coffee_shops(place_id) ON DELETE CASCADE,
  author_name TEXT NOT NULL DEFAULT '',
  rating      INTEGER NOT NULL CHECK (rating BETWEEN 0 AND 5),
  text        TEXT NOT NULL DEFAULT '',
  source      TEXT NOT NULL DEFAULT 'google',
  user_id     TEXT,
  created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reviews_place ON reviews(place_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_user ON reviews(place_id, user_id) WHERE source = 'user';
CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id);

CREATE TABLE IF NOT EXISTS review_likes (
  user_id    TEXT NOT NULL,
  review_id  INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, review_id)
);

CREATE TABLE IF NOT EXISTS favorites (
  user_id    TEXT NOT NULL,
  place_id   TEXT NOT NULL REFERENCES coffee_shops(place_id) ON DELETE CASCADE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, place_id)
);

CREATE TABLE IF NOT EXISTS want_to_visit (
  user_id    TEXT NOT NULL,
  place_id   TEXT NOT NULL REFERENCES coffee_shops(place_id) ON DELETE CASCADE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, place_id)
);

CREATE TABLE IF NOT EXISTS ingest_misses (
  key         TEXT PRIMARY KEY,
  http_status INTEGER NOT NULL,
  reason      TEXT NOT NULL DEFAULT '',
  seen_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps an in-memory database on a single
	// connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

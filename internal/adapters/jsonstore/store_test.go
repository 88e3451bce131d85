package jsonstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofind/internal/adapters/jsonstore"
)

const placesJSON = `{"places":[
 {"place_id":"p1","name":"Kopi Toko Seni","address":"Jl. Sultan Abdurrahman","rating":4.6,"user_ratings_total":128},
 {"place_id":"p2","name":" Black Coffee ","formatted_address":"Jl. Teuku Umar"},
 {"place_id":"p1","name":"duplicate"},
 {"name":"no id"}
]}`

const reviewsJSON = `{"reviews_by_place_id":{
 "p1":[{"author_name":"Budi","rating":5,"text":"wifi kencang","time":1700000000},{"author_name":"","rating":3.6,"text":"biasa"}],
 "ghost":[{"author_name":"X","rating":1,"text":"unknown shop"}]
}}`

func TestParse(t *testing.T) {
	s, err := jsonstore.Parse(strings.NewReader(placesJSON), strings.NewReader(reviewsJSON))
	require.NoError(t, err)

	shops := s.Shops()
	require.Len(t, shops, 2)
	assert.Equal(t, "Kopi Toko Seni", shops[0].Name)
	assert.Equal(t, 4.6, *shops[0].Rating)
	assert.Equal(t, 128, shops[0].ReviewCountOr0())
	assert.Equal(t, "Black Coffee", shops[1].Name)
	assert.Equal(t, "Jl. Teuku Umar", shops[1].Address)
	assert.Nil(t, shops[1].Rating)

	rs := s.Reviews("p1")
	require.Len(t, rs, 2)
	assert.Equal(t, 5, rs[0].Rating)
	assert.Equal(t, int64(1700000000), rs[0].CreatedAt.Unix())
	assert.Equal(t, 4, rs[1].Rating)
	assert.Empty(t, s.Reviews("ghost"))
}

func TestParse_LegacyDataKeyAndNoReviews(t *testing.T) {
	s, err := jsonstore.Parse(strings.NewReader(`{"data":[{"place_id":"a","name":"A"}]}`), nil)
	require.NoError(t, err)
	require.Len(t, s.Shops(), 1)

	snap, err := s.Snapshot(context.Background(), "Pontianak")
	require.NoError(t, err)
	assert.Equal(t, "Pontianak", snap.Location)
	assert.Empty(t, snap.Reviews["a"])
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	pp := filepath.Join(dir, "places.json")
	rp := filepath.Join(dir, "reviews.json")
	require.NoError(t, os.WriteFile(pp, []byte(placesJSON), 0o600))
	require.NoError(t, os.WriteFile(rp, []byte(reviewsJSON), 0o600))

	s, err := jsonstore.Open(pp, rp)
	require.NoError(t, err)
	assert.Len(t, s.Shops(), 2)

	_, err = jsonstore.Open(filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)

	_, err = jsonstore.Parse(strings.NewReader("{"), nil)
	assert.Error(t, err)
}

func TestParse_ClampsReviewRatings(t *testing.T) {
	reviews := `{"reviews_by_place_id":{"a":[
		{"author_name":"A","rating":7,"text":"x"},
		{"author_name":"B","rating":-2,"text":"y"},
		{"author_name":"C","rating":4.4,"text":"z"}
	]}}`
	s, err := jsonstore.Parse(strings.NewReader(`{"places":[{"place_id":"a","name":"A"}]}`), strings.NewReader(reviews))
	require.NoError(t, err)

	rs := s.Reviews("a")
	require.Len(t, rs, 3)
	assert.Equal(t, 5, rs[0].Rating)
	assert.Equal(t, 0, rs[1].Rating)
	assert.Equal(t, 4, rs[2].Rating)
}

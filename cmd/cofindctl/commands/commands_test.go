package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofind/cmd/cofindctl/commands"
	"cofind/internal/storage/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LEXICON_PATH", "")
	var out, errOut bytes.Buffer
	cmd := commands.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLexiconKeys(t *testing.T) {
	out, err := run(t, "lexicon")
	require.NoError(t, err)
	keys := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, keys, "wifi")
	assert.Contains(t, keys, "musholla")
}

func TestLexiconSynonyms(t *testing.T) {
	out, err := run(t, "lexicon", "  WiFi ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wifi: "), out)
	assert.Contains(t, out, "wi-fi")

	_, err = run(t, "lexicon", "dinosaurus")
	assert.Error(t, err)
}

func TestRecommendKeywordsOnly(t *testing.T) {
	out, err := run(t, "recommend", "--keywords-only", "wifi, colokan, dinosaurus")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "keywords: wifi, colokan", lines[0])
	assert.Contains(t, lines[1], "dinosaurus")
	assert.Contains(t, lines[2], "stopkontak")
}

func TestRecommendRequiresText(t *testing.T) {
	_, err := run(t, "recommend")
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	places := filepath.Join(dir, "places.json")
	reviews := filepath.Join(dir, "reviews.json")
	dbPath := filepath.Join(dir, "cofind.db")
	require.NoError(t, os.WriteFile(places, []byte(`{"places":[
		{"place_id":"p1","name":"Kopi Toko Seni","address":"Jl. Sultan Abdurrahman","rating":4.6,"user_ratings_total":12},
		{"place_id":"p2","name":"Black Coffee","address":"Jl. Teuku Umar"}
	]}`), 0o644))
	require.NoError(t, os.WriteFile(reviews, []byte(`{"reviews_by_place_id":{
		"p1":[{"author_name":"Budi","rating":5,"text":"wifi kencang dan banyak colokan"}],
		"p2":[{"author_name":"Rina","rating":9,"text":"rating di luar skala tetap masuk"}]
	}}`), 0o644))

	args := []string{"import", "--places", places, "--reviews", reviews, "--db", dbPath}
	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 shops and 2 reviews")

	// a second import replaces google reviews instead of duplicating them
	_, err = run(t, args...)
	require.NoError(t, err)

	ctx := context.Background()
	db, err := sqlite.Open(ctx, dbPath)
	require.NoError(t, err)
	defer db.Close()
	repo := sqlite.New(db)

	shops, err := repo.ListShops(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, shops, 2)
	rs, err := repo.ListReviews(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Budi", rs[0].AuthorName)

	// out-of-range snapshot ratings are clamped instead of tripping the CHECK
	rs, err = repo.ListReviews(ctx, "p2", 10)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 5, rs[0].Rating)
}

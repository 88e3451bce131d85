package lexicon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofind/internal/lexicon"
)

func TestDefault_IsSymmetric(t *testing.T) {
	lx := lexicon.Default()
	for _, k := range lx.Keys() {
		syns, _ := lx.Synonyms(k)
		for _, s := range syns {
			back, ok := lx.Synonyms(s)
			require.Truef(t, ok, "%q lists %q but %q has no entry", k, s, s)
			assert.Containsf(t, back, k, "%q -> %q is not mirrored", k, s)
		}
	}
}

func TestDefault_Groups(t *testing.T) {
	lx := lexicon.Default()

	syns, ok := lx.Synonyms("wifi kencang")
	require.True(t, ok)
	assert.Contains(t, syns, "wifi bagus")
	assert.Contains(t, syns, "wifinya kencang")

	assert.True(t, lx.IsStopWord("saya"))
	assert.False(t, lx.IsStopWord("wifi"))
	assert.Contains(t, lx.Denylist(), "dinosaurus")
	assert.True(t, lx.IsPrayerRoom("musholla bersih"))
	assert.False(t, lx.IsPrayerRoom("nyaman"))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	data := []byte("synonyms:\n  Sepi: [ Tenang ]\ndenylist: [Kucing]\nstop_words: [dan]\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	lx, err := lexicon.Load(path)
	require.NoError(t, err)

	syns, ok := lx.Synonyms("tenang")
	require.True(t, ok)
	assert.Equal(t, []string{"sepi"}, syns)
	assert.Equal(t, []string{"kucing"}, lx.Denylist())
}

func TestParse_RejectsEmpty(t *testing.T) {
	_, err := lexicon.Parse([]byte("denylist: [x]\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	lx, err := lexicon.Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, lx.Keys())
}

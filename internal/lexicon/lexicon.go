// Package lexicon holds the static vocabulary the keyword pipeline runs on:
// synonym groups, the off-topic denylist, stop words, the gaming facility
// bundle and the prayer-room phrase group.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultYAML []byte

type file struct {
	Synonyms         map[string][]string `yaml:"synonyms"`
	Denylist         []string            `yaml:"denylist"`
	StopWords        []string            `yaml:"stop_words"`
	GamingTerms      []string            `yaml:"gaming_terms"`
	GamingFacilities []string            `yaml:"gaming_facilities"`
	PrayerRoom       []string            `yaml:"prayer_room"`
}

// Lexicon is immutable after construction and safe for concurrent use.
type Lexicon struct {
	synonyms         map[string][]string
	keys             []string // sorted synonym keys
	denylist         []string
	stopWords        map[string]struct{}
	gamingTerms      []string
	gamingFacilities []string
	prayerRoom       []string
}

// Default returns the embedded lexicon.
func Default() *Lexicon {
	lx, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded data is invalid: %v", err))
	}
	return lx
}

// Load reads a lexicon file; an empty path yields the embedded default.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Lexicon, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Synonyms) == 0 {
		return nil, fmt.Errorf("parse lexicon: no synonyms")
	}
	lx := &Lexicon{
		synonyms:         symmetrize(f.Synonyms),
		denylist:         normalizeList(f.Denylist),
		stopWords:        make(map[string]struct{}, len(f.StopWords)),
		gamingTerms:      normalizeList(f.GamingTerms),
		gamingFacilities: normalizeList(f.GamingFacilities),
		prayerRoom:       normalizeList(f.PrayerRoom),
	}
	for _, w := range normalizeList(f.StopWords) {
		lx.stopWords[w] = struct{}{}
	}
	lx.keys = make([]string, 0, len(lx.synonyms))
	for k := range lx.synonyms {
		lx.keys = append(lx.keys, k)
	}
	sort.Strings(lx.keys)
	return lx, nil
}

// symmetrize closes the authored table under one step of symmetry:
// if A lists B then B lists A. Lists are normalized and deduplicated.
func symmetrize(in map[string][]string) map[string][]string {
	sets := make(map[string]map[string]struct{}, len(in)*2)
	add := func(a, b string) {
		if a == "" || b == "" || a == b {
			return
		}
		if sets[a] == nil {
			sets[a] = map[string]struct{}{}
		}
		sets[a][b] = struct{}{}
	}
	for k, vs := range in {
		key := Normalize(k)
		if sets[key] == nil && key != "" {
			sets[key] = map[string]struct{}{}
		}
		for _, v := range vs {
			v = Normalize(v)
			add(key, v)
			add(v, key)
		}
	}
	out := make(map[string][]string, len(sets))
	for k, set := range sets {
		list := make([]string, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		sort.Strings(list)
		out[k] = list
	}
	return out
}

func normalizeList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = Normalize(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Normalize lowercases, trims and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Synonyms returns the synonym list for an exact key.
func (l *Lexicon) Synonyms(key string) ([]string, bool) {
	v, ok := l.synonyms[key]
	return v, ok
}

// Keys returns the synonym table keys in sorted order.
func (l *Lexicon) Keys() []string { return l.keys }

func (l *Lexicon) Denylist() []string         { return l.denylist }
func (l *Lexicon) GamingTerms() []string      { return l.gamingTerms }
func (l *Lexicon) GamingFacilities() []string { return l.gamingFacilities }
func (l *Lexicon) PrayerRoom() []string       { return l.prayerRoom }

func (l *Lexicon) IsStopWord(w string) bool {
	_, ok := l.stopWords[w]
	return ok
}

// IsPrayerRoom reports whether a keyword names the prayer-room concept.
func (l *Lexicon) IsPrayerRoom(keyword string) bool {
	for _, p := range l.prayerRoom {
		if strings.Contains(keyword, p) {
			return true
		}
	}
	return false
}

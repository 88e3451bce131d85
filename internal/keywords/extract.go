package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"cofind/internal/domain"
	"cofind/internal/lexicon"
)

const MaxKeywords = 10

// Extractor normalizes raw user text into a keyword list. Comma lists are split
// deterministically; free-form sentences go to the extraction capability, with a
// stop-word heuristic when that is missing or yields nothing.
type Extractor struct {
	primary domain.KeywordExtractor // nil means heuristic only
	lx      *lexicon.Lexicon
}

func NewExtractor(primary domain.KeywordExtractor, lx *lexicon.Lexicon) *Extractor {
	return &Extractor{primary: primary, lx: lx}
}

func (e *Extractor) Extract(ctx context.Context, text string) []string {
	if kws, ok := SplitCommaList(text); ok {
		return capKeywords(kws)
	}
	if e.primary != nil {
		kws, err := e.primary.ExtractKeywords(ctx, text)
		if err != nil {
			log.Info().Err(err).Msg("keyword extraction failed, using heuristic")
			return e.Heuristic(text)
		}
		var clean []string
		for _, kw := range kws {
			if kw = lexicon.Normalize(kw); kw != "" {
				clean = append(clean, kw)
			}
		}
		if len(clean) > 0 {
			return capKeywords(dedupe(clean))
		}
		log.Info().Msg("keyword extraction returned nothing, using heuristic")
	}
	return e.Heuristic(text)
}

// ExtractKeywords lets the rule-based path stand in wherever a
// domain.KeywordExtractor is expected.
func (e *Extractor) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	return e.Extract(ctx, text), nil
}

// SplitCommaList handles "wifi, colokan, tenang" style input. It reports false
// unless the text has at least two nonempty comma-separated segments.
func SplitCommaList(text string) ([]string, bool) {
	if !strings.Contains(text, ",") {
		return nil, false
	}
	var out []string
	for _, seg := range strings.Split(text, ",") {
		if s := lexicon.Normalize(seg); s != "" {
			out = append(out, s)
		}
	}
	if len(out) < 2 {
		return nil, false
	}
	return dedupe(out), true
}

// Heuristic lowercases, splits on whitespace and drops stop words and tokens
// of two runes or fewer.
func (e *Extractor) Heuristic(text string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if utf8.RuneCountInString(tok) <= 2 || e.lx.IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return capKeywords(dedupe(out))
}

var listMarker = regexp.MustCompile(`^\s*(?:[-•>]+|\d+[.)])\s*`)

var listNoise = strings.NewReplacer(
	"**", "", "*", "", "__", "", "`", "",
	`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "",
)

// ParseKeywordList cleans an LLM keyword answer: emphasis, quotes, bullets,
// numbering and a leading label are removed before splitting on commas and
// newlines.
func ParseKeywordList(raw string) []string {
	raw = listNoise.Replace(raw)
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if i := strings.Index(line, ":"); i >= 0 {
			line = line[i+1:]
		}
		for _, part := range strings.Split(line, ",") {
			part = listMarker.ReplaceAllString(part, "")
			part = strings.TrimRight(part, ". ")
			kw := lexicon.Normalize(part)
			if kw == "" || len(strings.Fields(kw)) > 4 {
				continue
			}
			out = append(out, kw)
		}
	}
	return capKeywords(dedupe(out))
}

const extractionSystemPrompt = `Kamu adalah pengekstrak kata kunci untuk pencarian coffee shop.
Ambil preferensi pengguna tentang coffee shop (fasilitas, suasana, harga, menu, aktivitas).
Abaikan kata pengisi dan konsep yang tidak berhubungan dengan coffee shop.
Jawab HANYA dengan daftar kata kunci dipisahkan koma, maksimal %d item, huruf kecil, tanpa penjelasan.`

// GeneratorExtractor asks a text-completion model for keywords.
type GeneratorExtractor struct {
	gen       domain.Generator
	maxTokens int
}

func NewGeneratorExtractor(gen domain.Generator) *GeneratorExtractor {
	return &GeneratorExtractor{gen: gen, maxTokens: 100}
}

func (g *GeneratorExtractor) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	out, err := g.gen.Generate(ctx, domain.CompletionRequest{
		System:      fmt.Sprintf(extractionSystemPrompt, MaxKeywords),
		User:        "Teks pengguna: " + text,
		MaxTokens:   g.maxTokens,
		Temperature: 0,
		TopP:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	return ParseKeywordList(out), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func capKeywords(in []string) []string {
	if len(in) > MaxKeywords {
		return in[:MaxKeywords]
	}
	return in
}

package recommend

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cofind/internal/domain"
	"cofind/internal/keywords"
	"cofind/internal/lexicon"
)

// NoMatchMessage is the canonical answer when nothing can be recommended.
const NoMatchMessage = "Maaf, tidak ada coffee shop yang sesuai dengan preferensi Anda saat ini."

const maxSplicedReviews = 2

var (
	headerRe   = regexp.MustCompile(`^(\s*)(\d+)\.\s*\*\*(.+?)\*\*(.*)$`)
	evidenceRe = regexp.MustCompile(`(?i)berdasarkan ulasan pengunjung\s*\**\s*:?\s*\**\s*["“]([^"”]+)["”]`)
)

// Section is one numbered recommendation: its header line and every line up
// to the next header.
type Section struct {
	Indent string
	Number int
	Name   string
	Suffix string   // header text after the bold name
	Body   []string // lines after the header
}

// Document is an LLM answer split into free text before the first header and
// the numbered sections.
type Document struct {
	Preamble []string
	Sections []Section
}

func ParseDocument(text string) Document {
	var doc Document
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for _, line := range lines {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			doc.Sections = append(doc.Sections, Section{
				Indent: m[1],
				Number: n,
				Name:   strings.TrimSpace(m[3]),
				Suffix: m[4],
			})
			continue
		}
		if len(doc.Sections) == 0 {
			doc.Preamble = append(doc.Preamble, line)
			continue
		}
		last := &doc.Sections[len(doc.Sections)-1]
		last.Body = append(last.Body, line)
	}
	return doc
}

func (d Document) String() string {
	var lines []string
	lines = append(lines, d.Preamble...)
	for _, s := range d.Sections {
		lines = append(lines, s.header())
		lines = append(lines, s.Body...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (s Section) header() string {
	return fmt.Sprintf("%s%d. **%s**%s", s.Indent, s.Number, s.Name, s.Suffix)
}

func (s Section) HasEvidence() bool {
	for _, l := range s.Body {
		if strings.Contains(strings.ToLower(l), "berdasarkan ulasan pengunjung") {
			return true
		}
	}
	return false
}

// Quotes returns the quoted review text of every evidence line.
func (s Section) Quotes() []string {
	var out []string
	for _, l := range s.Body {
		if m := evidenceRe.FindStringSubmatch(l); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

// withLines returns a copy of s with extra lines inserted after index at.
func (s Section) withLines(at int, extra []string) Section {
	body := make([]string, 0, len(s.Body)+len(extra))
	body = append(body, s.Body[:at]...)
	body = append(body, extra...)
	body = append(body, s.Body[at:]...)
	s.Body = body
	return s
}

// insertionPoint is the index after which evidence goes: after the Google
// Maps line, else Alamat, else Rating, else after the last nonblank line.
// A label counts only at the start of a line, after any list marker.
func (s Section) insertionPoint() (int, string) {
	for _, label := range []string{"google maps", "alamat", "rating"} {
		for i, l := range s.Body {
			if hasLabel(l, label) {
				return i + 1, leadingSpace(l)
			}
		}
	}
	end := len(s.Body)
	for end > 0 && strings.TrimSpace(s.Body[end-1]) == "" {
		end--
	}
	return end, s.Indent + "   "
}

var labelLeadRe = regexp.MustCompile(`^\s*(?:[-•*]\s+)?(?:\*\*)?\s*`)

func hasLabel(line, label string) bool {
	return strings.HasPrefix(strings.ToLower(labelLeadRe.ReplaceAllString(line, "")), label)
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// Report says what the validator changed.
type Report struct {
	Spliced []string // sections that received evidence
	Dropped []string // sections removed as unconfirmed
	Kept    int
}

// Validate enforces that every recommendation carries a quoted review that
// matches the request's keywords. See ValidateReport.
func Validate(text string, shops []domain.Shop, reviews map[string][]domain.Review, m keywords.Matcher) string {
	out, _ := ValidateReport(text, shops, reviews, m)
	return out
}

// ValidateReport runs two passes over the model output. The repair pass adds
// evidence to sections that lack it, using real reviews of the shop the
// section names. The verify pass then drops every section whose quoted
// evidence does not match a keyword, and renumbers what is left.
func ValidateReport(text string, shops []domain.Shop, reviews map[string][]domain.Review, m keywords.Matcher) (string, Report) {
	var rep Report
	doc := ParseDocument(text)

	repaired := make([]Section, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		if !sec.HasEvidence() && !m.Empty() {
			if shop, ok := MatchShop(sec.Name, shops); ok {
				if lines := evidenceLines(reviews[shop.PlaceID], m); len(lines) > 0 {
					at, indent := sec.insertionPoint()
					for i := range lines {
						lines[i] = indent + lines[i]
					}
					sec = sec.withLines(at, lines)
					rep.Spliced = append(rep.Spliced, sec.Name)
				}
			}
		}
		repaired = append(repaired, sec)
	}

	kept := make([]Section, 0, len(repaired))
	for _, sec := range repaired {
		if !confirmed(sec, m) {
			rep.Dropped = append(rep.Dropped, sec.Name)
			continue
		}
		sec.Number = len(kept) + 1
		kept = append(kept, sec)
	}
	rep.Kept = len(kept)
	if len(kept) == 0 {
		return NoMatchMessage, rep
	}
	doc.Sections = kept
	return doc.String(), rep
}

func confirmed(sec Section, m keywords.Matcher) bool {
	if m.Empty() {
		return false
	}
	for _, q := range sec.Quotes() {
		if m.Match(q) {
			return true
		}
	}
	return false
}

func evidenceLines(rs []domain.Review, m keywords.Matcher) []string {
	var out []string
	for _, r := range rs {
		if len(out) == maxSplicedReviews {
			break
		}
		if !m.Match(r.Text) {
			continue
		}
		text := strings.NewReplacer(`"`, "'", "“", "'", "”", "'").Replace(oneLine(r.Text))
		out = append(out, fmt.Sprintf("- %s \"%s\" - %s (Rating %d/5)", EvidenceLabel, text, authorOrAnon(r.AuthorName), r.Rating))
	}
	return out
}

// MatchShop resolves a name written by the model to a known shop: exact name
// first, then the best overlap of at least two words, then substring
// containment in either direction.
func MatchShop(name string, shops []domain.Shop) (domain.Shop, bool) {
	want := lexicon.Normalize(name)
	if want == "" {
		return domain.Shop{}, false
	}
	for _, s := range shops {
		if lexicon.Normalize(s.Name) == want {
			return s, true
		}
	}

	wantWords := wordSet(want)
	best, bestOverlap := -1, 1
	for i, s := range shops {
		n := 0
		for w := range wordSet(lexicon.Normalize(s.Name)) {
			if _, ok := wantWords[w]; ok {
				n++
			}
		}
		if n > bestOverlap {
			best, bestOverlap = i, n
		}
	}
	if best >= 0 {
		return shops[best], true
	}

	for _, s := range shops {
		have := lexicon.Normalize(s.Name)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return s, true
		}
	}
	return domain.Shop{}, false
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range nonWord.Split(s, -1) {
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

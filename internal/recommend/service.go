package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"cofind/internal/adapters/observability"
	"cofind/internal/domain"
	"cofind/internal/keywords"
	"cofind/internal/lexicon"
)

type Options struct {
	MaxShops        int
	MaxTokens       int
	Temperature     float64
	TopP            float64
	DefaultLocation string
}

func (o Options) withDefaults() Options {
	if o.MaxShops <= 0 {
		o.MaxShops = 10
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.DefaultLocation == "" {
		o.DefaultLocation = "Pontianak"
	}
	return o
}

type Request struct {
	Text     string
	Task     string
	Location string
}

type Result struct {
	Task       Task
	Analysis   string
	Keywords   []string // extracted, after filtering
	Removed    []string // dropped as off-topic
	Expanded   []string
	Candidates []string // place ids sent to the model
	NoMatch    bool
}

// Service runs the recommendation pipeline for one request at a time. It holds
// no mutable state, so one Service serves concurrent requests.
type Service struct {
	source    domain.ShopSource
	gen       domain.Generator
	lx        *lexicon.Lexicon
	extractor *keywords.Extractor
	filter    *keywords.Filter
	expander  *keywords.Expander
	opts      Options
}

// NewService wires the pipeline. extractor may be nil, in which case only
// comma lists and the stop-word heuristic are used.
func NewService(src domain.ShopSource, gen domain.Generator, extractor domain.KeywordExtractor, lx *lexicon.Lexicon, opts Options) *Service {
	return &Service{
		source:    src,
		gen:       gen,
		lx:        lx,
		extractor: keywords.NewExtractor(extractor, lx),
		filter:    keywords.NewFilter(lx),
		expander:  keywords.NewExpander(lx),
		opts:      opts.withDefaults(),
	}
}

func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	res := Result{Task: ParseTask(req.Task)}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return res, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = s.opts.DefaultLocation
	}

	// Reject clearly off-topic input before anything reaches the model.
	tokens := s.extractor.Heuristic(text)
	if commaList, ok := keywords.SplitCommaList(text); ok {
		tokens = commaList
	}
	if relevant, removed := s.filter.Apply(tokens); len(tokens) > 0 && len(relevant) == 0 {
		log.Info().Strs("removed", removed).Msg("all keywords off-topic; skipping llm")
		observability.ObservePipeline("irrelevant")
		res.Removed, res.Analysis, res.NoMatch = removed, NoMatchMessage, true
		return res, nil
	}

	kws, removed := s.filter.Apply(s.extractor.Extract(ctx, text))
	res.Keywords, res.Removed = kws, removed
	if len(kws) == 0 {
		log.Info().Strs("removed", removed).Msg("no relevant keywords; skipping llm")
		observability.ObservePipeline("no_keywords")
		res.Analysis, res.NoMatch = NoMatchMessage, true
		return res, nil
	}

	res.Expanded = s.expander.Expand(kws)
	matcher := keywords.NewMatcher(s.lx, res.Expanded)

	snap, err := s.source.Snapshot(ctx, location)
	if err != nil {
		observability.ObservePipeline("source_error")
		return res, fmt.Errorf("load shops for %q: %w", location, err)
	}

	shops := Select(snap.Shops, snap.Reviews, matcher, s.opts.MaxShops)
	for _, sh := range shops {
		res.Candidates = append(res.Candidates, sh.PlaceID)
	}
	log.Debug().
		Strs("keywords", kws).
		Int("expanded", len(res.Expanded)).
		Int("shops", len(snap.Shops)).
		Int("candidates", len(shops)).
		Msg("candidates selected")

	prompt := BuildPrompt(res.Task, FormatContext(shops, snap.Reviews, location), kws, text)
	out, err := s.gen.Generate(ctx, domain.CompletionRequest{
		System:      prompt.System,
		User:        prompt.User,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		TopP:        s.opts.TopP,
	})
	if err != nil {
		observability.ObservePipeline("llm_error")
		return res, fmt.Errorf("%w: %v", domain.ClassifyLLMError(err), err)
	}

	analysis, rep := ValidateReport(out, snap.Shops, snap.Reviews, matcher)
	observability.ObserveValidator(rep.Kept, len(rep.Spliced), len(rep.Dropped))
	if len(rep.Spliced) > 0 || len(rep.Dropped) > 0 {
		log.Info().
			Strs("spliced", rep.Spliced).
			Strs("dropped", rep.Dropped).
			Int("kept", rep.Kept).
			Msg("llm output rewritten")
	}
	res.Analysis = analysis
	res.NoMatch = rep.Kept == 0
	if res.NoMatch {
		observability.ObservePipeline("no_match")
	} else {
		observability.ObservePipeline("ok")
	}
	return res, nil
}

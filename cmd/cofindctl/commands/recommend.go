package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cofind/internal/adapters/jsonstore"
	"cofind/internal/adapters/llm"
	"cofind/internal/domain"
	"cofind/internal/keywords"
	"cofind/internal/lexicon"
	"cofind/internal/recommend"
	"cofind/internal/storage/sqlite"
)

type recommendOptions struct {
	task         string
	location     string
	source       string
	db           string
	keywordsOnly bool
}

func newRecommendCmd(root *rootOptions) *cobra.Command {
	o := &recommendOptions{}
	cmd := &cobra.Command{
		Use:   "recommend [preference text]",
		Short: "Run the recommendation pipeline once",
		Long: `Runs keyword extraction, filtering, expansion and (unless --keywords-only)
the LLM recommendation against a local shop source.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lx, err := lexicon.Load(root.cfg.LexiconPath)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if o.keywordsOnly {
				return printKeywords(cmd.Context(), cmd.OutOrStdout(), lx, text)
			}
			return runRecommend(cmd.Context(), cmd.OutOrStdout(), root, *o, lx, text)
		},
	}
	cmd.Flags().StringVar(&o.task, "task", "recommend", "analyze, summarize or recommend")
	cmd.Flags().StringVar(&o.location, "location", "", "location (default DEFAULT_LOCATION)")
	cmd.Flags().StringVar(&o.source, "source", "", "json or sqlite (default SHOP_SOURCE)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite database path (default SQLITE_PATH)")
	cmd.Flags().BoolVar(&o.keywordsOnly, "keywords-only", false, "print keywords without calling the LLM")
	return cmd
}

// printKeywords shows the rule-based keyword stages for text.
func printKeywords(ctx context.Context, out io.Writer, lx *lexicon.Lexicon, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	kws, removed := keywords.NewFilter(lx).Apply(keywords.NewExtractor(nil, lx).Extract(ctx, text))
	fmt.Fprintf(out, "keywords: %s\n", strings.Join(kws, ", "))
	fmt.Fprintf(out, "removed:  %s\n", strings.Join(removed, ", "))
	fmt.Fprintf(out, "expanded: %s\n", strings.Join(keywords.NewExpander(lx).Expand(kws), ", "))
	return nil
}

func runRecommend(ctx context.Context, out io.Writer, root *rootOptions, o recommendOptions, lx *lexicon.Lexicon, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := root.cfg
	if o.source == "" {
		o.source = cfg.ShopSource
	}
	if o.db == "" {
		o.db = cfg.SQLitePath
	}

	var src domain.ShopSource
	switch o.source {
	case "json":
		st, err := jsonstore.Open(cfg.SnapshotPlaces, cfg.SnapshotReviews)
		if err != nil {
			return err
		}
		src = st
	case "sqlite":
		db, err := sqlite.Open(ctx, o.db)
		if err != nil {
			return err
		}
		defer func(db *sql.DB) { _ = db.Close() }(db)
		src = sqlite.New(db)
	default:
		return fmt.Errorf("source %q is not supported here (want json or sqlite)", o.source)
	}

	gen, err := llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMKey(),
	})
	if err != nil {
		return err
	}
	svc := recommend.NewService(src, gen, keywords.NewGeneratorExtractor(gen), lx, recommend.Options{
		MaxShops:        cfg.MaxShops,
		MaxTokens:       cfg.LLMMaxTokens,
		Temperature:     cfg.LLMTemperature,
		TopP:            cfg.LLMTopP,
		DefaultLocation: cfg.DefaultLocation,
	})
	res, err := svc.Analyze(ctx, recommend.Request{Text: text, Task: o.task, Location: o.location})
	if err != nil {
		return fmt.Errorf("%s: %w", domain.LLMErrorCode(err), err)
	}
	fmt.Fprintf(out, "keywords: %s\n\n%s\n", strings.Join(res.Keywords, ", "), res.Analysis)
	return nil
}

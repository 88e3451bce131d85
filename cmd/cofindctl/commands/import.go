package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cofind/internal/adapters/jsonstore"
	"cofind/internal/domain"
	"cofind/internal/storage/sqlite"
)

type importOptions struct {
	places  string
	reviews string
	db      string
}

func newImportCmd(root *rootOptions) *cobra.Command {
	o := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a places/reviews JSON snapshot into SQLite",
		Long: `Reads places.json and reviews.json and upserts every shop with its Google
reviews into the SQLite database. User reviews and favorites are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.places == "" {
				o.places = root.cfg.SnapshotPlaces
			}
			if o.reviews == "" {
				o.reviews = root.cfg.SnapshotReviews
			}
			if o.db == "" {
				o.db = root.cfg.SQLitePath
			}
			return runImport(cmd.Context(), cmd.OutOrStdout(), *o)
		},
	}
	cmd.Flags().StringVar(&o.places, "places", "", "places JSON file (default SNAPSHOT_PLACES)")
	cmd.Flags().StringVar(&o.reviews, "reviews", "", "reviews JSON file (default SNAPSHOT_REVIEWS)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite database path (default SQLITE_PATH)")
	return cmd
}

func runImport(ctx context.Context, out io.Writer, o importOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := jsonstore.Open(o.places, o.reviews)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(ctx, o.db)
	if err != nil {
		return err
	}
	defer db.Close()

	n, reviews, err := importSnapshot(ctx, sqlite.New(db), st)
	if err != nil {
		return err
	}
	log.Info().Int("shops", n).Int("reviews", reviews).Str("db", o.db).Msg("import completed")
	fmt.Fprintf(out, "imported %d shops and %d reviews into %s\n", n, reviews, o.db)
	return nil
}

func importSnapshot(ctx context.Context, repo domain.ShopRepository, st *jsonstore.Store) (int, int, error) {
	shops, reviews := 0, 0
	for _, sh := range st.Shops() {
		if err := repo.UpsertShop(ctx, sh); err != nil {
			return shops, reviews, fmt.Errorf("upsert shop %s: %w", sh.PlaceID, err)
		}
		rs := st.Reviews(sh.PlaceID)
		if err := repo.UpsertReviews(ctx, sh.PlaceID, rs); err != nil {
			return shops, reviews, fmt.Errorf("upsert reviews %s: %w", sh.PlaceID, err)
		}
		shops++
		reviews += len(rs)
	}
	return shops, reviews, nil
}

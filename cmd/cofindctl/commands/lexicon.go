package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cofind/internal/lexicon"
)

func newLexiconCmd(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "lexicon [keyword]",
		Short: "List synonym keys, or the synonyms of one keyword",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = root.cfg.LexiconPath
			}
			lx, err := lexicon.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, k := range lx.Keys() {
					fmt.Fprintln(out, k)
				}
				return nil
			}
			syns, ok := lx.Synonyms(lexicon.Normalize(args[0]))
			if !ok {
				return fmt.Errorf("no synonyms for %q", args[0])
			}
			fmt.Fprintf(out, "%s: %s\n", lexicon.Normalize(args[0]), strings.Join(syns, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "lexicon YAML file (default LEXICON_PATH or built-in)")
	return cmd
}

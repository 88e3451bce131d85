// Package commands implements the cofindctl operator CLI.
package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cofind/internal/adapters/observability"
	"cofind/internal/shared"
)

type rootOptions struct {
	logLevel string
	cfg      shared.Config
}

// NewRootCmd builds a fresh command tree; tests build one per case.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "cofindctl",
		Short: "Cofind operator tools",
		Long: `cofindctl loads coffee shop snapshots into SQLite, runs the recommendation
pipeline from the terminal and inspects the keyword lexicon.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = shared.Load()
			level := opts.logLevel
			if level == "" {
				level = opts.cfg.LogLevel
			}
			// stdout carries command output; logs go to stderr.
			log.Logger = observability.NewLoggerTo(cmd.ErrOrStderr(), "dev", "cofindctl", level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	root.AddCommand(
		newImportCmd(opts),
		newRecommendCmd(opts),
		newLexiconCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

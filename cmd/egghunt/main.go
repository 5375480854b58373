// Command egghunt generates, checks, scans and serves egg hunt puzzles.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/config"
)

// app carries what every subcommand shares once the root has run.
type app struct {
	cfg      config.Config
	logger   *logrus.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "egghunt",
		Short:         "Egg hunt race generator and answer checker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			a.cfg = cfg
			a.logger = cfg.NewLogger()
			a.logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides EGGHUNT_LOG_LEVEL)")

	root.AddCommand(
		newGenerateCmd(a),
		newCheckCmd(a),
		newScanCmd(a),
		newServeCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "egghunt:", err)
		os.Exit(1)
	}
}

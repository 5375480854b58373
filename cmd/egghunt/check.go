package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/answer"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
)

var errStrike = errors.New("strike")

func newCheckCmd(a *app) *cobra.Command {
	var flags raceFlags
	cmd := &cobra.Command{
		Use:   "check RED GREEN BLUE YELLOW",
		Short: "Check a submitted ranking against a race",
		Long: "Regenerates the race for the given seeds and nonce and checks the\n" +
			"places submitted for Red, Green, Blue and Yellow.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.serverSeed == "" {
				return errors.New("--server-seed is required")
			}
			var submitted [4]int
			for i, arg := range args {
				v, err := strconv.Atoi(arg)
				if err != nil || v < answer.MinValue || v > answer.MaxValue {
					return fmt.Errorf("place %q must be between %d and %d", arg, answer.MinValue, answer.MaxValue)
				}
				submitted[i] = v
			}

			in, _, err := flags.instance(a.logger)
			if err != nil {
				return err
			}
			in.Reveal(in.Result().StageCount)

			outcome, err := in.Submit(submitted)
			if err != nil {
				return err
			}
			if outcome == puzzle.OutcomeStrike {
				return fmt.Errorf("%w: %v is not the final ranking", errStrike, submitted)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Correct:", in.Result().Ranking)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/engine"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/puzzle"
)

// raceFlags select one race by seeds, nonce and module count.
type raceFlags struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	modules    int
	id         int
}

func (f *raceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.serverSeed, "server-seed", "", "server seed (random when empty)")
	cmd.Flags().StringVar(&f.clientSeed, "client-seed", "egghunt", "client seed")
	cmd.Flags().Uint64Var(&f.nonce, "nonce", 0, "nonce")
	cmd.Flags().IntVar(&f.modules, "modules", 5, "number of other solvable modules")
	cmd.Flags().IntVar(&f.id, "id", 1, "instance number shown in the log")
}

func (f *raceFlags) instance(logger *logrus.Logger) (*puzzle.Instance, engine.Seeds, error) {
	seeds := engine.Seeds{Server: f.serverSeed, Client: f.clientSeed}
	in, err := puzzle.New(puzzle.Config{ID: f.id, ModuleCount: f.modules, Logger: logger}, engine.NewRand(seeds, f.nonce))
	if err != nil {
		return nil, seeds, err
	}
	return in, seeds, nil
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		flags  raceFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a race and print its log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.serverSeed == "" {
				seed, err := engine.NewServerSeed()
				if err != nil {
					return err
				}
				flags.serverSeed = seed
			}
			in, seeds, err := flags.instance(a.logger)
			if err != nil {
				return err
			}
			res := in.Result()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Seeds engine.Seeds `json:"seeds"`
					Nonce uint64       `json:"nonce"`
					Skip  int          `json:"skip"`
					Race  any          `json:"race"`
				}{seeds, flags.nonce, in.Skip(), res})
			}

			fmt.Fprintf(out, "Server seed: %s\n", seeds.Server)
			fmt.Fprintf(out, "Server seed hash: %s\n", seeds.ServerHash())
			fmt.Fprintf(out, "Client seed: %s\n", seeds.Client)
			fmt.Fprintf(out, "Nonce: %d\n", flags.nonce)
			fmt.Fprintf(out, "Stages: %d (skip %d)\n\n", res.StageCount, in.Skip())
			fmt.Fprintln(out, res.Log())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the race as JSON")
	return cmd
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/games"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		req        scan.ScanRequest
		stages     int
		metric     string
		color      string
		op         string
		scriptFile string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search a nonce range for races matching a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Seeds.Server == "" {
				return errors.New("--server-seed is required")
			}
			req.TargetOp = scan.TargetOp(op)
			req.Params = map[string]any{"stage_count": stages, "metric": metric, "color": color}
			req.TimeoutMs = int(a.cfg.ScanTimeout.Milliseconds())
			if scriptFile != "" {
				src, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				req.Script = string(src)
			}

			scanner := scan.NewScanner(scan.Config{
				Workers:       a.cfg.ScanWorkers,
				ScriptTimeout: a.cfg.ScriptTimeout,
				Logger:        a.logger,
			})
			res, err := scanner.Scan(cmd.Context(), req)
			if err != nil {
				return err
			}
			res.Echo.Seeds.Server = ""

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Game, "game", "egghunt", "game to scan")
	f.StringVar(&req.Seeds.Server, "server-seed", "", "server seed")
	f.StringVar(&req.Seeds.Client, "client-seed", "egghunt", "client seed")
	f.Uint64Var(&req.NonceStart, "nonce-start", 0, "first nonce")
	f.Uint64Var(&req.NonceEnd, "nonce-end", 10000, "last nonce")
	f.IntVar(&stages, "stages", 5, "stage count")
	f.StringVar(&metric, "metric", games.MetricPlace, "metric to evaluate")
	f.StringVar(&color, "color", "red", "hunter whose place is measured")
	f.StringVar(&op, "op", string(scan.OpEqual), "target operator")
	f.Float64Var(&req.TargetVal, "val", 1, "target value")
	f.Float64Var(&req.TargetVal2, "val2", 0, "upper target value for between and outside")
	f.Float64Var(&req.Tolerance, "tolerance", 0, "match tolerance")
	f.IntVar(&req.Limit, "limit", 100, "maximum hits")
	f.StringVar(&scriptFile, "script", "", "JavaScript file defining match(race)")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BakersDozenBagels/KtaneEggHunt/internal/api"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/scan"
	"github.com/BakersDozenBagels/KtaneEggHunt/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the puzzle and scan API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			if dbPath == "" {
				dbPath = a.cfg.DBPath
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, dbPath)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides EGGHUNT_ADDR)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides EGGHUNT_DB_PATH)")
	return cmd
}

// serve runs the API until ctx is done, then drains in-flight requests.
func (a *app) serve(ctx context.Context, addr, dbPath string) error {
	db, err := store.NewSQLiteDB(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	srv := api.NewServer(db, api.Options{
		Scanner: scan.NewScanner(scan.Config{
			Workers:       a.cfg.ScanWorkers,
			ScriptTimeout: a.cfg.ScriptTimeout,
			Logger:        a.logger,
		}),
		Logger:         a.logger,
		RequestTimeout: a.cfg.ScanTimeout + 5*time.Second,
	})
	httpServer := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	a.logger.WithField("addr", ln.Addr().String()).Info("listening")

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

/*
main.go - Application entry point

PURPOSE:
  Starts the freight ledger server. Wires configuration, the SQLite
  snapshot store, the dispatch container, and the HTTP router, then runs
  with graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse FREIGHT_* environment variables
  2. Configure the global logger
  3. Open the SQLite store
  4. Restore the latest snapshot, or seed demo data on a fresh database
  5. Build the dispatch container with the audit-archive sink
  6. Serve HTTP until SIGINT/SIGTERM, then drain and persist a snapshot

COMMANDS:
  serve    run the HTTP server (default)
  seed     write the demo dataset as a snapshot and exit

ENVIRONMENT (see config/config.go for the full set):
  FREIGHT_ADDR, FREIGHT_DB_PATH, FREIGHT_LOG_LEVEL, FREIGHT_CORS_ORIGINS,
  FREIGHT_AUDIT_BOOKING_MARKING

SEE ALSO:
  - api/server.go: Router configuration
  - dispatch/container.go: State container
  - store/sqlite/sqlite.go: Snapshot and audit persistence
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/warp/freight-ledger/api"
	"github.com/warp/freight-ledger/config"
	"github.com/warp/freight-ledger/dispatch"
	"github.com/warp/freight-ledger/factory"
	"github.com/warp/freight-ledger/ledger"
	"github.com/warp/freight-ledger/logging"
	"github.com/warp/freight-ledger/store/sqlite"
)

func main() {
	root := &cobra.Command{
		Use:           "freight-ledger",
		Short:         "Financial ledger engine for freight operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), seedCmd())
	root.RunE = serveCmd().RunE // bare invocation serves

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func loadConfig() (config.Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogOutput); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.WithComponent("server")

			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			initial, err := restoreOrSeed(cmd.Context(), store)
			if err != nil {
				return err
			}

			container := dispatch.New(initial,
				dispatch.WithReducer(ledger.Reducer{AuditBookingMarking: cfg.AuditBookingMarking}),
				dispatch.WithLogger(logging.WithComponent("dispatch")),
				dispatch.WithAuditSink(func(entries []ledger.AuditLog) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := store.ArchiveAudit(ctx, entries); err != nil {
						logger.Error().Err(err).Int("entries", len(entries)).Msg("audit archive failed")
					}
				}),
			)

			handler := api.NewHandler(container, logging.WithComponent("api"))
			server := &http.Server{
				Addr:         cfg.Addr,
				Handler:      api.NewRouter(handler, cfg.CORSOrigins),
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
				IdleTimeout:  cfg.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.Addr).Msg("server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return err
			}

			// Persist the final state so the next start resumes where we left off.
			if err := store.SaveSnapshot(ctx, container.Snapshot(), time.Now()); err != nil {
				logger.Error().Err(err).Msg("final snapshot failed")
			}

			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the demo dataset as a snapshot and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			now := time.Now()
			state := factory.BuildState(now)
			if err := store.SaveSnapshot(cmd.Context(), state, now); err != nil {
				return err
			}
			seedLog := logging.WithComponent("seed")
			seedLog.Info().Str("db", cfg.DBPath).Msg("demo snapshot written")
			return nil
		},
	}
}

// restoreOrSeed loads the newest snapshot, falling back to the demo dataset
// when the database is empty.
func restoreOrSeed(ctx context.Context, store *sqlite.Store) (ledger.State, error) {
	snap, err := store.LoadLatest(ctx)
	if errors.Is(err, ledger.ErrNoSnapshot) {
		log.Info().Msg("no snapshot found, seeding demo data")
		return factory.BuildState(time.Now()), nil
	}
	if err != nil {
		return ledger.State{}, err
	}
	return ledger.Reduce(ledger.State{}, snap, time.Now()), nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beemart/server/internal/config"
	"github.com/beemart/server/internal/db"
)

const serviceName = "shopd"

func main() {
	// .env in the working directory is optional; real env vars win
	_ = godotenv.Load(".env")

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Storefront auth and catalog API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newCreateAdminCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE:  runServe,
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, database, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(ctx, database); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

// bootstrap loads configuration, installs the global logger and opens the pool.
func bootstrap(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg)

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, database, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(os.Stdout)
	if cfg.DevMode {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger.With().Timestamp().Str("service", serviceName).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

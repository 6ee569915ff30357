package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/config"
	"github.com/Simplici0/vidrieria/internal/db"
	"github.com/Simplici0/vidrieria/internal/migrations"
	"github.com/Simplici0/vidrieria/internal/quote"
	"github.com/Simplici0/vidrieria/internal/seed"
	"github.com/Simplici0/vidrieria/internal/store"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		zlog.Fatal().Err(err).Msg("command failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vidrieria",
		Usage: "glass and aluminium quoting service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "listen port, overrides PORT"},
				},
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "load the catalog document into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "catalog", Usage: "catalog YAML file, overrides CATALOG_PATH"},
				},
				Action: runSeed,
			},
		},
	}
}

// bootstrap loads configuration, configures logging and opens the database.
func bootstrap() (config.Config, zerolog.Logger, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, zlog.Logger, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cfg, zlog.Logger, nil, err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return cfg, logger, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, logger, database, nil
}

func newLogger(cfg config.Config) (zerolog.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zlog.Logger, err
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.Level(lvl).With().Timestamp().Logger()
	zlog.Logger = logger
	return logger, nil
}

func catalogDocument(path string) (catalog.Document, error) {
	if path == "" {
		return catalog.DefaultDocument()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return catalog.ParseDocument(data)
}

func migrateAndSeed(database *sqlx.DB, logger zerolog.Logger, catalogPath string) error {
	if err := migrations.Up(database.DB, logger); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	doc, err := catalogDocument(catalogPath)
	if err != nil {
		return err
	}
	stats, err := seed.Run(database, doc)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("inserts", stats.Inserts).Int("updates", stats.Updates).Msg("catalog seeded")
	return nil
}

func runMigrate(c *cli.Context) error {
	_, logger, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database.DB, logger); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	version, err := migrations.Version(database.DB, logger)
	if err != nil {
		return err
	}
	logger.Info().Int64("version", version).Msg("database migrated")
	return nil
}

func runSeed(c *cli.Context) error {
	cfg, logger, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	path := cfg.CatalogPath
	if c.IsSet("catalog") {
		path = c.String("catalog")
	}
	return migrateAndSeed(database, logger, path)
}

func runServe(c *cli.Context) error {
	cfg, logger, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Migrate() {
		if err := migrateAndSeed(database, logger, cfg.CatalogPath); err != nil {
			return err
		}
	}

	repo := store.New(database)
	cat, err := repo.LoadCatalog(c.Context)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load catalog")
	}
	logger.Info().Int("version", cat.Version()).Msg("catalog loaded")

	srv := newServer(
		quote.NewBuilder(cat, nil),
		quote.NewService(repo, logger, quote.WithSeller(cfg.Seller)),
		logger,
	)

	port := cfg.Port
	if c.IsSet("port") {
		port = c.String("port")
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return httpServer.Shutdown(ctx)
}

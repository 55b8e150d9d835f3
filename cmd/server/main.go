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

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/calvinwijaya/blackjack-be/internal/api"
	"github.com/calvinwijaya/blackjack-be/internal/config"
	"github.com/calvinwijaya/blackjack-be/internal/db"
	"github.com/calvinwijaya/blackjack-be/internal/store"
)

type CLI struct {
	Config      string `short:"c" help:"HCL config file" default:"blackjack.hcl" env:"BLACKJACK_CONFIG" type:"path"`
	Port        int    `short:"p" help:"Server port (overrides config)" env:"PORT"`
	LogLevel    string `help:"Log level: debug, info, warn, error (overrides config)" env:"LOG_LEVEL"`
	FrontendURL string `name:"frontend" help:"Frontend URL for CORS (overrides config)" env:"FRONTEND_URL"`
	DB          string `help:"Archive DSN (overrides config)" env:"DATABASE_URL"`
	Driver      string `help:"Archive driver: sqlite3, postgres, redis or none (overrides config)" env:"ARCHIVE_DRIVER"`
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("blackjack-server"),
		kong.Description("Single-player blackjack table served over HTTP and WebSocket."),
	)

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		kctx.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the archive
	archive, err := openArchive(ctx, cfg.Archive, logger)
	if err != nil {
		logger.Warn("failed to open archive, continuing without history", "driver", cfg.Archive.Driver, "err", err)
		archive = db.Nop{}
	}
	defer archive.Close()

	// Initialize the store
	sessions := store.NewMemoryStore()

	hub := api.NewHub(cfg.Server.FrontendURL, logger)
	handlers := api.NewHandlers(sessions, archive, hub, api.Settings{
		Rules:           cfg.Rules(),
		StartingBalance: cfg.Table.StartingBalance,
		RevealDelay:     cfg.RevealDelay(),
	}, quartz.NewReal(), logger)
	defer handlers.Shutdown()

	// Set up router
	r := mux.NewRouter()
	handlers.RegisterRoutes(r)
	r.Use(api.Logging(logger))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.CORS(cfg.Server.FrontendURL).Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "archive", cfg.Archive.Driver,
			"betUnit", cfg.Table.BetUnit, "maxBet", cfg.Table.MaxBet)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// apply lets command line flags and environment override the config file
func (cli CLI) apply(cfg *config.Config) {
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.Server.LogLevel = cli.LogLevel
	}
	if cli.FrontendURL != "" {
		cfg.Server.FrontendURL = cli.FrontendURL
	}
	if cli.Driver != "" {
		cfg.Archive.Driver = cli.Driver
	}
	if cli.DB != "" {
		cfg.Archive.DSN = cli.DB
	}
}

func openArchive(ctx context.Context, settings config.ArchiveSettings, logger *log.Logger) (db.Archive, error) {
	switch settings.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		return db.NewDatabase(ctx, settings.Driver, settings.DSN, logger)
	case config.DriverRedis:
		rc := db.DefaultRedisConfig()
		rc.URL = settings.DSN
		return db.NewRedisArchive(ctx, rc, logger)
	default:
		return db.Nop{}, nil
	}
}

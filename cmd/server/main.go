package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jredh-dev/easyhope/config"
	"github.com/jredh-dev/easyhope/internal/backend"
	"github.com/jredh-dev/easyhope/internal/comments"
	"github.com/jredh-dev/easyhope/internal/database"
	"github.com/jredh-dev/easyhope/internal/donation"
	"github.com/jredh-dev/easyhope/internal/events"
	"github.com/jredh-dev/easyhope/internal/logging"
	"github.com/jredh-dev/easyhope/internal/moderation"
	"github.com/jredh-dev/easyhope/internal/server"
	"github.com/jredh-dev/easyhope/internal/session"
	"github.com/jredh-dev/easyhope/internal/web/handlers"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Pending donations older than this are swept.
const donationMaxAge = 24 * time.Hour

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("easyhope-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Server.Env)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	var pub events.Publisher
	if len(cfg.Events.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		log.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("publishing activity to kafka")
	} else {
		pub = events.NewLogPublisher(log)
	}
	rec := events.NewRecorder(pub, log)

	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	sessions := session.NewManager(db, api, session.Options{
		MaxAge:          time.Duration(cfg.Session.MaxAge) * time.Second,
		RevalidateAfter: cfg.Session.RevalidateAfter,
	}, log)
	donations := donation.NewService(api, db, donation.Config{
		BrandName:  cfg.Checkout.BrandName,
		ThemeColor: cfg.Checkout.ThemeColor,
	}, rec, log)

	h, err := handlers.New(handlers.Deps{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Comments:  comments.NewService(api),
		Donations: donations,
		Admin:     moderation.NewService(api, rec),
		Events:    rec,
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("initialize handlers: %w", err)
	}

	srv := server.New(log)
	srv.HealthCheck(db.Ping)
	srv.OnStop(func() {
		if err := rec.Close(); err != nil {
			log.Warn().Err(err).Msg("close event publisher")
		}
	})
	h.Routes(srv.Router)

	go sessions.Sweep(ctx, cfg.Session.SweepInterval)
	go donations.Sweep(ctx, cfg.Session.SweepInterval, donationMaxAge)

	log.Info().
		Str("version", version).
		Str("backend", cfg.Backend.BaseURL).
		Str("env", cfg.Server.Env).
		Msg("easyhope frontend ready")
	return srv.Run(ctx, ":"+cfg.Server.Port)
}

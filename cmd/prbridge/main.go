package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/prbridge/internal/config"
	"git.home.luguber.info/inful/prbridge/internal/dedup"
	"git.home.luguber.info/inful/prbridge/internal/digest"
	"git.home.luguber.info/inful/prbridge/internal/event"
	"git.home.luguber.info/inful/prbridge/internal/eventstore"
	"git.home.luguber.info/inful/prbridge/internal/fanout"
	"git.home.luguber.info/inful/prbridge/internal/github"
	"git.home.luguber.info/inful/prbridge/internal/ingest"
	"git.home.luguber.info/inful/prbridge/internal/interact"
	"git.home.luguber.info/inful/prbridge/internal/metrics"
	"git.home.luguber.info/inful/prbridge/internal/retry"
	"git.home.luguber.info/inful/prbridge/internal/server/handlers"
	"git.home.luguber.info/inful/prbridge/internal/server/httpserver"
	"git.home.luguber.info/inful/prbridge/internal/slack"
	"git.home.luguber.info/inful/prbridge/internal/tools"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the webhook relay server"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Events struct{} `cmd:"" help:"Print the retained event log"`

	Status struct{} `cmd:"" help:"Print the repository activity summary"`
}

func main() {
	ctx := kong.Parse(&CLI)

	switch ctx.Command() {
	case "serve":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		setupLogging(cfg)
		if err := runServe(cfg); err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case "init":
		setupLogging(config.Default())
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration file written", "path", CLI.Config)
	case "events":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		setupLogging(cfg)
		if err := runEvents(cfg); err != nil {
			slog.Error("Events failed", "error", err)
			os.Exit(1)
		}
	case "status":
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		setupLogging(cfg)
		if err := runStatus(cfg); err != nil {
			slog.Error("Status failed", "error", err)
			os.Exit(1)
		}
	}
}

// loadConfig reads the config file, falling back to defaults plus environment
// variables when no file exists.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: %s not found, using defaults and environment variables\n", CLI.Config)
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func setupLogging(cfg *config.Config) {
	level := config.NormalizeLogLevel(cfg.Logging.Level).SlogLevel()
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(cfg.Logging.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(cfg *config.Config) (eventstore.Store, error) {
	if cfg.Store.Backend == "sqlite" {
		return eventstore.NewSQLiteStore(cfg.Store.Path, cfg.Store.Capacity)
	}
	return eventstore.NewFileStore(cfg.Store.Path, cfg.Store.Capacity)
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer store.Close()

	normalizer, err := event.NewNormalizer(cfg.Events.PrimaryBranch, cfg.Events.DisplayTimezone)
	if err != nil {
		return err
	}

	initial, _ := time.ParseDuration(cfg.Retry.Initial)
	maxDelay, _ := time.ParseDuration(cfg.Retry.Max)
	policy := retry.NewPolicy(retry.BackoffMode(config.NormalizeRetryBackoff(cfg.Retry.Backoff)), initial, maxDelay, cfg.Retry.MaxRetries)

	dispatcher := slack.NewDispatcher(cfg.Slack.WebhookURL, slack.WithRetryPolicy(policy))
	gateway := github.NewClient(cfg.GitHub.Token, github.WithAPIURL(cfg.GitHub.APIURL))

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	ingestOpts := []ingest.Option{ingest.WithRecorder(recorder)}

	var publisher *fanout.NATSPublisher
	if cfg.Fanout.Enabled {
		publisher, err = fanout.NewNATSPublisher(&cfg.Fanout)
		if err != nil {
			return fmt.Errorf("failed to initialize event fanout: %w", err)
		}
		defer publisher.Close()
		ingestOpts = append(ingestOpts, ingest.WithPublisher(publisher))
	}

	ingestor := ingest.NewIngestor(normalizer, store, dedup.New(cfg.Events.DedupCapacity), dispatcher, slog.Default(), ingestOpts...)
	router := interact.NewRouter(gateway, dispatcher, slog.Default()).WithRecorder(recorder)

	srv := httpserver.New(cfg, httpserver.Options{
		Ingestor:          ingestor,
		InteractionRouter: router,
		APIHandlers:       handlers.NewAPIHandlers(store),
		PrometheusHandler: metrics.HTTPHandler(registry),
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var digestScheduler *digest.Scheduler
	if cfg.Digest.Enabled {
		digestScheduler, err = digest.NewScheduler(store, dispatcher, cfg.DigestInterval())
		if err != nil {
			return err
		}
		if err := digestScheduler.Start(ctx); err != nil {
			return err
		}
	}

	// Hot-reload the branch filter when the config file changes.
	var watcher *config.Watcher
	if _, statErr := os.Stat(CLI.Config); statErr == nil {
		watcher, err = config.NewWatcher(CLI.Config, func(_ context.Context, newCfg *config.Config) error {
			normalizer.SetPrimaryBranch(newCfg.Events.PrimaryBranch)
			return nil
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	slog.Info("Relay running",
		slog.Int("webhook_port", cfg.Server.WebhookPort),
		slog.Int("admin_port", cfg.Server.AdminPort),
		slog.String("primary_branch", cfg.Events.PrimaryBranch))

	<-ctx.Done()
	slog.Info("Shutting down")

	if watcher != nil {
		_ = watcher.Stop()
	}
	if digestScheduler != nil {
		if err := digestScheduler.Stop(); err != nil {
			slog.Error("Failed to stop digest scheduler", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown incomplete", "error", err)
	}

	// Let in-flight notifications finish before the store closes.
	ingestor.Wait()
	return nil
}

func runEvents(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer store.Close()

	tb := tools.NewToolbox(store, nil, nil, cfg.Events.DisplayTimezone)
	fmt.Println(tb.GetRecentEvents(context.Background()))
	return nil
}

func runStatus(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer store.Close()

	tb := tools.NewToolbox(store, nil, nil, cfg.Events.DisplayTimezone)
	fmt.Println(tb.GetRepositoryStatus(context.Background()))
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maltedev/falabella-scraper/internal/api"
	"github.com/maltedev/falabella-scraper/internal/browser"
	"github.com/maltedev/falabella-scraper/internal/catalog"
	"github.com/maltedev/falabella-scraper/internal/config"
	"github.com/maltedev/falabella-scraper/internal/database"
	"github.com/maltedev/falabella-scraper/internal/events"
	"github.com/maltedev/falabella-scraper/internal/scraper"
	"github.com/maltedev/falabella-scraper/internal/storage"
	"github.com/maltedev/falabella-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		maxCategories = flag.Int("max-categories", cfg.Scraper.MaxCategories, "Crawl at most N categories (0 = all)")
		onePage       = flag.Bool("one-page", cfg.Scraper.OnePage, "Stop each category after its first result page")
		category      = flag.String("category", "", "Crawl a single category by name (exact or substring match)")
		maxPages      = flag.Int("max-pages", cfg.Scraper.MaxPages, "Stop each category after N pages (0 = unlimited)")
		fast          = flag.Bool("fast", cfg.Scraper.Fast, "Shorter waits and no detail enrichment")
		discover      = flag.Bool("discover", cfg.Scraper.Discover, "Discover categories from the home page")
		aggregate     = flag.Bool("aggregate", cfg.Output.Aggregate, "Also write every record to one aggregate file")
		headless      = flag.Bool("headless", cfg.Browser.Headless, "Run browser in headless mode")
		outDir        = flag.String("out", cfg.Output.Dir, "Output directory")
	)
	flag.Parse()

	cfg.Scraper.MaxCategories = *maxCategories
	cfg.Scraper.OnePage = *onePage
	cfg.Scraper.MaxPages = *maxPages
	cfg.Scraper.Fast = *fast
	cfg.Scraper.Discover = *discover
	cfg.Output.Aggregate = *aggregate
	cfg.Output.Dir = *outDir
	cfg.Browser.Headless = *headless

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting Falabella category crawler",
		"out", cfg.Output.Dir,
		"one_page", cfg.Scraper.OnePage,
		"max_pages", cfg.Scraper.MaxPages,
		"fast", cfg.Scraper.Fast)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets := loadTargets(ctx, cfg, logger)
	if *category != "" {
		target, err := catalog.Resolve(targets, *category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v; available:\n", err)
			for _, name := range catalog.Names(targets) {
				fmt.Fprintf(os.Stderr, "  - %s\n", name)
			}
			os.Exit(2)
		}
		targets = []catalog.Target{target}
	}

	os.Exit(run(ctx, cfg, targets, logger))
}

func run(ctx context.Context, cfg *config.Config, targets []catalog.Target, logger *slog.Logger) int {
	store, err := storage.NewStore(cfg.Output.Dir)
	if err != nil {
		logger.Error("Failed to prepare output directory", "error", err)
		return 1
	}

	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
		RemoteURL:      cfg.Browser.RemoteURL,
	})
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		return 1
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		logger.Error("Failed to open page", "error", err)
		return 1
	}

	crawl := scraper.NewRun()
	metrics := scraper.NewMetrics()
	progress := scraper.NewProgress(crawl.ID)

	runner := scraper.NewRunner(store, scraper.Options{
		MaxCategories:   cfg.Scraper.MaxCategories,
		OnePage:         cfg.Scraper.OnePage,
		MaxPages:        cfg.Scraper.MaxPages,
		Fast:            cfg.Scraper.Fast,
		Aggregate:       cfg.Output.Aggregate,
		MaxRetries:      cfg.Scraper.MaxRetries,
		NextPageTimeout: cfg.Scraper.NextPageTimeout,
	}, logger)
	runner.Metrics = metrics
	runner.Progress = progress

	var repo *database.ProductRepository
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			return 1
		}
		defer db.Close()

		repo = database.NewProductRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to prepare schema", "error", err)
			return 1
		}
		runner.Sinks = append(runner.Sinks, repo)
	}

	if cfg.Redis.Addr != "" {
		client, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			return 1
		}
		publisher := events.NewStreamPublisher(client, cfg.Redis.Stream, cfg.Redis.MaxLen, logger)
		defer publisher.Close()
		runner.Sinks = append(runner.Sinks, publisher)
	}

	if cfg.Status.Addr != "" {
		server := api.NewServer(cfg.Status.Addr, api.NewRouter(progress, metrics.Registry, logger), logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Status server shutdown failed", "error", err)
			}
		}()
	}

	summary, err := runner.Run(ctx, page, crawl, targets)
	if summary != nil {
		logSummary(logger, summary)
	}
	if repo != nil {
		// The shutdown signal may already have cancelled ctx.
		countCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		stored, cerr := repo.CountRun(countCtx, crawl.ID)
		cancel()
		if cerr != nil {
			logger.Warn("Failed to count stored records", "error", cerr)
		} else {
			logger.Info("Records stored in database", "count", stored)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Crawl interrupted")
			return 130
		}
		logger.Error("Crawl failed", "error", err)
		return 1
	}

	return 0
}

// loadTargets returns the discovered categories, or the built-in table when
// discovery is off or yields nothing.
func loadTargets(ctx context.Context, cfg *config.Config, logger *slog.Logger) []catalog.Target {
	if !cfg.Scraper.Discover {
		return catalog.Default()
	}

	d := catalog.NewDiscoverer(cfg.Browser.UserAgent)
	d.Logger = logger
	targets, err := d.Discover(ctx)
	if err != nil {
		logger.Warn("Category discovery failed, using built-in list", "error", err)
		return catalog.Default()
	}
	if len(targets) == 0 {
		logger.Warn("Category discovery found nothing, using built-in list")
		return catalog.Default()
	}

	logger.Info("Discovered categories", "count", len(targets))
	return targets
}

func logSummary(logger *slog.Logger, summary *scraper.Summary) {
	logger.Info("Crawl finished",
		"run_id", summary.RunID,
		"categories", len(summary.Categories),
		"failed", len(summary.Failed),
		"records", summary.Records,
		"duration", summary.Duration.Round(time.Second))

	for _, c := range summary.Categories {
		logger.Info("Category",
			"name", c.Name,
			"pages", c.Pages,
			"records", len(c.Records),
			"end_reason", c.EndReason)
	}
	if len(summary.Failed) > 0 {
		names := make([]string, 0, len(summary.Failed))
		for _, f := range summary.Failed {
			names = append(names, f.Name)
		}
		logger.Warn("Categories skipped after errors", "names", strings.Join(names, ", "))
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/toppicks/bestseller-scraper/internal/api"
	"github.com/toppicks/bestseller-scraper/internal/browser"
	"github.com/toppicks/bestseller-scraper/internal/config"
	"github.com/toppicks/bestseller-scraper/internal/discovery"
	"github.com/toppicks/bestseller-scraper/internal/events"
	"github.com/toppicks/bestseller-scraper/internal/extractor"
	"github.com/toppicks/bestseller-scraper/internal/ingest"
	"github.com/toppicks/bestseller-scraper/internal/logger"
	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/orchestrator"
	"github.com/toppicks/bestseller-scraper/internal/ratelimit"
	"github.com/toppicks/bestseller-scraper/internal/storage"
)

const (
	defaultBatchSize = 50
	fullRunBatchSize = 100
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	command := os.Args[1]
	switch command {
	case "discover", "scrape", "full":
	default:
		printUsage()
		return
	}

	if err := run(command, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: scraper <command>

Commands:
  discover                       crawl the category tree and write the category list
  scrape [batchSize] [startIndex] process one batch of categories (default batch 50,
                                 resuming from the last checkpoint unless startIndex given)
  full                           discovery followed by a first batch of 100`)
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	// Credentials are checked before any scraping work begins.
	ingestClient, err := ingest.NewClient(cfg.Ingest.BaseURL, cfg.Ingest.Token, cfg.Ingest.Timeout, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	stateStore := storage.NewStateStore(cfg.Files.StatePath)
	categoryStore := storage.NewCategoryStore(cfg.Files.CategoriesPath)

	if cfg.Ops.Addr != "" {
		api.NewServer(stateStore, m, log).Start(cfg.Ops.Addr)
	}

	var publisher *events.Publisher
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		publisher = events.NewPublisher(rdb, log)
		defer publisher.Close()
	}

	session := browser.NewSession(&browser.Options{
		Headless:       cfg.Browser.Headless,
		NavTimeout:     cfg.Browser.NavTimeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		MaxRetries:     cfg.Browser.MaxRetries,
		UserAgents:     cfg.Browser.UserAgents,
		AcceptLanguage: "en-US,en;q=0.9",
		ChallengeWait:  ratelimit.Jittered(cfg.Delays.BotChallengeMin, cfg.Delays.BotChallengeMax),
		Backoff:        ratelimit.Exponential(cfg.Delays.BackoffBase),
	}, log, m)
	if err := session.Launch(); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer session.Close()

	settle := ratelimit.Jittered(cfg.Delays.SettleMin, cfg.Delays.SettleMax)

	discoverer := discovery.New(session, discovery.Options{
		RootURL:             cfg.Site.BestsellersURL,
		BaseURL:             cfg.Site.BaseURL,
		SelectorWait:        cfg.Browser.SelectorWait,
		MaxDepartments:      cfg.Discovery.MaxDepartments,
		MaxCategoriesPerDpt: cfg.Discovery.MaxCategoriesPerDpt,
		Settle:              settle,
		InterDepartment:     ratelimit.Jittered(cfg.Delays.DepartmentMin, cfg.Delays.DepartmentMax),
	}, log, m)

	runner := orchestrator.New(
		categoryStore,
		stateStore,
		extractor.New(session, cfg.Site.BaseURL, settle, log),
		ingestClient,
		publisher,
		orchestrator.Options{
			InterCategory: ratelimit.Jittered(cfg.Delays.CategoryMin, cfg.Delays.CategoryMax),
			Enrich:        getEnvBool("ENRICH_PRODUCTS"),
		},
		log,
		m,
	)

	switch command {
	case "discover":
		return runDiscovery(ctx, discoverer, categoryStore, log)

	case "scrape":
		batchSize, startIndex, err := parseScrapeArgs(args)
		if err != nil {
			return err
		}
		return runBatch(ctx, runner, batchSize, startIndex, log)

	case "full":
		if err := runDiscovery(ctx, discoverer, categoryStore, log); err != nil {
			return err
		}
		return runBatch(ctx, runner, fullRunBatchSize, 0, log)
	}
	return nil
}

func runDiscovery(ctx context.Context, d *discovery.Discoverer, store *storage.CategoryStore, log *slog.Logger) error {
	categories, err := d.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if err := store.Save(categories); err != nil {
		return fmt.Errorf("failed to save category list: %w", err)
	}

	log.Info("category list written", "categories", len(categories))
	return nil
}

func runBatch(ctx context.Context, runner *orchestrator.Orchestrator, batchSize, startIndex int, log *slog.Logger) error {
	summary, err := runner.RunBatch(ctx, batchSize, startIndex)
	if err != nil {
		return err
	}

	log.Info("run summary",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"submitted", summary.Submitted,
		"errors", len(summary.Errors),
		"next_index", summary.NextIndex,
		"total_categories", summary.TotalCount,
	)
	for _, scrapeErr := range summary.Errors {
		log.Warn("failed category", "fullSlug", scrapeErr.FullSlug, "error", scrapeErr.Message)
	}
	return nil
}

func parseScrapeArgs(args []string) (batchSize, startIndex int, err error) {
	batchSize = defaultBatchSize
	startIndex = -1 // resume from checkpoint

	if len(args) >= 1 {
		batchSize, err = strconv.Atoi(args[0])
		if err != nil || batchSize < 1 {
			return 0, 0, fmt.Errorf("invalid batch size %q", args[0])
		}
	}
	if len(args) >= 2 {
		startIndex, err = strconv.Atoi(args[1])
		if err != nil || startIndex < 0 {
			return 0, 0, fmt.Errorf("invalid start index %q", args[1])
		}
	}
	return batchSize, startIndex, nil
}

func getEnvBool(key string) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && value
}

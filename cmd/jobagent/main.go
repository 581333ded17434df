package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/agstya/antigravity-job-search-agent/internal/config"
	"github.com/agstya/antigravity-job-search-agent/internal/dedupe"
	"github.com/agstya/antigravity-job-search-agent/internal/pipeline"
	"github.com/agstya/antigravity-job-search-agent/internal/report"
	"github.com/agstya/antigravity-job-search-agent/internal/reputation"
	"github.com/agstya/antigravity-job-search-agent/internal/scoring"
	"github.com/agstya/antigravity-job-search-agent/internal/search"
	"github.com/agstya/antigravity-job-search-agent/internal/storage"
	"github.com/agstya/antigravity-job-search-agent/internal/vector"
)

func main() {
	// Local overrides are optional; env vars win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		mode := runFlags.String("mode", "daily", "Run mode: daily or weekly")
		dryRun := runFlags.Bool("dry-run", false, "Skip LLM scoring and email, exercise the full pipeline")
		noEmail := runFlags.Bool("no-email", false, "Generate the report but do not send email")
		runFlags.Parse(args)

		runOnce(cfg, pipeline.Options{Mode: *mode, DryRun: *dryRun, NoEmail: *noEmail})

	case "schedule":
		schedFlags := flag.NewFlagSet("schedule", flag.ExitOnError)
		spec := schedFlags.String("spec", "@every 24h", "Cron spec for recurring runs")
		mode := schedFlags.String("mode", "daily", "Run mode: daily or weekly")
		noEmail := schedFlags.Bool("no-email", false, "Generate reports but do not send email")
		schedFlags.Parse(args)

		runSchedule(cfg, *spec, pipeline.Options{Mode: *mode, NoEmail: *noEmail})

	case "search":
		searchFlags := flag.NewFlagSet("search", flag.ExitOnError)
		limit := searchFlags.Int("limit", 10, "Maximum number of results")
		searchFlags.Parse(args)

		if searchFlags.NArg() < 1 {
			fmt.Println("Error: search query required")
			fmt.Println("Usage: jobagent search [-limit N] <query>")
			os.Exit(1)
		}
		runSearch(cfg, strings.Join(searchFlags.Args(), " "), *limit)

	case "history":
		histFlags := flag.NewFlagSet("history", flag.ExitOnError)
		n := histFlags.Int("n", 10, "Number of recent runs to show")
		histFlags.Parse(args)

		runHistory(cfg, *n)

	case "stats":
		runStats(cfg)

	case "reindex":
		runReindex(cfg)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("jobagent - automated job posting discovery")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  jobagent <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run [flags]              Run the discovery pipeline once")
	fmt.Println("  schedule [flags]         Run the pipeline on a recurring schedule")
	fmt.Println("  search [flags] <query>   Full-text search over the persisted job history")
	fmt.Println("  history [-n N]           Show recent pipeline runs")
	fmt.Println("  stats                    Show job history statistics")
	fmt.Println("  reindex                  Rebuild the full-text index from the job history")
	fmt.Println()
	fmt.Println("Run Flags:")
	fmt.Println("  -mode=daily|weekly  Run mode (default: daily)")
	fmt.Println("  -dry-run            Skip LLM scoring and email")
	fmt.Println("  -no-email           Generate the report but do not send email")
	fmt.Println()
	fmt.Println("Schedule Flags:")
	fmt.Println("  -spec=<cron>        Cron spec, e.g. \"@every 24h\" or \"0 8 * * *\"")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  jobagent run -dry-run")
	fmt.Println("  jobagent run -mode=weekly -no-email")
	fmt.Println("  jobagent schedule -spec=\"0 8 * * *\"")
	fmt.Println("  jobagent search \"machine learning\"")
	fmt.Println("  jobagent search 'platform~'      # fuzzy")
}

// buildExecutor opens the store and wires the pipeline components.
// The returned cleanup closes everything that was opened.
func buildExecutor(cfg config.Config, dryRun bool) (*pipeline.Executor, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.Open(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	idx, err := search.Open(filepath.Join(cfg.DataDir, "jobs.bleve"))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open search index: %w", err)
	}

	embedder := vector.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbeddingModel)
	vecIndex := vector.NewIndex(embedder, store)

	var scorer pipeline.Scorer
	if dryRun {
		scorer = scoring.NewDryRunScorer()
	} else {
		scorer = scoring.NewScorer(cfg.OllamaBaseURL, cfg.ScoringModel)
	}

	var searx *reputation.SearxClient
	if cfg.SearxEnabled {
		searx = reputation.NewSearxClient(cfg.SearxURL)
	}

	var notifier report.Notifier
	if cfg.EmailFrom != "" && cfg.EmailPassword != "" {
		notifier = &report.SMTPNotifier{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
			Password: cfg.EmailPassword,
		}
	}

	e := &pipeline.Executor{
		Config:   cfg,
		Store:    store,
		Dedupe:   dedupe.NewEngine(store, vecIndex, float32(cfg.SemanticThreshold)),
		Scorer:   scorer,
		Checker:  reputation.NewChecker(searx),
		Indexer:  idx,
		Notifier: notifier,
	}
	cleanup := func() {
		idx.Close()
		store.Close()
	}
	return e, cleanup, nil
}

func runOnce(cfg config.Config, opts pipeline.Options) {
	e, cleanup, err := buildExecutor(cfg, opts.DryRun)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer cleanup()

	result, err := e.Run(context.Background(), opts)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	printResult(result)
}

func runSchedule(cfg config.Config, spec string, opts pipeline.Options) {
	e, cleanup, err := buildExecutor(cfg, false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer cleanup()

	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		result, err := e.Run(context.Background(), opts)
		if err != nil {
			log.Printf("scheduled run failed: %v", err)
			return
		}
		printResult(result)
	})
	if err != nil {
		log.Fatalf("Invalid cron spec %q: %v", spec, err)
	}

	log.Printf("scheduler started with spec %q", spec)
	c.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down scheduler")
	<-c.Stop().Done()
}

func printResult(r *pipeline.RunResult) {
	fmt.Println()
	fmt.Println("=== Run Complete ===")
	fmt.Printf("Run ID:    %s\n", r.RunID)
	fmt.Printf("Fetched:   %d\n", r.TotalFetched)
	fmt.Printf("Scored:    %d\n", r.TotalScored)
	fmt.Printf("Matched:   %d\n", r.TotalMatched)
	fmt.Printf("New:       %d\n", r.TotalNew)
	fmt.Printf("Duration:  %v\n", r.Duration.Round(time.Millisecond))
	if r.ReportPath != "" {
		fmt.Printf("Report:    %s\n", r.ReportPath)
	}
	fmt.Printf("Email:     %v\n", r.EmailSent)
	if len(r.Errors) > 0 {
		fmt.Printf("Errors:    %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}

func runSearch(cfg config.Config, query string, limit int) {
	idx, err := search.Open(filepath.Join(cfg.DataDir, "jobs.bleve"))
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	hits, err := idx.Search(query, limit)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, h := range hits {
		fmt.Printf("%d. %s at %s (score %.2f)\n   %s\n", i+1, h.Title, h.Company, h.Score, h.URL)
	}
}

func runHistory(cfg config.Config, n int) {
	store, err := storage.Open(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(n)
	if err != nil {
		log.Fatalf("Error listing runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %s (%s): fetched %d, matched %d, new %d, errors %d, %v\n",
			r.RunDate, r.RunID[:8], r.Mode,
			r.TotalFetched, r.TotalMatched, r.TotalNew, len(r.Errors),
			r.Duration.Round(time.Millisecond))
	}
}

func runStats(cfg config.Config) {
	store, err := storage.Open(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer store.Close()

	total, err := store.CountJobs()
	if err != nil {
		log.Fatalf("Error counting jobs: %v", err)
	}
	fmt.Printf("Jobs in history: %d\n", total)

	idx, err := search.Open(filepath.Join(cfg.DataDir, "jobs.bleve"))
	if err == nil {
		defer idx.Close()
		if n, err := idx.Count(); err == nil {
			fmt.Printf("Indexed jobs:    %d\n", n)
		}
	}

	runs, err := store.ListRuns(1)
	if err == nil && len(runs) > 0 {
		fmt.Printf("Last run:        %s (%d new)\n", runs[0].RunDate, runs[0].TotalNew)
	}
}

func runReindex(cfg config.Config) {
	store, err := storage.Open(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer store.Close()

	idx, err := search.Open(filepath.Join(cfg.DataDir, "jobs.bleve"))
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	start := time.Now()
	if err := idx.Rebuild(store); err != nil {
		log.Fatalf("Reindex failed: %v", err)
	}
	n, _ := idx.Count()
	fmt.Printf("Reindexed %d jobs in %v\n", n, time.Since(start).Round(time.Millisecond))
}

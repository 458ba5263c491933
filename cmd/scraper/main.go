package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/aluiziolira/go-scrape-detmir/pipeline"
	"github.com/aluiziolira/go-scrape-detmir/scraper"
	"github.com/aluiziolira/go-scrape-detmir/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	outputFile := flag.String("output", cfg.OutputFile, "Output file path")
	outputFormat := flag.String("format", cfg.OutputFormat, "Output format: csv, json, dual, or sqlite")
	cities := flag.String("cities", "", "Comma separated cities to scrape (default: all)")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if *cities != "" {
		parsed, err := config.ParseCities(*cities)
		if err != nil {
			slog.Error("invalid cities", slog.Any("error", err))
			os.Exit(1)
		}
		cfg.Cities = parsed
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("catalog", cfg.CatalogURL),
		slog.Int("cities", len(cfg.Cities)),
		slog.Int("max_attempts", cfg.MaxAttempts),
		slog.String("output", cfg.OutputFile),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		slog.Error("initialising session provider", slog.Any("error", err))
		os.Exit(1)
	}

	dataset, err := pipeline.NewDataset(cfg.DuplicateWindow)
	if err != nil {
		slog.Error("initialising dataset", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	result, runErr := s.Run(ctx, provider, dataset)
	if runErr != nil {
		slog.Error("scraping interrupted", slog.Any("error", runErr))
	}

	// Records collected before an interruption are still written.
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := dataset.Export(writer); err != nil {
		slog.Error("export failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), cfg.OutputFile, dataset.GetMetrics())

	if runErr != nil || len(result.FailedTargets) == len(cfg.Cities) {
		os.Exit(1)
	}
}

func newProvider(cfg *config.Config) (session.Provider, error) {
	if cfg.Cookies != "" {
		slog.Info("using static session cookies")
		return session.NewStaticProvider(cfg.Cookies)
	}
	return session.NewChromeProvider(cfg), nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "sqlite":
		return pipeline.NewSQLiteWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ScraperResult, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Total records: %d\n", result.TotalCount)
	for _, city := range slices.Sorted(maps.Keys(result.RecordsByCity)) {
		fmt.Printf("    %-20s %d\n", city+":", result.RecordsByCity[city])
	}
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	if len(result.FailedPages) > 0 {
		fmt.Printf("  Failed pages:  %v\n", result.FailedPages)
	}
	if len(result.FailedTargets) > 0 {
		fmt.Printf("  Failed cities: %v\n", result.FailedTargets)
	}
	if result.InvalidItems > 0 {
		fmt.Printf("  Invalid items: %d\n", result.InvalidItems)
	}
	if dup, ok := metrics["duplicate_ids"].(int64); ok && dup > 0 {
		fmt.Printf("  Duplicate ids: %d\n", dup)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avasilkov/hltb-crawler/config"
	"github.com/avasilkov/hltb-crawler/fetch"
	"github.com/avasilkov/hltb-crawler/models"
	"github.com/avasilkov/hltb-crawler/pipeline"
)

func main() {
	defaultCfg := config.DefaultConfig()

	countDefault := strconv.Itoa(defaultCfg.Count)
	if value, ok := config.EnvString("HLTB_COUNT"); ok {
		countDefault = value
	}
	startDefault := defaultCfg.StartID
	if value, ok, err := config.EnvInt("HLTB_START"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid HLTB_START: %v\n", err)
		os.Exit(1)
	} else if ok {
		startDefault = value
	}
	concurrencyDefault := defaultCfg.Concurrency
	if value, ok, err := config.EnvInt("HLTB_CONCURRENCY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid HLTB_CONCURRENCY: %v\n", err)
		os.Exit(1)
	} else if ok {
		concurrencyDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("HLTB_OUTPUT"); ok {
		outputDefault = value
	}
	logDefault := defaultCfg.LogFile
	if value, ok := config.EnvString("HLTB_LOG"); ok {
		logDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("HLTB_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	count := flag.String("count", countDefault, `How many ids to attempt, or "*" for unbounded mode with auto-stop`)
	start := flag.Int("start", startDefault, "Explicit start id (0 resumes from the store)")
	concurrency := flag.Int("concurrency", concurrencyDefault, "Number of concurrent requests")
	missThreshold := flag.Int("miss-threshold", defaultCfg.MissThreshold, "Consecutive misses that stop an unbounded crawl")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Request timeout (seconds)")
	maxAttempts := flag.Int("max-attempts", defaultCfg.MaxAttempts, "Maximum fetch attempts per id")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Politeness delay between requests (milliseconds)")
	randomDelayMs := flag.Int("random-delay", int(defaultCfg.RandomDelay/time.Millisecond), "Random jitter added to the politeness delay (milliseconds)")
	outputFile := flag.String("output", outputDefault, "Output store path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	logFile := flag.String("log", logDefault, "Log file path")
	pageURL := flag.String("page-url", defaultCfg.PageURL, "Page URL template with one %d placeholder")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	respectRobots := flag.Bool("respect-robots", defaultCfg.RespectRobotsTxt, "Respect robots.txt directives")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.PageURL = *pageURL
	cfg.StartID = *start
	cfg.Concurrency = *concurrency
	cfg.MissThreshold = *missThreshold
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.LogFile = *logFile
	cfg.MetricsAddr = *metricsAddr
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose

	if strings.TrimSpace(*count) == "*" {
		cfg.Unbounded = true
		cfg.Count = 0
	} else {
		parsed, err := strconv.Atoi(strings.TrimSpace(*count))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid count %q: must be a number or \"*\"\n", *count)
			os.Exit(1)
		}
		cfg.Count = parsed
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logSink, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logSink.Close()
	slog.SetDefault(newLogger(logSink, cfg.Verbose))

	state, err := pipeline.LoadState(cfg.OutputFile, cfg.StartID)
	if err != nil {
		slog.Error("load crawl state", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := fetch.NewMetrics()
	fetcher, err := fetch.New(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, draining the queue")
	}()

	mode := strconv.Itoa(cfg.Count)
	if cfg.Unbounded {
		mode = "*"
	}
	slog.Info("resume",
		slog.Int("start_id", state.NextID),
		slog.String("mode", mode),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Int("miss_threshold", cfg.MissThreshold),
		slog.Int("known_ids", len(state.Known)),
		slog.String("output", cfg.OutputFile),
	)

	summary := pipeline.New(cfg, fetcher, writer, state, metrics).Run(ctx)

	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
	}
	if summary.Stored > 0 {
		if err := writer.Validate(); err != nil {
			slog.Error("output validation failed", slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, cfg.OutputFile)
}

func createWriter(format, filename string) (pipeline.RecordWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(summary *models.RunSummary, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")
	fmt.Printf("  Stored:       %d\n", summary.Stored)
	fmt.Printf("  Skipped:      %d\n", summary.Skipped)
	fmt.Printf("  Duplicates:   %d\n", summary.Duplicates)
	fmt.Printf("  Errors:       %d\n", summary.Errors)
	fmt.Printf("  Last id:      %d\n", summary.LastID)
	if summary.AutoStop {
		fmt.Println("  Stopped by:   miss threshold")
	}
	fmt.Printf("  Duration:     %v\n", summary.EndTime.Sub(summary.StartTime).Round(time.Second))
	fmt.Printf("  Output file:  %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(sink io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	// Console lines stay human-readable; the log file keeps the same stream.
	out := io.MultiWriter(os.Stdout, sink)
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

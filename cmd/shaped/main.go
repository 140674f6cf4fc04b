package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goshape/shaper-core/internal/metrics"
	"github.com/goshape/shaper-core/internal/shaped"
	"github.com/goshape/shaper-core/pkg/config"
	"github.com/goshape/shaper-core/pkg/logger"
)

func main() {
	var httpAddr string
	var logLevel string
	var scenarioPath string
	var scenarioName string
	var csvPath string

	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&scenarioPath, "scenario", "", "run a scenario YAML file once and exit")
	flag.StringVar(&scenarioName, "preset", "", "run a built-in scenario once and exit (basic, priority, bursty)")
	flag.StringVar(&csvPath, "csv", "", "statistics CSV output path for one-shot runs")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	if scenarioPath != "" || scenarioName != "" {
		os.Exit(runOnce(scenarioPath, scenarioName, csvPath))
	}

	serve(httpAddr)
}

// runOnce executes a single scenario in the foreground, prints the
// summary table and optionally writes the statistics CSV.
func runOnce(scenarioPath, scenarioName, csvPath string) int {
	if scenarioPath != "" && scenarioName != "" {
		logger.Error("-scenario and -preset are mutually exclusive")
		return 1
	}

	var scenario *config.Scenario
	var err error
	if scenarioPath != "" {
		scenario, err = config.LoadScenario(scenarioPath)
	} else {
		scenario, err = shaped.BuiltinScenario(scenarioName)
	}
	if err != nil {
		logger.Error("loading scenario failed", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := shaped.NewRunStore()
	executor := shaped.NewRunExecutor(store, nil)

	rec, err := store.Create("", scenario)
	if err != nil {
		logger.Error("creating run failed", "error", err)
		return 1
	}
	executor.StartRun(rec)

	runID := rec.Run.ID
	go func() {
		<-ctx.Done()
		executor.StopRun(runID)
	}()

	for {
		run, _ := store.Snapshot(runID)
		if run.Status.Terminal() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	executor.Shutdown()

	run, _ := store.Snapshot(runID)
	if run.Error != "" {
		logger.Error("run failed", "error", run.Error)
		return 1
	}
	if collector, _ := store.GetCollector(runID); collector != nil {
		if err := collector.WriteSummary(os.Stdout); err != nil {
			logger.Error("writing summary failed", "error", err)
		}
		if csvPath != "" {
			if err := collector.SaveCSV(csvPath); err != nil {
				logger.Error("writing CSV failed", "error", err)
				return 1
			}
			logger.Info("statistics written", "path", csvPath)
		}
	}
	return 0
}

// serve runs the daemon until interrupted
func serve(httpAddr string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := shaped.NewRunStore()
	prom := metrics.NewProm()
	executor := shaped.NewRunExecutor(store, prom)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           shaped.NewHTTPServer(store, executor, prom).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.Shutdown()
}

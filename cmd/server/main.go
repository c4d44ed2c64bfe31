package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/istat-census/pkg/api"
	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/kit"
	"github.com/hazyhaar/istat-census/pkg/llm"
	"github.com/hazyhaar/istat-census/pkg/metrics"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/hazyhaar/istat-census/pkg/query"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "build":
		cmdBuild(os.Args[2:])
	case "fetch":
		cmdFetch(os.Args[2:])
	case "ask":
		cmdAsk(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: istat-census <command> [flags]

Commands:
  serve   Start the HTTP and MCP server
  build   Download the SDMX catalog into the data directory
  fetch   Query the population dataflow directly
  ask     Answer one natural-language question and print the document
`)
}

// app holds the runtime graph shared by serve and ask.
type app struct {
	cfg       config
	logger    *slog.Logger
	metrics   *metrics.Collector
	client    *sdmx.Client
	store     *catalog.Store
	locations *catalog.Locations
	toolbox   *query.Toolbox
	service   *query.Service
}

func newApp(ctx context.Context, cfg config, logger *slog.Logger) *app {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewCollector("istat_census")}
	a.client = sdmx.NewClient(cfg.SDMX, logger, sdmx.WithObserver(a.metrics))
	a.store = catalog.NewStore(cfg.DataDir)

	a.locations = catalog.NewLocations(a.store, cfg.Municipalities)
	if err := a.locations.Load(); err != nil {
		logger.Warn("location catalog unavailable, run the build command", "dir", cfg.DataDir, "error", err)
	} else {
		logger.Info("locations loaded", "count", a.locations.Count())
	}

	fetcher := population.NewFetcher(a.client, a.locations, cfg.Population, logger)
	a.toolbox = query.NewToolbox(fetcher,
		kit.Logging(logger.With("component", "tools"), query.FetchPopulationTool),
		kit.Timeout(cfg.QueryTimeout),
	)

	// Without a usable model the server still serves the catalog; queries
	// answer with the configuration error.
	model, err := llm.New(ctx, cfg.LLM, "", logger)
	if err != nil {
		logger.Warn("language model unavailable", "error", err)
	}
	a.service = query.NewService(model, a.toolbox, a.locations, logger, a.metrics).WithModelError(err)
	logger.Info("query pipeline ready", "tools", a.toolbox.Names(), "model_ready", model != nil)
	return a
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, logger := mustLoad(*cfgPath)
	if *addr != "" {
		cfg.Addr = *addr
	}

	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	checker := sdmx.NewChecker(sdmx.DefaultEndpoints(a.client), logger, cfg.CheckInterval, a.metrics)

	deps := api.Deps{
		Query:        a.service,
		Locations:    a.locations,
		Dataflows:    a.store,
		ManifestPath: a.store.ManifestPath(),
		Checker:      checker,
		Metrics:      a.metrics.Handler(),
		Observer:     a.metrics,
		Logger:       logger,
	}
	mcpSrv := api.NewMCPServer("istat-census", version, a.toolbox, deps)
	deps.MCP = server.NewStreamableHTTPServer(mcpSrv)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: hot reload the location catalog after a rebuild.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading locations")
			if err := a.locations.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("locations reloaded", "count", a.locations.Count())
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("istat-census listening", "addr", cfg.Addr, "mcp", "/mcp")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		checker.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

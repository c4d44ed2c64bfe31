package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/metrics"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
	"github.com/prometheus/client_golang/prometheus"
)

func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	dataDir := fs.String("data-dir", "", "output directory (overrides config)")
	only := fs.String("only", "", "comma-separated step ids to run (default: all)")
	list := fs.Bool("list", false, "list the build steps and exit")
	metricsFile := fs.String("metrics-file", "", "write build metrics to this file in Prometheus text format")
	fs.Parse(args)

	cfg, logger := mustLoad(*cfgPath)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	collector := metrics.NewCollector("istat_census")
	client := sdmx.NewClient(cfg.SDMX, logger, sdmx.WithObserver(collector))
	store := catalog.NewStore(cfg.DataDir)
	b := catalog.NewBuilder(client, store, cfg.Build, logger, collector)

	if *list {
		renderSteps(os.Stdout, b.Steps())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Hour)
	defer cancel()

	logger.Info("building catalog", "dir", store.Dir(), "base_url", client.Config().BaseURL)
	m, err := b.Run(ctx, splitList(*only)...)
	if m != nil {
		renderManifest(os.Stdout, m)
		fmt.Printf("manifest: %s\n", store.ManifestPath())
	}
	if *metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*metricsFile, collector.Registry()); werr != nil {
			logger.Error("write metrics", "path", *metricsFile, "error", werr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

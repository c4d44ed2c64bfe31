package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	locations := fs.String("locations", population.DefaultLocation, "territorial codes joined with '+' (e.g. ITD55+ITD57)")
	sex := fs.String("sex", population.DefaultSex, "1 male, 2 female, 9 total; joined with '+'")
	ageSpec := fs.String("age", population.DefaultAge, "age spec: TOTAL, Y18, Y_GE65, Y85-Y90, Y98-Y100_GE")
	start := fs.String("start", population.DefaultStartPeriod, "start period")
	end := fs.String("end", population.DefaultEndPeriod, "end period")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Parse(args)

	cfg, logger := mustLoad(*cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Location names are optional here: rows fall back to the placeholder
	// when the catalog has not been built.
	locs := catalog.NewLocations(catalog.NewStore(cfg.DataDir), cfg.Municipalities)
	if err := locs.Load(); err != nil {
		logger.Warn("location catalog unavailable", "error", err)
	}

	f := population.NewFetcher(sdmx.NewClient(cfg.SDMX, logger), locs, cfg.Population, logger)
	res, err := f.Fetch(ctx, population.Request{
		LocationIDs: strings.ToUpper(*locations),
		Sex:         *sex,
		Age:         *ageSpec,
		StartPeriod: *start,
		EndPeriod:   *end,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		enc.Encode(res)
		return
	}
	renderRows(os.Stdout, res)
}

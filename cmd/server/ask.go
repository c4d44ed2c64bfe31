package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hazyhaar/istat-census/pkg/query"
)

func cmdAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "Usage: istat-census ask [-config path] <question>")
		os.Exit(1)
	}

	cfg, logger := mustLoad(*cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	var out any
	resp, err := a.service.Answer(ctx, prompt)
	switch {
	case err == nil:
		out = resp
	case errors.Is(err, query.ErrNoResults):
		out = query.NoResultsMessage
	default:
		fmt.Fprintf(os.Stderr, "ask: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	enc.Encode(out)
}

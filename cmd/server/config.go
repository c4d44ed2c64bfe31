package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/llm"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr           string        `yaml:"addr"`
	DataDir        string        `yaml:"data_dir"`
	LogLevel       string        `yaml:"log_level"`
	Municipalities bool          `yaml:"municipalities"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`

	SDMX       sdmx.Config         `yaml:"sdmx"`
	Build      catalog.BuildConfig `yaml:"build"`
	Population population.Config   `yaml:"population"`
	LLM        llm.Config          `yaml:"llm"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8421",
		DataDir:       "data",
		LogLevel:      "info",
		CheckInterval: 10 * time.Minute,
		QueryTimeout:  2 * time.Minute,
		SDMX:          sdmx.DefaultConfig(),
		Build:         catalog.DefaultBuildConfig(),
		Population:    population.DefaultConfig(),
		LLM:           llm.Config{Default: llm.DefaultModel},
	}
}

// loadConfig reads the YAML file at path over the defaults. Environment
// variables ($AZURE_OPENAI_API_KEY, ...) are expanded before parsing so
// secrets stay out of the file. A missing file yields the defaults.
func loadConfig(path string) (config, bool, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.LLM.Default == "" {
		cfg.LLM.Default = llm.DefaultModel
	}
	return cfg, true, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// mustLoad loads the config and the logger it configures, exiting on error.
func mustLoad(path string) (config, *slog.Logger) {
	cfg, found, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	if !found {
		logger.Info("no config file, using defaults", "path", path)
	}
	return cfg, logger
}

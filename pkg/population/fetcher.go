package population

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/age"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// Request selects population series. Multiple locations or sexes are joined
// with '+'; Age is one age specification as understood by age.Combine.
type Request struct {
	LocationIDs string `json:"location_ids"`
	Sex         string `json:"sex"`
	Age         string `json:"age"`
	StartPeriod string `json:"start_period"`
	EndPeriod   string `json:"end_period"`
}

// Request defaults: Italy, both sexes, every age, year 2023.
const (
	DefaultLocation    = "IT"
	DefaultSex         = "9"
	DefaultAge         = age.Total
	DefaultStartPeriod = "2023-01-01"
	DefaultEndPeriod   = "2023-12-31"
)

// WithDefaults fills empty fields and strips whitespace.
func (r Request) WithDefaults() Request {
	clean := func(s, def string) string {
		s = strings.Join(strings.Fields(s), "")
		if s == "" {
			return def
		}
		return s
	}
	return Request{
		LocationIDs: clean(r.LocationIDs, DefaultLocation),
		Sex:         clean(r.Sex, DefaultSex),
		Age:         clean(r.Age, DefaultAge),
		StartPeriod: clean(r.StartPeriod, DefaultStartPeriod),
		EndPeriod:   clean(r.EndPeriod, DefaultEndPeriod),
	}
}

// Locations splits LocationIDs on '+'.
func (r Request) Locations() []string {
	return strings.Split(r.LocationIDs, "+")
}

// Config identifies the population dataflow.
type Config struct {
	FlowID  string `yaml:"flow_id"`
	Version string `yaml:"version"`
}

// DefaultConfig is the resident population on 1st January dataflow.
func DefaultConfig() Config {
	return Config{FlowID: "22_289_DF_DCIS_POPRES1_1", Version: "1.0"}
}

// Result carries the rows of one fetch, the effective request and the query
// URL that produced them.
type Result struct {
	Request    Request `json:"request"`
	Rows       []Row   `json:"rows"`
	URL        string  `json:"url"`
	Aggregated bool    `json:"aggregated"`
}

// Fetcher queries the population dataflow.
type Fetcher struct {
	client *sdmx.Client
	names  LocationNamer
	cfg    Config
	logger *slog.Logger
}

// NewFetcher creates a Fetcher resolving location names through names.
func NewFetcher(client *sdmx.Client, names LocationNamer, cfg Config, logger *slog.Logger) *Fetcher {
	def := DefaultConfig()
	if cfg.FlowID == "" {
		cfg.FlowID = def.FlowID
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, names: names, cfg: cfg, logger: logger.With("component", "population")}
}

// URL returns the data query URL of req.
func (f *Fetcher) URL(req Request) (string, error) {
	req = req.WithDefaults()
	codes, err := age.Combine(req.Age)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("A.%s.JAN.%s.%s.99", req.LocationIDs, req.Sex, age.Join(codes))
	return f.client.DataURL(sdmx.DataQuery{
		FlowID:      f.cfg.FlowID,
		Version:     f.cfg.Version,
		Key:         key,
		StartPeriod: req.StartPeriod,
		EndPeriod:   req.EndPeriod,
	}), nil
}

// Fetch runs req. Rows are aggregated by (location, sex, period) when the
// expanded age set yields more than one row per group.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	req = req.WithDefaults()
	u, err := f.URL(req)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("population query", "url", u)

	body, err := f.client.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	rows, err := ParseObservations(body, f.names)
	if err != nil {
		return nil, err
	}

	res := &Result{Request: req, Rows: rows, URL: u}
	if HasMultipleAges(rows) {
		agg, err := GroupAndSum(rows)
		if err != nil {
			return nil, err
		}
		res.Rows, res.Aggregated = agg, true
	}
	return res, nil
}

// Package sdmx talks to the ISTAT SDMX REST service and turns its SDMX-ML
// v2.1 structure messages into flat records.
package sdmx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultBaseURL = "https://esploradati.istat.it/SDMXWS/rest"
	DefaultAgency  = "IT1"
)

// Config holds the client settings. Zero durations and counts fall back to
// DefaultConfig values, except Retries which may legitimately be 0.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Agency    string        `yaml:"agency"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	RetryWait time.Duration `yaml:"retry_wait"`
	UserAgent string        `yaml:"user_agent"`
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Agency:    DefaultAgency,
		Timeout:   60 * time.Second,
		Retries:   2,
		RetryWait: time.Second,
		UserAgent: "istat-census/1.0",
	}
}

// FetchObserver receives one call per logical fetch (retries included).
type FetchObserver interface {
	ObserveFetch(resource, outcome string, elapsed time.Duration)
}

// Client issues GET requests against the SDMX service.
type Client struct {
	cfg      Config
	http     *http.Client
	logger   *slog.Logger
	observer FetchObserver
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver registers a fetch observer, typically the metrics collector.
func WithObserver(o FetchObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Agency == "" {
		cfg.Agency = def.Agency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = def.RetryWait
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "sdmx"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Fetch performs one logical GET of rawURL and returns the body decoded as
// UTF-8 whatever charset the server declares. Transport errors, 5xx, 408 and
// 429 answers are retried up to cfg.Retries times; any other non-2xx answer
// fails at once. Failures are logged and returned as *NetworkError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	b := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.cfg.RetryWait)),
			uint64(c.cfg.Retries),
		),
		ctx,
	)
	body, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		return c.get(ctx, rawURL)
	}, b, func(err error, wait time.Duration) {
		c.logger.Debug("sdmx fetch retry", "url", rawURL, "wait", wait, "error", err)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var ne *NetworkError
		if !errors.As(err, &ne) {
			err = &NetworkError{URL: rawURL, Err: err}
		}
		c.logger.Warn("sdmx fetch failed", "url", rawURL, "error", err)
	}
	if c.observer != nil {
		c.observer.ObserveFetch(ResourceOf(rawURL), outcome, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&NetworkError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)})
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ne := &NetworkError{URL: rawURL, Err: err}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ne)
		}
		return nil, ne
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		ne := &NetworkError{URL: rawURL, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		if retryable(resp.StatusCode) {
			return nil, ne
		}
		return nil, backoff.Permanent(ne)
	}

	// The service mislabels its charset; the payload is always read as UTF-8.
	body, err := io.ReadAll(transform.NewReader(resp.Body, unicode.UTF8.NewDecoder()))
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, backoff.Permanent(&NetworkError{URL: rawURL, Status: resp.StatusCode, Err: ErrEmptyBody})
	}
	return body, nil
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}

func (c *Client) base() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

// DataflowsURL is the listing of every dataflow published by the agency.
func (c *Client) DataflowsURL() string {
	return fmt.Sprintf("%s/dataflow/%s/", c.base(), c.cfg.Agency)
}

// DataStructureURL addresses one data structure definition.
func (c *Client) DataStructureURL(ref string) string {
	return fmt.Sprintf("%s/datastructure/%s/%s", c.base(), c.cfg.Agency, url.PathEscape(ref))
}

// CodelistURL addresses one codelist.
func (c *Client) CodelistURL(ref string) string {
	return fmt.Sprintf("%s/codelist/%s/%s", c.base(), c.cfg.Agency, url.PathEscape(ref))
}

// DataQuery identifies an observation query. Key is the dot-separated series
// key, with '+' joining alternatives inside one dimension.
type DataQuery struct {
	FlowID      string
	Version     string
	Key         string
	StartPeriod string
	EndPeriod   string
}

// DataURL builds the generic-data query URL with full detail and
// TIME_PERIOD at observation level.
func (c *Client) DataURL(q DataQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/data/%s,%s,%s/%s/ALL/?detail=full", c.base(), c.cfg.Agency, q.FlowID, q.Version, url.PathEscape(q.Key))
	if q.StartPeriod != "" {
		b.WriteString("&startPeriod=" + url.QueryEscape(q.StartPeriod))
	}
	if q.EndPeriod != "" {
		b.WriteString("&endPeriod=" + url.QueryEscape(q.EndPeriod))
	}
	b.WriteString("&dimensionAtObservation=TIME_PERIOD")
	return b.String()
}

// ResourceOf returns the REST resource segment of an SDMX URL
// ("dataflow", "datastructure", "codelist", "data"), or "other".
func ResourceOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "other"
	}
	for _, seg := range strings.Split(u.Path, "/") {
		switch seg {
		case "dataflow", "datastructure", "codelist", "data":
			return seg
		}
	}
	return "other"
}

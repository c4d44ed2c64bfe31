package sdmx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Endpoint is a named SDMX URL watched by the Checker.
type Endpoint struct {
	Name string
	URL  string
}

// EndpointStatus is the outcome of the last check of an endpoint.
type EndpointStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Up reports whether the endpoint answered with a 2xx or 3xx status.
func (s EndpointStatus) Up() bool { return s.Status >= 200 && s.Status < 400 }

// AvailabilityRecorder receives the availability of each endpoint.
type AvailabilityRecorder interface {
	SetEndpointUp(name string, up bool)
}

// Checker performs periodic HEAD requests against the SDMX endpoints the
// service depends on and logs their availability.
type Checker struct {
	endpoints []Endpoint
	logger    *slog.Logger
	interval  time.Duration
	client    *http.Client
	recorder  AvailabilityRecorder

	mu     sync.RWMutex
	status map[string]EndpointStatus
}

// DefaultEndpoints returns the listing and territorial codelist endpoints of c.
func DefaultEndpoints(c *Client) []Endpoint {
	return []Endpoint{
		{Name: "dataflow", URL: c.DataflowsURL()},
		{Name: "codelist", URL: c.CodelistURL("CL_ITTER107")},
	}
}

// NewChecker creates a Checker that verifies endpoints every interval.
// recorder may be nil.
func NewChecker(endpoints []Endpoint, logger *slog.Logger, interval time.Duration, recorder AvailabilityRecorder) *Checker {
	return &Checker{
		endpoints: endpoints,
		logger:    logger.With("component", "checker"),
		interval:  interval,
		recorder:  recorder,
		status:    make(map[string]EndpointStatus),
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every endpoint once and records the results.
func (c *Checker) CheckAll(ctx context.Context) {
	if len(c.endpoints) == 0 {
		return
	}

	var ok, failed int
	for _, ep := range c.endpoints {
		if ctx.Err() != nil {
			return
		}

		status, checkErr := c.checkOne(ctx, ep.URL)
		st := EndpointStatus{Name: ep.Name, URL: ep.URL, Status: status, CheckedAt: time.Now().UTC()}
		if checkErr != nil {
			st.Error = checkErr.Error()
		}

		c.mu.Lock()
		c.status[ep.Name] = st
		c.mu.Unlock()
		if c.recorder != nil {
			c.recorder.SetEndpointUp(ep.Name, st.Up())
		}

		if st.Up() {
			ok++
		} else {
			failed++
			c.logger.Warn("sdmx endpoint unavailable",
				"endpoint", ep.Name,
				"url", ep.URL,
				"status", status,
				"error", st.Error,
			)
		}
	}

	c.logger.Info("endpoint check complete", "total", ok+failed, "ok", ok, "failed", failed)
}

// Statuses returns the last known status of every checked endpoint, sorted by name.
func (c *Checker) Statuses() []EndpointStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]EndpointStatus, 0, len(c.status))
	for _, st := range c.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// checkOne performs a single HEAD request and returns the HTTP status code.
// On network error, status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

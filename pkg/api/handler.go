package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/kit"
	"github.com/hazyhaar/istat-census/pkg/llm"
	"github.com/hazyhaar/istat-census/pkg/query"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// RequestObserver records served HTTP requests.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Deps are the collaborators of the router. Checker, Metrics, MCP and
// Observer may be nil.
type Deps struct {
	Query        Answerer
	Locations    LocationCatalog
	Dataflows    DataflowSource
	ManifestPath string
	Checker      *sdmx.Checker
	Metrics      http.Handler
	MCP          http.Handler
	Observer     RequestObserver
	Logger       *slog.Logger
}

// NewRouter returns an http.Handler with all census API routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	logger := d.Logger.With("component", "api")
	mw := func(name string) kit.Middleware { return kit.Logging(logger, name) }

	mux := http.NewServeMux()
	h := &handler{
		query:          mw("query")(queryEndpoint(d.Query)),
		lookupLocation: mw("lookup_location")(lookupLocationEndpoint(d.Locations)),
		resolveLoc:     mw("resolve_location")(resolveLocationEndpoint(d.Locations)),
		listLocations:  mw("list_locations")(listLocationsEndpoint(d.Locations)),
		listDataflows:  mw("list_dataflows")(listDataflowsEndpoint(d.Dataflows)),
		deps:           d,
	}

	mux.HandleFunc("POST /{$}", h.handleQuery)
	mux.HandleFunc("POST /v1/query", h.handleQuery)
	mux.HandleFunc("GET /v1/locations", h.handleListLocations)
	mux.HandleFunc("GET /v1/locations/resolve", h.handleResolveLocation)
	mux.HandleFunc("GET /v1/locations/{code}", h.handleLookupLocation)
	mux.HandleFunc("GET /v1/dataflows", h.handleListDataflows)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	if d.MCP != nil {
		mux.Handle("/mcp", d.MCP)
	}

	return cors(requestID(observe(d.Observer, mux)))
}

type handler struct {
	query          kit.Endpoint
	lookupLocation kit.Endpoint
	resolveLoc     kit.Endpoint
	listLocations  kit.Endpoint
	listDataflows  kit.Endpoint
	deps           Deps
}

// --- population query ---

func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	req := &queryReq{Prompt: r.URL.Query().Get("prompt")}
	if req.Prompt == "" && r.Body != nil && r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "missing prompt")
		return
	}

	resp, err := h.query(r.Context(), req)
	var ce *llm.ConfigurationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, query.ErrNoResults):
		writeJSON(w, http.StatusOK, query.NoResultsMessage)
	case errors.As(err, &ce):
		writeError(w, http.StatusServiceUnavailable, ce.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// --- locations ---

func (h *handler) handleLookupLocation(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.lookupLocation, &lookupReq{Code: r.PathValue("code")})
}

func (h *handler) handleResolveLocation(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	h.serve(w, r, h.resolveLoc, &resolveReq{Name: name})
}

func (h *handler) handleListLocations(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.listLocations, &listLocationsReq{
		Type:   r.URL.Query().Get("type"),
		Letter: r.URL.Query().Get("letter"),
	})
}

// --- dataflows ---

func (h *handler) handleListDataflows(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	h.serve(w, r, h.listDataflows, &listDataflowsReq{All: all})
}

// --- health ---

type catalogStatus struct {
	BuiltAt time.Time      `json:"built_at"`
	Failed  bool           `json:"failed"`
	Files   map[string]int `json:"files"`
}

type healthResponse struct {
	Status     string                `json:"status"`
	Locations  int                   `json:"locations"`
	Partitions map[string]int        `json:"partitions"`
	Catalog    *catalogStatus        `json:"catalog,omitempty"`
	Endpoints  []sdmx.EndpointStatus `json:"endpoints,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Locations:  h.deps.Locations.Count(),
		Partitions: map[string]int{},
	}
	for t, n := range h.deps.Locations.Counts() {
		resp.Partitions[t.Name()] = n
	}
	if resp.Locations == 0 {
		resp.Status = "degraded"
	}

	if h.deps.ManifestPath != "" {
		if m, err := catalog.LoadManifest(h.deps.ManifestPath); err == nil {
			resp.Catalog = &catalogStatus{BuiltAt: m.BuiltAt, Failed: m.Failed(), Files: m.Files}
			if m.Failed() {
				resp.Status = "degraded"
			}
		}
	}
	if h.deps.Checker != nil {
		resp.Endpoints = h.deps.Checker.Statuses()
		for _, st := range resp.Endpoints {
			if !st.Up() {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	var nf errNotFound
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID tags the request context and the response with an X-Request-ID,
// reusing the caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = kit.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// observe reports every request to o under its matched route pattern.
func observe(o RequestObserver, next http.Handler) http.Handler {
	if o == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		o.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}

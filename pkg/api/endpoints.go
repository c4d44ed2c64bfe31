package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/itter"
	"github.com/hazyhaar/istat-census/pkg/kit"
	"github.com/hazyhaar/istat-census/pkg/query"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// Answerer resolves a natural-language population question.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (*query.Response, error)
}

// LocationCatalog answers location lookups.
type LocationCatalog interface {
	Lookup(code string) (catalog.Location, bool)
	Code(name string) (string, bool)
	Entries(t itter.Type) ([]catalog.Entry, error)
	Shard(letter string) ([]catalog.Entry, error)
	Letters() ([]string, error)
	Count() int
	Counts() map[itter.Type]int
}

// DataflowSource lists the dataflows of the local catalog.
type DataflowSource interface {
	Dataflows(usefulOnly bool) ([]sdmx.Dataflow, error)
}

// Shared request/response types used by both HTTP and MCP transports.

type queryReq struct {
	Prompt string `json:"prompt"`
}

type lookupReq struct {
	Code string `json:"code"`
}

type resolveReq struct {
	Name string `json:"name"`
}

type listLocationsReq struct {
	Type   string `json:"type"`
	Letter string `json:"letter"`
}

type listDataflowsReq struct {
	All bool `json:"all"`
}

type locationsResponse struct {
	Type      string          `json:"type"`
	Letter    string          `json:"letter,omitempty"`
	Letters   []string        `json:"letters,omitempty"`
	Locations []catalog.Entry `json:"locations"`
}

type dataflowsResponse struct {
	Dataflows []sdmx.Dataflow `json:"dataflows"`
}

// errNotFound marks lookups with no match; the HTTP transport maps it to 404.
type errNotFound struct{ what string }

func (e errNotFound) Error() string { return e.what + " not found" }

func queryEndpoint(svc Answerer) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*queryReq)
		if strings.TrimSpace(req.Prompt) == "" {
			return nil, fmt.Errorf("missing prompt")
		}
		return svc.Answer(ctx, req.Prompt)
	}
}

func lookupLocationEndpoint(locs LocationCatalog) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*lookupReq)
		loc, ok := locs.Lookup(req.Code)
		if !ok {
			return nil, errNotFound{what: fmt.Sprintf("location %q", req.Code)}
		}
		return loc, nil
	}
}

func resolveLocationEndpoint(locs LocationCatalog) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		code, ok := locs.Code(req.Name)
		if !ok {
			return nil, errNotFound{what: fmt.Sprintf("location named %q", req.Name)}
		}
		loc, _ := locs.Lookup(code)
		return loc, nil
	}
}

func listLocationsEndpoint(locs LocationCatalog) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*listLocationsReq)
		t := itter.Regions
		if req.Type != "" {
			var err error
			if t, err = itter.ParseType(req.Type); err != nil {
				// Accept file-style names such as "ITTER107/_provinces.jsonl".
				ct, ok := catalog.CleanLocationType(req.Type)
				if !ok {
					return nil, err
				}
				t = ct
			}
		}

		var entries []catalog.Entry
		var err error
		if t == itter.Municipalities && req.Letter != "" {
			entries, err = locs.Shard(req.Letter)
		} else {
			entries, err = locs.Entries(t)
		}
		if catalog.IsMissing(err) {
			return nil, errNotFound{what: fmt.Sprintf("%s catalog", t.Name())}
		}
		if err != nil {
			return nil, err
		}
		resp := locationsResponse{Type: t.Name(), Letter: strings.ToUpper(req.Letter), Locations: entries}
		if t == itter.Municipalities && req.Letter == "" {
			if resp.Letters, err = locs.Letters(); err != nil {
				return nil, err
			}
		}
		return resp, nil
	}
}

func listDataflowsEndpoint(src DataflowSource) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*listDataflowsReq)
		flows, err := src.Dataflows(!req.All)
		if catalog.IsMissing(err) {
			return nil, errNotFound{what: "dataflow catalog"}
		}
		if err != nil {
			return nil, err
		}
		return dataflowsResponse{Dataflows: flows}, nil
	}
}

// Package query turns a natural-language population question into census
// data: the model picks the locations, emits a call to one of a closed set
// of tools, and the tool result is shaped into the response document.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/istat-census/pkg/age"
	"github.com/hazyhaar/istat-census/pkg/kit"
	"github.com/hazyhaar/istat-census/pkg/llm"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FetchPopulationTool is the name of the population tool declared to the model.
const FetchPopulationTool = "fetch_population_for_locations_years_sex_age_via_sdmx"

// PopulationFetcher runs a population request.
type PopulationFetcher interface {
	Fetch(ctx context.Context, req population.Request) (*population.Result, error)
}

// ArgumentError reports tool arguments that could not be decoded.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: invalid arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

type tool struct {
	def      mcp.Tool
	endpoint kit.Endpoint
	decode   kit.DecodeFunc
}

// Toolbox is the fixed registry of tools the model may call. A name outside
// the registry is a configuration error, never a lookup of arbitrary code.
type Toolbox struct {
	tools map[string]tool
	names []string
}

// NewToolbox declares the population tool backed by f. Middlewares wrap every
// tool endpoint, first outermost.
func NewToolbox(f PopulationFetcher, mw ...kit.Middleware) *Toolbox {
	tb := &Toolbox{tools: make(map[string]tool)}
	tb.add(populationTool(), fetchPopulationEndpoint(f), decodePopulationRequest, mw)
	return tb
}

func (tb *Toolbox) add(def mcp.Tool, ep kit.Endpoint, decode kit.DecodeFunc, mw []kit.Middleware) {
	if len(mw) > 0 {
		ep = kit.Chain(mw[0], mw[1:]...)(ep)
	}
	tb.tools[def.Name] = tool{def: def, endpoint: ep, decode: decode}
	tb.names = append(tb.names, def.Name)
}

// Names lists the declared tools in declaration order.
func (tb *Toolbox) Names() []string {
	return append([]string(nil), tb.names...)
}

// Definitions returns the tool declarations in the form the model expects.
func (tb *Toolbox) Definitions() ([]llm.ToolDefinition, error) {
	defs := make([]llm.ToolDefinition, 0, len(tb.names))
	for _, name := range tb.names {
		t := tb.tools[name]
		schema, err := json.Marshal(t.def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal schema: %w", name, err)
		}
		defs = append(defs, llm.ToolDefinition{Name: name, Description: t.def.Description, Parameters: schema})
	}
	return defs, nil
}

// Call decodes args and runs the named tool.
func (tb *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := tb.tools[name]
	if !ok {
		return nil, &llm.ConfigurationError{Reason: fmt.Sprintf("unknown tool %q (declared: %s)", name, strings.Join(tb.Names(), ", "))}
	}
	m := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &m); err != nil {
			return nil, &ArgumentError{Tool: name, Err: err}
		}
	}
	req, err := t.decode(m)
	if err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	return t.endpoint(ctx, req)
}

// RegisterMCP exposes every tool of the registry on srv.
func (tb *Toolbox) RegisterMCP(srv *server.MCPServer) {
	for _, name := range tb.names {
		t := tb.tools[name]
		kit.RegisterMCPTool(srv, t.def, t.endpoint, t.decode)
	}
}

func populationTool() mcp.Tool {
	return mcp.NewTool(FetchPopulationTool,
		mcp.WithDescription("Fetches population data for specific locations, sex categories, age and time periods using the Istat SDMX web service. Supports multiple locations and sex categories."),
		mcp.WithString("location_ids", mcp.Required(),
			mcp.Description("Geographical identifiers for the locations, concatenated by '+' if multiple, e.g., 'ITC+ITE2+ITF14'")),
		mcp.WithString("sex", mcp.Required(),
			mcp.Description("The sex category for which data is requested. '1' for male, '2' for female, '9' for total. Can be combined with '+', e.g., '1+2+9'")),
		mcp.WithString("age", mcp.Required(),
			mcp.Description("The age in years for which data is requested. Follow these rules to interpret the age definition: "+
				"1. Exact age (e.g., `X years`): Format: `YX`; Example: `0 year` → `Y0`, `1 year` → `Y1`, `10 years` → `Y10`. "+
				"2. Age and over (e.g., `X years and over`): Format: `Y_GEX`; Example: `14 years and over` → `Y_GE14`. "+
				"3. Until a certain age (e.g., `until X years` or `under X years`): Format: `Y_UNX`; Example: `until 15 years` → `Y_UN15`. "+
				"4. Age ranges (e.g., `X-Y years`): Format: `YX-Y`; Example: `14-15 years` → `Y14-15`. "+
				"5. TOTAL (representing all ages): Use the code `TOTAL`.")),
		mcp.WithString("start_period", mcp.Required(),
			mcp.Description("The start date of the period for which data is requested, formatted as 'YYYY-MM-DD', e.g., '2023-01-01'.  Default is '2023-01-01'.")),
		mcp.WithString("end_period", mcp.Required(),
			mcp.Description("The end date of the period for which data is requested, formatted as 'YYYY-MM-DD', e.g., '2023-12-31'.  Default is '2023-12-31'.")),
	)
}

func fetchPopulationEndpoint(f PopulationFetcher) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*population.Request)
		return f.Fetch(ctx, *req)
	}
}

// decodePopulationRequest accepts strings and, since models sometimes emit
// them unquoted, numbers. The age specification is validated here.
func decodePopulationRequest(args map[string]any) (any, error) {
	str := func(key string) (string, error) {
		switch v := args[key].(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		default:
			return "", fmt.Errorf("%s: expected a string, got %T", key, v)
		}
	}
	var req population.Request
	fields := []struct {
		key string
		dst *string
	}{
		{"location_ids", &req.LocationIDs},
		{"sex", &req.Sex},
		{"age", &req.Age},
		{"start_period", &req.StartPeriod},
		{"end_period", &req.EndPeriod},
	}
	for _, f := range fields {
		v, err := str(f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	if _, err := age.Combine(req.WithDefaults().Age); err != nil {
		return nil, err
	}
	return &req, nil
}

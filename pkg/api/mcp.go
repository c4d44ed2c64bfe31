package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/istat-census/pkg/kit"
	"github.com/hazyhaar/istat-census/pkg/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer builds the MCP server exposing the census tools: the closed
// tool registry of the query pipeline plus the catalog and query tools.
func NewMCPServer(name, version string, tools *query.Toolbox, d Deps) *server.MCPServer {
	srv := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	if tools != nil {
		tools.RegisterMCP(srv)
	}
	RegisterMCPTools(srv, d)
	return srv
}

// RegisterMCPTools registers the catalog and query tools on the server.
func RegisterMCPTools(srv *server.MCPServer, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp")

	if d.Query != nil {
		registerQueryPopulation(srv, d.Query, logger)
	}
	if d.Locations != nil {
		registerLookupLocation(srv, d.Locations, logger)
		registerResolveLocation(srv, d.Locations, logger)
		registerListLocations(srv, d.Locations, logger)
	}
	if d.Dataflows != nil {
		registerListDataflows(srv, d.Dataflows, logger)
	}
}

func registerQueryPopulation(srv *server.MCPServer, svc Answerer, logger *slog.Logger) {
	tool := mcp.NewTool("query_population",
		mcp.WithDescription("Answer a natural-language question about the resident population of Italian territories with a census data table."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question, e.g. 'How many women live in Bologna?'")),
	)

	ep := queryEndpoint(svc)
	kit.RegisterMCPTool(srv, tool, kit.Logging(logger, "query_population")(func(ctx context.Context, request any) (any, error) {
		resp, err := ep(ctx, request)
		if errors.Is(err, query.ErrNoResults) {
			return query.NoResultsMessage, nil
		}
		return resp, err
	}), kit.DecodeJSON[queryReq])
}

func registerLookupLocation(srv *server.MCPServer, locs LocationCatalog, logger *slog.Logger) {
	tool := mcp.NewTool("lookup_location",
		mcp.WithDescription("Return the name and partition (geographic area, region, province, municipality) of a territorial code."),
		mcp.WithString("code", mcp.Required(), mcp.Description("The territorial code, e.g. ITD55")),
	)
	kit.RegisterMCPTool(srv, tool, kit.Logging(logger, "lookup_location")(lookupLocationEndpoint(locs)), kit.DecodeJSON[lookupReq])
}

func registerResolveLocation(srv *server.MCPServer, locs LocationCatalog, logger *slog.Logger) {
	tool := mcp.NewTool("resolve_location",
		mcp.WithDescription("Find the territorial code of a location name, ignoring case and accents."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The location name, e.g. Forlì-Cesena")),
	)
	kit.RegisterMCPTool(srv, tool, kit.Logging(logger, "resolve_location")(resolveLocationEndpoint(locs)), kit.DecodeJSON[resolveReq])
}

func registerListLocations(srv *server.MCPServer, locs LocationCatalog, logger *slog.Logger) {
	tool := mcp.NewTool("list_locations",
		mcp.WithDescription("List the locations of one partition with their codes."),
		mcp.WithString("type", mcp.Description("areas, regions, provinces or municipalities (default regions)")),
		mcp.WithString("letter", mcp.Description("For municipalities, only those whose name starts with this letter")),
	)
	kit.RegisterMCPTool(srv, tool, kit.Logging(logger, "list_locations")(listLocationsEndpoint(locs)), kit.DecodeJSON[listLocationsReq])
}

func registerListDataflows(srv *server.MCPServer, src DataflowSource, logger *slog.Logger) {
	tool := mcp.NewTool("list_dataflows",
		mcp.WithDescription("List the dataflows of the local catalog (the useful ones unless all is set)."),
		mcp.WithBoolean("all", mcp.Description("List every dataflow published by the agency")),
	)
	kit.RegisterMCPTool(srv, tool, kit.Logging(logger, "list_dataflows")(listDataflowsEndpoint(src)), kit.DecodeJSON[listDataflowsReq])
}

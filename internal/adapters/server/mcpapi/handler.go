// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/fieldboard/internal/adapters/server/common"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with layout tools and optional dashboard tools.
func NewHandler(cfg Config, layouts common.LayoutService, dashboards common.DashboardService) (*Handler, error) {
	if layouts == nil {
		return nil, fmt.Errorf("layout service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerPackTool(mcpSrv, layouts)
	registerLayoutTools(mcpSrv, layouts)
	if dashboards != nil {
		registerDashboardTools(mcpSrv, dashboards)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "fieldboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// packArguments is the decoded argument shape of `fieldboard.pack`.
type packArguments struct {
	Columns int             `json:"columns"`
	Items   []gridpack.Item `json:"items"`
}

// registerPackTool registers the stateless `fieldboard.pack` tool.
func registerPackTool(srv *mcpserver.MCPServer, layouts common.LayoutService) {
	srv.AddTool(
		mcp.NewTool(
			"fieldboard.pack",
			mcp.WithDescription("Pack widgets onto a grid first-fit in row-major order. Items with a free preferred cell keep it."),
			mcp.WithNumber("columns", mcp.Required(), mcp.Description("Grid column count (>= 1)")),
			mcp.WithArray("items",
				mcp.Required(),
				mcp.Description("Items in priority order: {id, width, height, preferred?: {x, y}}"),
				mcp.Items(map[string]any{"type": "object"}),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args packArguments
			if err := req.BindArguments(&args); err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			packed, err := layouts.Pack(ctx, common.PackRequest{Columns: args.Columns, Items: args.Items})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(packed)
			if err != nil {
				return nil, fmt.Errorf("encode pack result: %w", err)
			}
			return result, nil
		},
	)
}

// registerLayoutTools registers breakpoint listing and dashboard layout tools.
func registerLayoutTools(srv *mcpserver.MCPServer, layouts common.LayoutService) {
	srv.AddTool(
		mcp.NewTool(
			"fieldboard.list_breakpoints",
			mcp.WithDescription("List configured responsive breakpoints and their column counts."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			breakpoints, err := layouts.ListBreakpoints(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"breakpoints": breakpoints,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_breakpoints result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"fieldboard.get_layout",
			mcp.WithDescription("Return the stored layout of one dashboard breakpoint without repacking."),
			mcp.WithString("dashboard_id", mcp.Required(), mcp.Description("Dashboard identifier")),
			mcp.WithString("breakpoint", mcp.Description("Breakpoint name (defaults to the configured default)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dashboardID, err := req.RequireString("dashboard_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			layout, err := layouts.CurrentLayout(ctx, common.LayoutRequest{
				DashboardID: dashboardID,
				Breakpoint:  req.GetString("breakpoint", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(layout)
			if err != nil {
				return nil, fmt.Errorf("encode get_layout result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"fieldboard.relayout",
			mcp.WithDescription("Repack one dashboard breakpoint, keeping widgets at their stored cells where free."),
			mcp.WithString("dashboard_id", mcp.Required(), mcp.Description("Dashboard identifier")),
			mcp.WithString("breakpoint", mcp.Description("Breakpoint name (defaults to the configured default)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dashboardID, err := req.RequireString("dashboard_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			layout, err := layouts.Relayout(ctx, common.LayoutRequest{
				DashboardID: dashboardID,
				Breakpoint:  req.GetString("breakpoint", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(layout)
			if err != nil {
				return nil, fmt.Errorf("encode relayout result: %w", err)
			}
			return result, nil
		},
	)
}

// registerDashboardTools registers the dashboard listing tool.
func registerDashboardTools(srv *mcpserver.MCPServer, dashboards common.DashboardService) {
	srv.AddTool(
		mcp.NewTool(
			"fieldboard.list_dashboards",
			mcp.WithDescription("List dashboards for one owner."),
			mcp.WithString("owner_id", mcp.Description("Owner identifier (defaults to the configured owner)")),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived dashboards")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			list, err := dashboards.ListDashboards(ctx, common.ListDashboardsRequest{
				OwnerID:         req.GetString("owner_id", ""),
				IncludeArchived: req.GetBool("include_archived", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"dashboards": list,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_dashboards result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidWidth):
		return mcp.NewToolResultError("invalid_width: " + err.Error())
	case errors.Is(err, common.ErrPackingExhausted):
		return mcp.NewToolResultError("packing_exhausted: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

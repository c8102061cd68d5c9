// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/fieldboard/internal/gridpack"
)

// ErrInvalidRequest reports malformed or semantically invalid input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInvalidWidth reports a widget or item wider than the target grid.
var ErrInvalidWidth = errors.New("invalid width")

// ErrPackingExhausted reports a packer pass that hit its row ceiling.
var ErrPackingExhausted = errors.New("packing exhausted")

// ErrConflict reports a request that is valid but not allowed in the current state.
var ErrConflict = errors.New("conflict")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// Breakpoint describes one responsive tier.
type Breakpoint struct {
	Name     string `json:"name"`
	Columns  int    `json:"columns"`
	MinWidth int    `json:"min_width"`
	Default  bool   `json:"default,omitempty"`
}

// Dashboard is the transport view of one dashboard.
type Dashboard struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// Widget is the transport view of one widget.
type Widget struct {
	ID           string    `json:"id"`
	DashboardID  string    `json:"dashboard_id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Size         string    `json:"size"`
	CustomWidth  int       `json:"custom_width,omitempty"`
	CustomHeight int       `json:"custom_height,omitempty"`
	Priority     int       `json:"priority"`
	Pinned       bool      `json:"pinned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LayoutItem is one positioned widget.
type LayoutItem struct {
	WidgetID string `json:"widget_id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sticky   bool   `json:"sticky"`
}

// Layout is one dashboard arrangement for one breakpoint, ordered by (y, x).
type Layout struct {
	DashboardID string       `json:"dashboard_id"`
	Breakpoint  string       `json:"breakpoint"`
	Columns     int          `json:"columns"`
	Rows        int          `json:"rows"`
	FreeCells   int          `json:"free_cells"`
	Items       []LayoutItem `json:"items"`
}

// ListDashboardsRequest captures dashboard list filters.
type ListDashboardsRequest struct {
	OwnerID         string
	IncludeArchived bool
}

// CreateDashboardRequest captures input for new dashboards.
type CreateDashboardRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
	Name    string `json:"name"`
}

// AddWidgetRequest captures input for new widgets.
type AddWidgetRequest struct {
	DashboardID  string `json:"dashboard_id,omitempty"`
	Kind         string `json:"kind"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Size         string `json:"size,omitempty"`
	CustomWidth  int    `json:"custom_width,omitempty"`
	CustomHeight int    `json:"custom_height,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	Pinned       bool   `json:"pinned,omitempty"`
}

// ResizeWidgetRequest captures input for widget footprint changes.
type ResizeWidgetRequest struct {
	WidgetID     string `json:"widget_id,omitempty"`
	Size         string `json:"size"`
	CustomWidth  int    `json:"custom_width,omitempty"`
	CustomHeight int    `json:"custom_height,omitempty"`
}

// MoveWidgetRequest captures input for manual widget placement.
type MoveWidgetRequest struct {
	WidgetID   string `json:"widget_id,omitempty"`
	Breakpoint string `json:"breakpoint,omitempty"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

// LayoutRequest addresses one dashboard breakpoint.
type LayoutRequest struct {
	DashboardID string
	Breakpoint  string
}

// PackRequest captures a stateless packing request.
type PackRequest struct {
	Columns int             `json:"columns"`
	Items   []gridpack.Item `json:"items"`
}

// PackResult is the stateless packing response.
type PackResult struct {
	Placements []gridpack.Placement `json:"placements"`
	Summary    gridpack.Summary     `json:"summary"`
}

// DashboardService captures dashboard and widget operations exposed by app services.
type DashboardService interface {
	ListDashboards(context.Context, ListDashboardsRequest) ([]Dashboard, error)
	CreateDashboard(context.Context, CreateDashboardRequest) (Dashboard, error)
	GetDashboard(context.Context, string) (Dashboard, error)
	ArchiveDashboard(context.Context, string) (Dashboard, error)
	RestoreDashboard(context.Context, string) (Dashboard, error)
	ListWidgets(context.Context, string) ([]Widget, error)
	AddWidget(context.Context, AddWidgetRequest) (Widget, error)
	ResizeWidget(context.Context, ResizeWidgetRequest) (Widget, error)
	RemoveWidget(context.Context, string) error
}

// LayoutService captures layout reads, repacks, and stateless packing.
type LayoutService interface {
	ListBreakpoints(context.Context) ([]Breakpoint, error)
	CurrentLayout(context.Context, LayoutRequest) (Layout, error)
	Relayout(context.Context, LayoutRequest) (Layout, error)
	MoveWidget(context.Context, MoveWidgetRequest) (Layout, error)
	Pack(context.Context, PackRequest) (PackResult, error)
}

package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// AppServiceAdapter maps transport contracts onto app.Service dashboard and layout APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// WithOwner attaches the requesting user's id to context for owner-scoped operations.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	if strings.TrimSpace(ownerID) == "" {
		return ctx
	}
	return app.WithOwner(ctx, ownerID)
}

// ListDashboards lists dashboards for the requested or context owner.
func (a *AppServiceAdapter) ListDashboards(ctx context.Context, in ListDashboardsRequest) ([]Dashboard, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	dashboards, err := a.service.ListDashboards(ctx, in.OwnerID, in.IncludeArchived)
	if err != nil {
		return nil, mapAppError("list dashboards", err)
	}
	out := make([]Dashboard, 0, len(dashboards))
	for _, d := range dashboards {
		out = append(out, dashboardFromDomain(d))
	}
	return out, nil
}

// CreateDashboard creates one dashboard.
func (a *AppServiceAdapter) CreateDashboard(ctx context.Context, in CreateDashboardRequest) (Dashboard, error) {
	if err := a.ready(); err != nil {
		return Dashboard{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return Dashboard{}, fmt.Errorf("name is required: %w", ErrInvalidRequest)
	}
	d, err := a.service.CreateDashboard(ctx, app.CreateDashboardInput{OwnerID: in.OwnerID, Name: in.Name})
	if err != nil {
		return Dashboard{}, mapAppError("create dashboard", err)
	}
	return dashboardFromDomain(d), nil
}

// GetDashboard returns one dashboard.
func (a *AppServiceAdapter) GetDashboard(ctx context.Context, dashboardID string) (Dashboard, error) {
	if err := a.ready(); err != nil {
		return Dashboard{}, err
	}
	d, err := a.service.GetDashboard(ctx, dashboardID)
	if err != nil {
		return Dashboard{}, mapAppError("get dashboard", err)
	}
	return dashboardFromDomain(d), nil
}

// ArchiveDashboard archives one dashboard.
func (a *AppServiceAdapter) ArchiveDashboard(ctx context.Context, dashboardID string) (Dashboard, error) {
	if err := a.ready(); err != nil {
		return Dashboard{}, err
	}
	d, err := a.service.ArchiveDashboard(ctx, dashboardID)
	if err != nil {
		return Dashboard{}, mapAppError("archive dashboard", err)
	}
	return dashboardFromDomain(d), nil
}

// RestoreDashboard restores one archived dashboard.
func (a *AppServiceAdapter) RestoreDashboard(ctx context.Context, dashboardID string) (Dashboard, error) {
	if err := a.ready(); err != nil {
		return Dashboard{}, err
	}
	d, err := a.service.RestoreDashboard(ctx, dashboardID)
	if err != nil {
		return Dashboard{}, mapAppError("restore dashboard", err)
	}
	return dashboardFromDomain(d), nil
}

// ListWidgets lists widgets of one dashboard in packing priority order.
func (a *AppServiceAdapter) ListWidgets(ctx context.Context, dashboardID string) ([]Widget, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	widgets, err := a.service.ListWidgets(ctx, dashboardID)
	if err != nil {
		return nil, mapAppError("list widgets", err)
	}
	out := make([]Widget, 0, len(widgets))
	for _, w := range widgets {
		out = append(out, widgetFromDomain(w))
	}
	return out, nil
}

// AddWidget adds one widget and repacks its dashboard.
func (a *AppServiceAdapter) AddWidget(ctx context.Context, in AddWidgetRequest) (Widget, error) {
	if err := a.ready(); err != nil {
		return Widget{}, err
	}
	if strings.TrimSpace(in.DashboardID) == "" {
		return Widget{}, fmt.Errorf("dashboard_id is required: %w", ErrInvalidRequest)
	}
	w, err := a.service.AddWidget(ctx, app.AddWidgetInput{
		DashboardID:  in.DashboardID,
		Kind:         domain.WidgetKind(in.Kind),
		Title:        in.Title,
		Description:  in.Description,
		Size:         domain.SizePreset(in.Size),
		CustomWidth:  in.CustomWidth,
		CustomHeight: in.CustomHeight,
		Priority:     in.Priority,
		Pinned:       in.Pinned,
	})
	if err != nil {
		return Widget{}, mapAppError("add widget", err)
	}
	return widgetFromDomain(w), nil
}

// ResizeWidget changes one widget footprint and repacks its dashboard.
func (a *AppServiceAdapter) ResizeWidget(ctx context.Context, in ResizeWidgetRequest) (Widget, error) {
	if err := a.ready(); err != nil {
		return Widget{}, err
	}
	if strings.TrimSpace(in.WidgetID) == "" {
		return Widget{}, fmt.Errorf("widget_id is required: %w", ErrInvalidRequest)
	}
	w, err := a.service.ResizeWidget(ctx, in.WidgetID, domain.SizePreset(in.Size), in.CustomWidth, in.CustomHeight)
	if err != nil {
		return Widget{}, mapAppError("resize widget", err)
	}
	return widgetFromDomain(w), nil
}

// RemoveWidget deletes one widget and repacks its dashboard.
func (a *AppServiceAdapter) RemoveWidget(ctx context.Context, widgetID string) error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.service.RemoveWidget(ctx, widgetID); err != nil {
		return mapAppError("remove widget", err)
	}
	return nil
}

// ListBreakpoints returns the configured responsive tiers.
func (a *AppServiceAdapter) ListBreakpoints(_ context.Context) ([]Breakpoint, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	def := a.service.DefaultBreakpoint()
	bps := a.service.Breakpoints()
	out := make([]Breakpoint, 0, len(bps))
	for _, bp := range bps {
		out = append(out, Breakpoint{Name: bp.Name, Columns: bp.Columns, MinWidth: bp.MinWidth, Default: bp.Name == def})
	}
	return out, nil
}

// CurrentLayout returns the stored layout without repacking.
func (a *AppServiceAdapter) CurrentLayout(ctx context.Context, in LayoutRequest) (Layout, error) {
	if err := a.ready(); err != nil {
		return Layout{}, err
	}
	layout, err := a.service.CurrentLayout(ctx, in.DashboardID, in.Breakpoint)
	if err != nil {
		return Layout{}, mapAppError("current layout", err)
	}
	return layoutFromApp(layout), nil
}

// Relayout repacks one dashboard breakpoint.
func (a *AppServiceAdapter) Relayout(ctx context.Context, in LayoutRequest) (Layout, error) {
	if err := a.ready(); err != nil {
		return Layout{}, err
	}
	layout, err := a.service.Layout(ctx, in.DashboardID, in.Breakpoint)
	if err != nil {
		return Layout{}, mapAppError("relayout", err)
	}
	return layoutFromApp(layout), nil
}

// MoveWidget places one widget manually and returns the repacked layout.
func (a *AppServiceAdapter) MoveWidget(ctx context.Context, in MoveWidgetRequest) (Layout, error) {
	if err := a.ready(); err != nil {
		return Layout{}, err
	}
	if strings.TrimSpace(in.WidgetID) == "" {
		return Layout{}, fmt.Errorf("widget_id is required: %w", ErrInvalidRequest)
	}
	layout, err := a.service.MoveWidget(ctx, app.MoveWidgetInput{
		WidgetID:   in.WidgetID,
		Breakpoint: in.Breakpoint,
		X:          in.X,
		Y:          in.Y,
	})
	if err != nil {
		return Layout{}, mapAppError("move widget", err)
	}
	return layoutFromApp(layout), nil
}

// Pack runs the packer on caller-supplied items.
func (a *AppServiceAdapter) Pack(_ context.Context, in PackRequest) (PackResult, error) {
	if err := a.ready(); err != nil {
		return PackResult{}, err
	}
	res, err := a.service.PackPreview(in.Items, in.Columns)
	if err != nil {
		return PackResult{}, mapAppError("pack", err)
	}
	return PackResult{Placements: res.Placements, Summary: res.Summary}, nil
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// mapAppError maps app, domain, and packer errors onto transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, gridpack.ErrItemTooWide), errors.Is(err, domain.ErrWidgetTooWide):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidWidth, err))
	case errors.Is(err, gridpack.ErrPackingExhausted):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrPackingExhausted, err))
	case errors.Is(err, app.ErrDashboardArchived):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, app.ErrUnknownBreakpoint),
		errors.Is(err, gridpack.ErrInvalidColumns),
		errors.Is(err, gridpack.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidSize),
		errors.Is(err, domain.ErrInvalidBreakpoint),
		errors.Is(err, domain.ErrInvalidPosition):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}

// dashboardFromDomain converts one domain dashboard into its transport view.
func dashboardFromDomain(d domain.Dashboard) Dashboard {
	return Dashboard{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Slug:       d.Slug,
		Name:       d.Name,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		ArchivedAt: d.ArchivedAt,
	}
}

// widgetFromDomain converts one domain widget into its transport view.
func widgetFromDomain(w domain.Widget) Widget {
	return Widget{
		ID:           w.ID,
		DashboardID:  w.DashboardID,
		Kind:         string(w.Kind),
		Title:        w.Title,
		Description:  w.Description,
		Size:         string(w.Size),
		CustomWidth:  w.CustomWidth,
		CustomHeight: w.CustomHeight,
		Priority:     w.Priority,
		Pinned:       w.Pinned,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

// layoutFromApp converts one app layout into its transport view.
func layoutFromApp(in app.Layout) Layout {
	out := Layout{
		DashboardID: in.DashboardID,
		Breakpoint:  in.Breakpoint,
		Columns:     in.Columns,
		Rows:        in.Rows,
		FreeCells:   in.FreeCells,
		Items:       make([]LayoutItem, 0, len(in.Items)),
	}
	for _, item := range in.Items {
		out.Items = append(out.Items, LayoutItem{
			WidgetID: item.WidgetID,
			Kind:     string(item.Kind),
			Title:    item.Title,
			X:        item.X,
			Y:        item.Y,
			Width:    item.Width,
			Height:   item.Height,
			Sticky:   item.Sticky,
		})
	}
	return out
}

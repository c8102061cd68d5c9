package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// DefaultOwnerID is used when no owner is configured or supplied by the caller.
const DefaultOwnerID = "local"

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Breakpoints       []domain.Breakpoint
	DefaultBreakpoint string
	MaxRows           int
	DefaultOwnerID    string
	Logger            Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo              Repository
	idGen             IDGenerator
	clock             Clock
	packer            gridpack.Packer
	breakpoints       []domain.Breakpoint
	defaultBreakpoint string
	defaultOwner      string
	logger            Logger
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	breakpoints := sanitizeBreakpoints(cfg.Breakpoints)
	if len(breakpoints) == 0 {
		breakpoints = domain.DefaultBreakpoints()
	}
	defaultBreakpoint := domain.NormalizeBreakpointName(cfg.DefaultBreakpoint)
	if _, ok := domain.FindBreakpoint(breakpoints, defaultBreakpoint); !ok {
		defaultBreakpoint = breakpoints[0].Name
	}
	owner := strings.TrimSpace(cfg.DefaultOwnerID)
	if owner == "" {
		owner = DefaultOwnerID
	}

	return &Service{
		repo:              repo,
		idGen:             idGen,
		clock:             clock,
		packer:            gridpack.Packer{MaxRows: cfg.MaxRows},
		breakpoints:       breakpoints,
		defaultBreakpoint: defaultBreakpoint,
		defaultOwner:      owner,
		logger:            cfg.Logger,
	}
}

// Breakpoints returns the configured responsive tiers.
func (s *Service) Breakpoints() []domain.Breakpoint {
	return slices.Clone(s.breakpoints)
}

// DefaultBreakpoint returns the breakpoint used when callers omit one.
func (s *Service) DefaultBreakpoint() string {
	return s.defaultBreakpoint
}

// breakpoint resolves a breakpoint name, falling back to the default tier for blank input.
func (s *Service) breakpoint(name string) (domain.Breakpoint, error) {
	if strings.TrimSpace(name) == "" {
		name = s.defaultBreakpoint
	}
	bp, ok := domain.FindBreakpoint(s.breakpoints, name)
	if !ok {
		return domain.Breakpoint{}, fmt.Errorf("%w: %q", ErrUnknownBreakpoint, name)
	}
	return bp, nil
}

// CreateDashboardInput holds input values for create dashboard operations.
type CreateDashboardInput struct {
	OwnerID string
	Name    string
}

// CreateDashboard creates dashboard.
func (s *Service) CreateDashboard(ctx context.Context, in CreateDashboardInput) (domain.Dashboard, error) {
	dashboard, err := domain.NewDashboard(s.idGen(), s.resolveOwner(ctx, in.OwnerID), in.Name, s.clock())
	if err != nil {
		return domain.Dashboard{}, err
	}
	if err := s.repo.CreateDashboard(ctx, dashboard); err != nil {
		return domain.Dashboard{}, err
	}
	s.logInfo("dashboard created", "dashboard_id", dashboard.ID, "owner_id", dashboard.OwnerID)
	return dashboard, nil
}

// GetDashboard returns one dashboard.
func (s *Service) GetDashboard(ctx context.Context, dashboardID string) (domain.Dashboard, error) {
	return s.repo.GetDashboard(ctx, strings.TrimSpace(dashboardID))
}

// ListDashboards lists dashboards for one owner. A blank owner resolves through context and
// config like CreateDashboard does.
func (s *Service) ListDashboards(ctx context.Context, ownerID string, includeArchived bool) ([]domain.Dashboard, error) {
	dashboards, err := s.repo.ListDashboards(ctx, s.resolveOwner(ctx, ownerID), includeArchived)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(dashboards, func(a, b domain.Dashboard) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return dashboards, nil
}

// RenameDashboard renames one dashboard.
func (s *Service) RenameDashboard(ctx context.Context, dashboardID, name string) (domain.Dashboard, error) {
	dashboard, err := s.repo.GetDashboard(ctx, strings.TrimSpace(dashboardID))
	if err != nil {
		return domain.Dashboard{}, err
	}
	if err := dashboard.Rename(name, s.clock()); err != nil {
		return domain.Dashboard{}, err
	}
	if err := s.repo.UpdateDashboard(ctx, dashboard); err != nil {
		return domain.Dashboard{}, err
	}
	return dashboard, nil
}

// ArchiveDashboard archives one dashboard.
func (s *Service) ArchiveDashboard(ctx context.Context, dashboardID string) (domain.Dashboard, error) {
	dashboard, err := s.repo.GetDashboard(ctx, strings.TrimSpace(dashboardID))
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.Archive(s.clock())
	if err := s.repo.UpdateDashboard(ctx, dashboard); err != nil {
		return domain.Dashboard{}, err
	}
	return dashboard, nil
}

// RestoreDashboard restores one archived dashboard.
func (s *Service) RestoreDashboard(ctx context.Context, dashboardID string) (domain.Dashboard, error) {
	dashboard, err := s.repo.GetDashboard(ctx, strings.TrimSpace(dashboardID))
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.Restore(s.clock())
	if err := s.repo.UpdateDashboard(ctx, dashboard); err != nil {
		return domain.Dashboard{}, err
	}
	return dashboard, nil
}

// AddWidgetInput holds input values for add widget operations.
type AddWidgetInput struct {
	DashboardID  string
	Kind         domain.WidgetKind
	Title        string
	Description  string
	Size         domain.SizePreset
	CustomWidth  int
	CustomHeight int
	Priority     int
	Pinned       bool
}

// AddWidget stores a new widget and relayouts every breakpoint of its dashboard.
func (s *Service) AddWidget(ctx context.Context, in AddWidgetInput) (domain.Widget, error) {
	widget, err := s.createWidget(ctx, in)
	if err != nil {
		return domain.Widget{}, err
	}
	if _, err := s.LayoutAll(ctx, widget.DashboardID); err != nil {
		return domain.Widget{}, err
	}
	return widget, nil
}

// createWidget validates and stores one widget without packing.
func (s *Service) createWidget(ctx context.Context, in AddWidgetInput) (domain.Widget, error) {
	dashboard, err := s.writableDashboard(ctx, in.DashboardID)
	if err != nil {
		return domain.Widget{}, err
	}
	widget, err := domain.NewWidget(domain.WidgetInput{
		ID:           s.idGen(),
		DashboardID:  dashboard.ID,
		Kind:         in.Kind,
		Title:        in.Title,
		Description:  in.Description,
		Size:         in.Size,
		CustomWidth:  in.CustomWidth,
		CustomHeight: in.CustomHeight,
		Priority:     in.Priority,
		Pinned:       in.Pinned,
	}, s.clock())
	if err != nil {
		return domain.Widget{}, err
	}
	if err := s.checkFitsEveryBreakpoint(widget); err != nil {
		return domain.Widget{}, err
	}
	if err := s.repo.CreateWidget(ctx, widget); err != nil {
		return domain.Widget{}, err
	}
	s.logDebug("widget added", "dashboard_id", dashboard.ID, "widget_id", widget.ID, "kind", widget.Kind, "size", widget.Size)
	return widget, nil
}

// ResizeWidget changes a widget footprint and relayouts every breakpoint.
func (s *Service) ResizeWidget(ctx context.Context, widgetID string, size domain.SizePreset, customWidth, customHeight int) (domain.Widget, error) {
	widget, err := s.repo.GetWidget(ctx, strings.TrimSpace(widgetID))
	if err != nil {
		return domain.Widget{}, err
	}
	if _, err := s.writableDashboard(ctx, widget.DashboardID); err != nil {
		return domain.Widget{}, err
	}
	if err := widget.Resize(size, customWidth, customHeight, s.clock()); err != nil {
		return domain.Widget{}, err
	}
	if err := s.checkFitsEveryBreakpoint(widget); err != nil {
		return domain.Widget{}, err
	}
	if err := s.repo.UpdateWidget(ctx, widget); err != nil {
		return domain.Widget{}, err
	}
	if _, err := s.LayoutAll(ctx, widget.DashboardID); err != nil {
		return domain.Widget{}, err
	}
	return widget, nil
}

// UpdateWidgetInput holds input values for update widget operations.
type UpdateWidgetInput struct {
	WidgetID    string
	Title       string
	Description string
	Priority    int
	Pinned      bool
}

// UpdateWidget updates widget details and ranking, then relayouts every breakpoint.
func (s *Service) UpdateWidget(ctx context.Context, in UpdateWidgetInput) (domain.Widget, error) {
	widget, err := s.repo.GetWidget(ctx, strings.TrimSpace(in.WidgetID))
	if err != nil {
		return domain.Widget{}, err
	}
	if _, err := s.writableDashboard(ctx, widget.DashboardID); err != nil {
		return domain.Widget{}, err
	}
	if in.Priority < 0 {
		return domain.Widget{}, domain.ErrInvalidPosition
	}
	now := s.clock()
	if err := widget.UpdateDetails(in.Title, in.Description, now); err != nil {
		return domain.Widget{}, err
	}
	widget.Priority = in.Priority
	widget.SetPinned(in.Pinned, now)
	if err := s.repo.UpdateWidget(ctx, widget); err != nil {
		return domain.Widget{}, err
	}
	if _, err := s.LayoutAll(ctx, widget.DashboardID); err != nil {
		return domain.Widget{}, err
	}
	return widget, nil
}

// MoveWidgetInput holds input values for move widget operations.
type MoveWidgetInput struct {
	WidgetID   string
	Breakpoint string
	X          int
	Y          int
}

// MoveWidget places one widget at a requested cell on one breakpoint. The moved widget is
// packed first so it claims the cell; widgets it displaces fall back to the scan.
func (s *Service) MoveWidget(ctx context.Context, in MoveWidgetInput) (Layout, error) {
	widget, err := s.repo.GetWidget(ctx, strings.TrimSpace(in.WidgetID))
	if err != nil {
		return Layout{}, err
	}
	if _, err := s.writableDashboard(ctx, widget.DashboardID); err != nil {
		return Layout{}, err
	}
	bp, err := s.breakpoint(in.Breakpoint)
	if err != nil {
		return Layout{}, err
	}
	if in.X < 0 || in.Y < 0 {
		return Layout{}, domain.ErrInvalidPosition
	}
	width, height, err := widget.Dimensions(bp.Columns)
	if err != nil {
		return Layout{}, err
	}
	if in.X > bp.Columns-width {
		return Layout{}, fmt.Errorf("%w: x=%d width=%d exceeds %d columns", domain.ErrInvalidPosition, in.X, width, bp.Columns)
	}
	if limit := s.packer.RowLimit(); in.Y > limit-height {
		return Layout{}, fmt.Errorf("%w: y=%d height=%d passes row limit %d", domain.ErrInvalidPosition, in.Y, height, limit)
	}
	return s.layout(ctx, widget.DashboardID, bp, &movedWidget{id: widget.ID, at: gridpack.Point{X: in.X, Y: in.Y}})
}

// RemoveWidget deletes a widget with its stored positions and relayouts its dashboard.
func (s *Service) RemoveWidget(ctx context.Context, widgetID string) error {
	widget, err := s.repo.GetWidget(ctx, strings.TrimSpace(widgetID))
	if err != nil {
		return err
	}
	if _, err := s.writableDashboard(ctx, widget.DashboardID); err != nil {
		return err
	}
	if err := s.repo.DeleteWidget(ctx, widget.ID); err != nil {
		return err
	}
	s.logDebug("widget removed", "dashboard_id", widget.DashboardID, "widget_id", widget.ID)
	_, err = s.LayoutAll(ctx, widget.DashboardID)
	return err
}

// GetWidget returns one widget.
func (s *Service) GetWidget(ctx context.Context, widgetID string) (domain.Widget, error) {
	return s.repo.GetWidget(ctx, strings.TrimSpace(widgetID))
}

// ListWidgets lists widgets of one dashboard in packing priority order.
func (s *Service) ListWidgets(ctx context.Context, dashboardID string) ([]domain.Widget, error) {
	dashboardID = strings.TrimSpace(dashboardID)
	if _, err := s.repo.GetDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	widgets, err := s.repo.ListWidgets(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	sortWidgetsForLayout(widgets)
	return widgets, nil
}

// writableDashboard loads a dashboard and rejects archived ones.
func (s *Service) writableDashboard(ctx context.Context, dashboardID string) (domain.Dashboard, error) {
	dashboard, err := s.repo.GetDashboard(ctx, strings.TrimSpace(dashboardID))
	if err != nil {
		return domain.Dashboard{}, err
	}
	if dashboard.ArchivedAt != nil {
		return domain.Dashboard{}, fmt.Errorf("%w: %q", ErrDashboardArchived, dashboard.ID)
	}
	return dashboard, nil
}

// checkFitsEveryBreakpoint rejects widgets whose footprint cannot exist on some breakpoint.
func (s *Service) checkFitsEveryBreakpoint(widget domain.Widget) error {
	limit := s.packer.RowLimit()
	for _, bp := range s.breakpoints {
		_, height, err := widget.Dimensions(bp.Columns)
		if err != nil {
			return fmt.Errorf("breakpoint %q: %w", bp.Name, err)
		}
		if height > limit {
			return fmt.Errorf("breakpoint %q: %w: height %d exceeds row limit %d", bp.Name, domain.ErrInvalidSize, height, limit)
		}
	}
	return nil
}

// sortWidgetsForLayout orders pinned widgets first, then by priority, creation time and id.
func sortWidgetsForLayout(widgets []domain.Widget) {
	slices.SortStableFunc(widgets, func(a, b domain.Widget) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// sanitizeBreakpoints normalizes configured breakpoints and drops invalid or duplicate tiers.
func sanitizeBreakpoints(in []domain.Breakpoint) []domain.Breakpoint {
	out := make([]domain.Breakpoint, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		bp, err := domain.NewBreakpoint(raw.Name, raw.Columns, raw.MinWidth)
		if err != nil {
			continue
		}
		if _, ok := seen[bp.Name]; ok {
			continue
		}
		seen[bp.Name] = struct{}{}
		out = append(out, bp)
	}
	return out
}

func (s *Service) logDebug(msg string, keyvals ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keyvals...)
	}
}

func (s *Service) logInfo(msg string, keyvals ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keyvals...)
	}
}

func (s *Service) logError(msg string, keyvals ...any) {
	if s.logger != nil {
		s.logger.Error(msg, keyvals...)
	}
}

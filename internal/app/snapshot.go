package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "fieldboard.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Dashboards []SnapshotDashboard `json:"dashboards"`
	Widgets    []SnapshotWidget    `json:"widgets"`
	Positions  []SnapshotPosition  `json:"positions"`
}

// SnapshotDashboard represents snapshot dashboard data used by this package.
type SnapshotDashboard struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// SnapshotWidget represents snapshot widget data used by this package.
type SnapshotWidget struct {
	ID           string            `json:"id"`
	DashboardID  string            `json:"dashboard_id"`
	Kind         domain.WidgetKind `json:"kind"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Size         domain.SizePreset `json:"size"`
	CustomWidth  int               `json:"custom_width,omitempty"`
	CustomHeight int               `json:"custom_height,omitempty"`
	Priority     int               `json:"priority"`
	Pinned       bool              `json:"pinned"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SnapshotPosition represents one stored widget rectangle in a snapshot.
type SnapshotPosition struct {
	WidgetID    string    `json:"widget_id"`
	DashboardID string    `json:"dashboard_id"`
	Breakpoint  string    `json:"breakpoint"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context, includeArchived bool) (Snapshot, error) {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Dashboards: []SnapshotDashboard{},
		Widgets:    []SnapshotWidget{},
		Positions:  []SnapshotPosition{},
	}
	dashboards, err := s.repo.ListDashboards(ctx, "", includeArchived)
	if err != nil {
		return Snapshot{}, err
	}
	for _, dashboard := range dashboards {
		snap.Dashboards = append(snap.Dashboards, snapshotDashboardFromDomain(dashboard))
		widgets, err := s.repo.ListWidgets(ctx, dashboard.ID)
		if err != nil {
			return Snapshot{}, err
		}
		for _, widget := range widgets {
			snap.Widgets = append(snap.Widgets, snapshotWidgetFromDomain(widget))
		}
		positions, err := s.repo.ListWidgetPositions(ctx, dashboard.ID, "")
		if err != nil {
			return Snapshot{}, err
		}
		for _, pos := range positions {
			snap.Positions = append(snap.Positions, snapshotPositionFromDomain(pos))
		}
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts dashboards and widgets and replaces the stored layouts the
// snapshot carries.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	for _, dashboard := range snap.Dashboards {
		if err := s.upsertDashboard(ctx, dashboard.toDomain()); err != nil {
			return err
		}
	}
	for _, widget := range snap.Widgets {
		if err := s.upsertWidget(ctx, widget.toDomain()); err != nil {
			return err
		}
	}

	type layoutKey struct{ dashboardID, breakpoint string }
	grouped := map[layoutKey][]domain.WidgetPosition{}
	keys := make([]layoutKey, 0)
	for _, pos := range snap.Positions {
		key := layoutKey{strings.TrimSpace(pos.DashboardID), domain.NormalizeBreakpointName(pos.Breakpoint)}
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], pos.toDomain())
	}
	for _, key := range keys {
		if err := s.repo.ReplaceWidgetPositions(ctx, key.dashboardID, key.breakpoint, grouped[key]); err != nil {
			return err
		}
	}
	s.logInfo("snapshot imported", "dashboards", len(snap.Dashboards), "widgets", len(snap.Widgets), "positions", len(snap.Positions))
	return nil
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	dashboardIDs := map[string]struct{}{}
	for i, d := range s.Dashboards {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.OwnerID) == "" {
			return fmt.Errorf("dashboards[%d] id and owner_id are required", i)
		}
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("dashboards[%d].name is required", i)
		}
		if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
			return fmt.Errorf("dashboards[%d] timestamps are required", i)
		}
		if _, exists := dashboardIDs[d.ID]; exists {
			return fmt.Errorf("duplicate dashboard id: %q", d.ID)
		}
		dashboardIDs[d.ID] = struct{}{}
	}

	widgetIDs := map[string]string{}
	for i, w := range s.Widgets {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("widgets[%d].id is required", i)
		}
		if _, ok := dashboardIDs[w.DashboardID]; !ok {
			return fmt.Errorf("widgets[%d] references unknown dashboard_id %q", i, w.DashboardID)
		}
		if _, exists := widgetIDs[w.ID]; exists {
			return fmt.Errorf("duplicate widget id: %q", w.ID)
		}
		if _, err := domain.NewWidget(domain.WidgetInput{
			ID:           w.ID,
			DashboardID:  w.DashboardID,
			Kind:         w.Kind,
			Title:        w.Title,
			Size:         w.Size,
			CustomWidth:  w.CustomWidth,
			CustomHeight: w.CustomHeight,
			Priority:     w.Priority,
		}, w.CreatedAt); err != nil {
			return fmt.Errorf("widgets[%d]: %w", i, err)
		}
		widgetIDs[w.ID] = w.DashboardID
	}

	type layoutKey struct{ dashboardID, breakpoint string }
	layouts := map[layoutKey][]gridpack.Placement{}
	for i, p := range s.Positions {
		dashboardID, ok := widgetIDs[p.WidgetID]
		if !ok {
			return fmt.Errorf("positions[%d] references unknown widget_id %q", i, p.WidgetID)
		}
		if dashboardID != p.DashboardID {
			return fmt.Errorf("positions[%d] dashboard_id %q does not own widget %q", i, p.DashboardID, p.WidgetID)
		}
		if _, err := domain.NewWidgetPosition(p.WidgetID, p.DashboardID, p.Breakpoint, p.X, p.Y, p.Width, p.Height, p.UpdatedAt); err != nil {
			return fmt.Errorf("positions[%d]: %w", i, err)
		}
		key := layoutKey{p.DashboardID, domain.NormalizeBreakpointName(p.Breakpoint)}
		layouts[key] = append(layouts[key], gridpack.Placement{
			Item: gridpack.Item{ID: p.WidgetID, Width: p.Width, Height: p.Height},
			X:    p.X,
			Y:    p.Y,
		})
	}
	for key, placements := range layouts {
		columns := 0
		for _, p := range placements {
			columns = max(columns, p.X+p.Width)
		}
		if err := gridpack.Verify(placements, columns); err != nil {
			return fmt.Errorf("dashboard %q breakpoint %q: %w", key.dashboardID, key.breakpoint, err)
		}
	}

	return nil
}

// upsertDashboard handles upsert dashboard.
func (s *Service) upsertDashboard(ctx context.Context, d domain.Dashboard) error {
	if _, err := s.repo.GetDashboard(ctx, d.ID); err == nil {
		return s.repo.UpdateDashboard(ctx, d)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateDashboard(ctx, d)
}

// upsertWidget handles upsert widget.
func (s *Service) upsertWidget(ctx context.Context, w domain.Widget) error {
	if _, err := s.repo.GetWidget(ctx, w.ID); err == nil {
		return s.repo.UpdateWidget(ctx, w)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateWidget(ctx, w)
}

// sort orders snapshot rows deterministically.
func (s *Snapshot) sort() {
	sort.Slice(s.Dashboards, func(i, j int) bool {
		return s.Dashboards[i].ID < s.Dashboards[j].ID
	})
	sort.Slice(s.Widgets, func(i, j int) bool {
		a := s.Widgets[i]
		b := s.Widgets[j]
		if a.DashboardID == b.DashboardID {
			return a.ID < b.ID
		}
		return a.DashboardID < b.DashboardID
	})
	sort.Slice(s.Positions, func(i, j int) bool {
		a := s.Positions[i]
		b := s.Positions[j]
		if a.DashboardID != b.DashboardID {
			return a.DashboardID < b.DashboardID
		}
		if a.Breakpoint != b.Breakpoint {
			return a.Breakpoint < b.Breakpoint
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// snapshotDashboardFromDomain handles snapshot dashboard from domain.
func snapshotDashboardFromDomain(d domain.Dashboard) SnapshotDashboard {
	return SnapshotDashboard{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Slug:       d.Slug,
		Name:       d.Name,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		ArchivedAt: copyTimePtr(d.ArchivedAt),
	}
}

// snapshotWidgetFromDomain handles snapshot widget from domain.
func snapshotWidgetFromDomain(w domain.Widget) SnapshotWidget {
	return SnapshotWidget{
		ID:           w.ID,
		DashboardID:  w.DashboardID,
		Kind:         w.Kind,
		Title:        w.Title,
		Description:  w.Description,
		Size:         w.Size,
		CustomWidth:  w.CustomWidth,
		CustomHeight: w.CustomHeight,
		Priority:     w.Priority,
		Pinned:       w.Pinned,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

// snapshotPositionFromDomain handles snapshot position from domain.
func snapshotPositionFromDomain(p domain.WidgetPosition) SnapshotPosition {
	return SnapshotPosition{
		WidgetID:    p.WidgetID,
		DashboardID: p.DashboardID,
		Breakpoint:  p.Breakpoint,
		X:           p.X,
		Y:           p.Y,
		Width:       p.Width,
		Height:      p.Height,
		UpdatedAt:   p.UpdatedAt,
	}
}

// toDomain converts a snapshot dashboard row into a domain value.
func (d SnapshotDashboard) toDomain() domain.Dashboard {
	slug := strings.TrimSpace(d.Slug)
	if slug == "" {
		slug = fallbackSlug(d.Name)
	}
	return domain.Dashboard{
		ID:         strings.TrimSpace(d.ID),
		OwnerID:    strings.TrimSpace(d.OwnerID),
		Slug:       slug,
		Name:       strings.TrimSpace(d.Name),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
		ArchivedAt: copyTimePtr(d.ArchivedAt),
	}
}

// toDomain converts a snapshot widget row into a domain value.
func (w SnapshotWidget) toDomain() domain.Widget {
	size := domain.NormalizeSizePreset(w.Size)
	if size == "" {
		size = domain.SizeMedium
	}
	kind := domain.NormalizeWidgetKind(w.Kind)
	title := strings.TrimSpace(w.Title)
	if title == "" {
		title = kind.Title()
	}
	out := domain.Widget{
		ID:           strings.TrimSpace(w.ID),
		DashboardID:  strings.TrimSpace(w.DashboardID),
		Kind:         kind,
		Title:        title,
		Description:  w.Description,
		Size:         size,
		CustomWidth:  w.CustomWidth,
		CustomHeight: w.CustomHeight,
		Priority:     w.Priority,
		Pinned:       w.Pinned,
		CreatedAt:    w.CreatedAt.UTC(),
		UpdatedAt:    w.UpdatedAt.UTC(),
	}
	if size != domain.SizeCustom {
		out.CustomWidth, out.CustomHeight = 0, 0
	}
	return out
}

// toDomain converts a snapshot position row into a domain value.
func (p SnapshotPosition) toDomain() domain.WidgetPosition {
	return domain.WidgetPosition{
		WidgetID:    strings.TrimSpace(p.WidgetID),
		DashboardID: strings.TrimSpace(p.DashboardID),
		Breakpoint:  domain.NormalizeBreakpointName(p.Breakpoint),
		X:           p.X,
		Y:           p.Y,
		Width:       p.Width,
		Height:      p.Height,
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

// fallbackSlug derives a slug from a display name.
func fallbackSlug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "-")
}

// copyTimePtr copies a time pointer so snapshot rows never alias domain values.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	out := in.UTC()
	return &out
}

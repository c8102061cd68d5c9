package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// Layout is the packed widget arrangement of one dashboard on one breakpoint.
type Layout struct {
	DashboardID string       `json:"dashboard_id"`
	Breakpoint  string       `json:"breakpoint"`
	Columns     int          `json:"columns"`
	Rows        int          `json:"rows"`
	FreeCells   int          `json:"free_cells"`
	Items       []LayoutItem `json:"items"`
}

// LayoutItem is one positioned widget in a layout, in (y, x) order.
type LayoutItem struct {
	WidgetID string            `json:"widget_id"`
	Kind     domain.WidgetKind `json:"kind"`
	Title    string            `json:"title"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Sticky   bool              `json:"sticky"`
}

// Find returns the layout item for a widget id.
func (l Layout) Find(widgetID string) (LayoutItem, bool) {
	for _, item := range l.Items {
		if item.WidgetID == widgetID {
			return item, true
		}
	}
	return LayoutItem{}, false
}

// movedWidget forces one widget to the front of a pass with an explicit preferred cell.
type movedWidget struct {
	id string
	at gridpack.Point
}

// Layout repacks one dashboard breakpoint from its widgets and stored positions, persists the
// result, and returns it. On failure the stored layout is left as it was.
func (s *Service) Layout(ctx context.Context, dashboardID, breakpoint string) (Layout, error) {
	bp, err := s.breakpoint(breakpoint)
	if err != nil {
		return Layout{}, err
	}
	return s.layout(ctx, strings.TrimSpace(dashboardID), bp, nil)
}

// LayoutAll repacks every configured breakpoint of one dashboard.
func (s *Service) LayoutAll(ctx context.Context, dashboardID string) ([]Layout, error) {
	dashboardID = strings.TrimSpace(dashboardID)
	out := make([]Layout, 0, len(s.breakpoints))
	for _, bp := range s.breakpoints {
		layout, err := s.layout(ctx, dashboardID, bp, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, layout)
	}
	return out, nil
}

// CurrentLayout returns the stored layout for one dashboard breakpoint without repacking.
func (s *Service) CurrentLayout(ctx context.Context, dashboardID, breakpoint string) (Layout, error) {
	dashboardID = strings.TrimSpace(dashboardID)
	bp, err := s.breakpoint(breakpoint)
	if err != nil {
		return Layout{}, err
	}
	if _, err := s.repo.GetDashboard(ctx, dashboardID); err != nil {
		return Layout{}, err
	}
	widgets, err := s.repo.ListWidgets(ctx, dashboardID)
	if err != nil {
		return Layout{}, err
	}
	positions, err := s.repo.ListWidgetPositions(ctx, dashboardID, bp.Name)
	if err != nil {
		return Layout{}, err
	}
	byID := make(map[string]domain.Widget, len(widgets))
	for _, widget := range widgets {
		byID[widget.ID] = widget
	}
	placements := make([]gridpack.Placement, 0, len(positions))
	for _, pos := range positions {
		if _, ok := byID[pos.WidgetID]; !ok {
			continue
		}
		placements = append(placements, gridpack.Placement{
			Item: gridpack.Item{ID: pos.WidgetID, Width: pos.Width, Height: pos.Height},
			X:    pos.X,
			Y:    pos.Y,
		})
	}
	slices.SortFunc(placements, func(a, b gridpack.Placement) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return buildLayout(dashboardID, bp, placements, byID), nil
}

// PackResult is the output of a stateless packing request.
type PackResult struct {
	Placements []gridpack.Placement `json:"placements"`
	Summary    gridpack.Summary     `json:"summary"`
}

// PackPreview runs the packer on caller-supplied items without touching storage.
func (s *Service) PackPreview(items []gridpack.Item, columns int) (PackResult, error) {
	placements, err := s.packer.Pack(items, columns)
	if err != nil {
		return PackResult{}, err
	}
	return PackResult{
		Placements: placements,
		Summary:    gridpack.Summarize(placements, columns),
	}, nil
}

// layout runs one packing pass and persists it.
func (s *Service) layout(ctx context.Context, dashboardID string, bp domain.Breakpoint, moved *movedWidget) (Layout, error) {
	if _, err := s.repo.GetDashboard(ctx, dashboardID); err != nil {
		return Layout{}, err
	}
	widgets, err := s.repo.ListWidgets(ctx, dashboardID)
	if err != nil {
		return Layout{}, err
	}
	stored, err := s.repo.ListWidgetPositions(ctx, dashboardID, bp.Name)
	if err != nil {
		return Layout{}, err
	}

	items, byID, err := layoutItems(widgets, stored, bp.Columns, s.packer.RowLimit(), moved)
	if err != nil {
		return Layout{}, s.layoutFailed(dashboardID, bp, err)
	}
	placements, err := s.packer.Pack(items, bp.Columns)
	if err != nil {
		return Layout{}, s.layoutFailed(dashboardID, bp, err)
	}

	now := s.clock()
	positions := make([]domain.WidgetPosition, 0, len(placements))
	for _, p := range placements {
		pos, err := domain.NewWidgetPosition(p.ID, dashboardID, bp.Name, p.X, p.Y, p.Width, p.Height, now)
		if err != nil {
			return Layout{}, s.layoutFailed(dashboardID, bp, err)
		}
		positions = append(positions, pos)
	}
	if err := s.repo.ReplaceWidgetPositions(ctx, dashboardID, bp.Name, positions); err != nil {
		return Layout{}, err
	}

	layout := buildLayout(dashboardID, bp, placements, byID)
	s.logDebug("layout packed", "dashboard_id", dashboardID, "breakpoint", bp.Name, "widgets", len(layout.Items), "rows", layout.Rows)
	return layout, nil
}

// layoutFailed logs and wraps a packing failure.
func (s *Service) layoutFailed(dashboardID string, bp domain.Breakpoint, err error) error {
	s.logError("layout failed; keeping stored layout", "dashboard_id", dashboardID, "breakpoint", bp.Name, "err", err)
	return fmt.Errorf("%w: dashboard %q breakpoint %q: %w", ErrLayoutFailed, dashboardID, bp.Name, err)
}

// layoutItems converts widgets into packer input in priority order, carrying stored positions
// as preferred cells. Stored rows that would pass rowLimit are dropped so the widget rescans.
func layoutItems(widgets []domain.Widget, stored []domain.WidgetPosition, columns, rowLimit int, moved *movedWidget) ([]gridpack.Item, map[string]domain.Widget, error) {
	widgets = slices.Clone(widgets)
	sortWidgetsForLayout(widgets)
	if moved != nil {
		idx := slices.IndexFunc(widgets, func(w domain.Widget) bool { return w.ID == moved.id })
		if idx > 0 {
			w := widgets[idx]
			widgets = slices.Delete(widgets, idx, idx+1)
			widgets = slices.Insert(widgets, 0, w)
		}
	}

	preferred := make(map[string]gridpack.Point, len(stored))
	for _, pos := range stored {
		preferred[pos.WidgetID] = gridpack.Point{X: pos.X, Y: pos.Y}
	}
	if moved != nil {
		preferred[moved.id] = moved.at
	}

	items := make([]gridpack.Item, 0, len(widgets))
	byID := make(map[string]domain.Widget, len(widgets))
	for _, widget := range widgets {
		width, height, err := widget.Dimensions(columns)
		if err != nil {
			return nil, nil, err
		}
		item := gridpack.Item{ID: widget.ID, Width: width, Height: height}
		if pt, ok := preferred[widget.ID]; ok && pt.Y <= rowLimit-height {
			item.Preferred = &pt
		}
		items = append(items, item)
		byID[widget.ID] = widget
	}
	return items, byID, nil
}

// buildLayout joins placements with widget metadata.
func buildLayout(dashboardID string, bp domain.Breakpoint, placements []gridpack.Placement, widgets map[string]domain.Widget) Layout {
	summary := gridpack.Summarize(placements, bp.Columns)
	layout := Layout{
		DashboardID: dashboardID,
		Breakpoint:  bp.Name,
		Columns:     bp.Columns,
		Rows:        summary.Rows,
		FreeCells:   summary.FreeCells,
		Items:       make([]LayoutItem, 0, len(placements)),
	}
	for _, p := range placements {
		widget := widgets[p.ID]
		layout.Items = append(layout.Items, LayoutItem{
			WidgetID: p.ID,
			Kind:     widget.Kind,
			Title:    widget.Title,
			X:        p.X,
			Y:        p.Y,
			Width:    p.Width,
			Height:   p.Height,
			Sticky:   p.Sticky,
		})
	}
	return layout
}

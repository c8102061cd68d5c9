package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hylla/fieldboard/internal/adapters/storage/sqlite"
	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/domain"
	"github.com/hylla/fieldboard/internal/gridpack"
)

// newAdapterForTest builds an adapter over an in-memory sqlite repository.
func newAdapterForTest(t *testing.T) *AppServiceAdapter {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	seq := 0
	svc := app.NewService(repo, func() string {
		seq++
		return fmt.Sprintf("id-%02d", seq)
	}, nil, app.ServiceConfig{})
	return NewAppServiceAdapter(svc)
}

// TestAppServiceAdapterDashboardFlow verifies create, add, move, and archive through the adapter.
func TestAppServiceAdapterDashboardFlow(t *testing.T) {
	ctx := WithOwner(context.Background(), "tech-4")
	adapter := newAdapterForTest(t)

	dashboard, err := adapter.CreateDashboard(ctx, CreateDashboardRequest{Name: "Dispatch"})
	if err != nil {
		t.Fatalf("CreateDashboard() error = %v", err)
	}
	if dashboard.OwnerID != "tech-4" || dashboard.Slug != "dispatch" {
		t.Fatalf("unexpected dashboard %#v", dashboard)
	}

	first, err := adapter.AddWidget(ctx, AddWidgetRequest{DashboardID: dashboard.ID, Kind: "jobs-map", Size: "medium"})
	if err != nil {
		t.Fatalf("AddWidget(first) error = %v", err)
	}
	if first.Kind != string(domain.WidgetJobsMap) || first.Title != "Jobs map" {
		t.Fatalf("unexpected widget %#v", first)
	}
	second, err := adapter.AddWidget(ctx, AddWidgetRequest{DashboardID: dashboard.ID, Kind: "notes", Size: "medium"})
	if err != nil {
		t.Fatalf("AddWidget(second) error = %v", err)
	}

	layout, err := adapter.CurrentLayout(ctx, LayoutRequest{DashboardID: dashboard.ID})
	if err != nil {
		t.Fatalf("CurrentLayout() error = %v", err)
	}
	if layout.Breakpoint != domain.BreakpointDesktop || len(layout.Items) != 2 {
		t.Fatalf("unexpected layout %#v", layout)
	}
	if item := layout.Items[1]; item.WidgetID != second.ID || item.X != 4 || item.Y != 0 {
		t.Fatalf("expected second widget at (4,0), got %#v", item)
	}

	moved, err := adapter.MoveWidget(ctx, MoveWidgetRequest{WidgetID: second.ID, X: 8, Y: 0})
	if err != nil {
		t.Fatalf("MoveWidget() error = %v", err)
	}
	if item := moved.Items[1]; item.WidgetID != second.ID || item.X != 8 || !item.Sticky {
		t.Fatalf("expected moved widget at (8,0), got %#v", item)
	}

	listed, err := adapter.ListDashboards(ctx, ListDashboardsRequest{})
	if err != nil {
		t.Fatalf("ListDashboards() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != dashboard.ID {
		t.Fatalf("unexpected dashboards %#v", listed)
	}

	if _, err := adapter.ArchiveDashboard(ctx, dashboard.ID); err != nil {
		t.Fatalf("ArchiveDashboard() error = %v", err)
	}
	_, err = adapter.AddWidget(ctx, AddWidgetRequest{DashboardID: dashboard.ID, Kind: "notes"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for archived dashboard, got %v", err)
	}
	if _, err := adapter.MoveWidget(ctx, MoveWidgetRequest{WidgetID: second.ID, X: 0, Y: 0}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for move on archived dashboard, got %v", err)
	}
	if _, err := adapter.RestoreDashboard(ctx, dashboard.ID); err != nil {
		t.Fatalf("RestoreDashboard() error = %v", err)
	}
	if err := adapter.RemoveWidget(ctx, first.ID); err != nil {
		t.Fatalf("RemoveWidget() error = %v", err)
	}
	widgets, err := adapter.ListWidgets(ctx, dashboard.ID)
	if err != nil {
		t.Fatalf("ListWidgets() error = %v", err)
	}
	if len(widgets) != 1 || widgets[0].ID != second.ID {
		t.Fatalf("unexpected widgets %#v", widgets)
	}
}

// TestAppServiceAdapterErrorMapping verifies app and packer errors map to transport sentinels.
func TestAppServiceAdapterErrorMapping(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterForTest(t)
	dashboard, err := adapter.CreateDashboard(ctx, CreateDashboardRequest{Name: "Ops"})
	if err != nil {
		t.Fatalf("CreateDashboard() error = %v", err)
	}

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "missing dashboard",
			call: func() error { _, err := adapter.GetDashboard(ctx, "missing"); return err },
			want: ErrNotFound,
		},
		{
			name: "blank name",
			call: func() error { _, err := adapter.CreateDashboard(ctx, CreateDashboardRequest{Name: " "}); return err },
			want: ErrInvalidRequest,
		},
		{
			name: "unknown kind",
			call: func() error {
				_, err := adapter.AddWidget(ctx, AddWidgetRequest{DashboardID: dashboard.ID, Kind: "weather"})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "custom wider than mobile",
			call: func() error {
				_, err := adapter.AddWidget(ctx, AddWidgetRequest{DashboardID: dashboard.ID, Kind: "notes", Size: "custom", CustomWidth: 6, CustomHeight: 2})
				return err
			},
			want: ErrInvalidWidth,
		},
		{
			name: "unknown breakpoint",
			call: func() error {
				_, err := adapter.Relayout(ctx, LayoutRequest{DashboardID: dashboard.ID, Breakpoint: "watch"})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "pack too wide",
			call: func() error {
				_, err := adapter.Pack(ctx, PackRequest{Columns: 4, Items: []gridpack.Item{{ID: "a", Width: 5, Height: 1}}})
				return err
			},
			want: ErrInvalidWidth,
		},
		{
			name: "pack zero columns",
			call: func() error {
				_, err := adapter.Pack(ctx, PackRequest{Columns: 0})
				return err
			},
			want: ErrInvalidRequest,
		},
		{
			name: "move missing widget id",
			call: func() error { _, err := adapter.MoveWidget(ctx, MoveWidgetRequest{}); return err },
			want: ErrInvalidRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestMapAppErrorExhausted verifies packing exhaustion keeps its own sentinel.
func TestMapAppErrorExhausted(t *testing.T) {
	err := fmt.Errorf("%w: %w", app.ErrLayoutFailed, &gridpack.ExhaustedError{ItemID: "w1", MaxRows: 1})
	mapped := mapAppError("relayout", err)
	if !errors.Is(mapped, ErrPackingExhausted) || !errors.Is(mapped, app.ErrLayoutFailed) {
		t.Fatalf("expected packing exhausted mapping, got %v", mapped)
	}
	if mapAppError("noop", nil) != nil {
		t.Fatal("expected nil error to stay nil")
	}
}

// TestAppServiceAdapterPackAndBreakpoints verifies stateless packing and breakpoint listing.
func TestAppServiceAdapterPackAndBreakpoints(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapterForTest(t)

	res, err := adapter.Pack(ctx, PackRequest{
		Columns: 4,
		Items: []gridpack.Item{
			{ID: "a", Width: 2, Height: 2},
			{ID: "b", Width: 2, Height: 1, Preferred: &gridpack.Point{X: 2, Y: 0}},
			{ID: "c", Width: 4, Height: 1},
		},
	})
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if len(res.Placements) != 3 || res.Placements[2].ID != "c" || res.Placements[2].Y != 2 {
		t.Fatalf("unexpected placements %#v", res.Placements)
	}
	if res.Summary.Rows != 3 || res.Summary.Sticky != 1 {
		t.Fatalf("unexpected summary %#v", res.Summary)
	}

	bps, err := adapter.ListBreakpoints(ctx)
	if err != nil {
		t.Fatalf("ListBreakpoints() error = %v", err)
	}
	if len(bps) != 3 || !bps[0].Default || bps[0].Name != domain.BreakpointDesktop {
		t.Fatalf("unexpected breakpoints %#v", bps)
	}

	var nilAdapter *AppServiceAdapter
	if _, err := nilAdapter.ListBreakpoints(ctx); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected unconfigured adapter error, got %v", err)
	}
}

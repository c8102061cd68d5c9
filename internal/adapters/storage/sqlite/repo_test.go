package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "fieldboard.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepository_DashboardWidgetLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	dashboard, err := domain.NewDashboard("d1", "tech-7", "Dispatch", now)
	if err != nil {
		t.Fatalf("NewDashboard() error = %v", err)
	}
	if err := repo.CreateDashboard(ctx, dashboard); err != nil {
		t.Fatalf("CreateDashboard() error = %v", err)
	}
	other, _ := domain.NewDashboard("d2", "tech-8", "Billing", now.Add(time.Minute))
	if err := repo.CreateDashboard(ctx, other); err != nil {
		t.Fatalf("CreateDashboard() error = %v", err)
	}

	loaded, err := repo.GetDashboard(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDashboard() error = %v", err)
	}
	if loaded.Name != "Dispatch" || !loaded.CreatedAt.Equal(now) {
		t.Fatalf("unexpected dashboard %#v", loaded)
	}

	owned, err := repo.ListDashboards(ctx, "tech-7", false)
	if err != nil {
		t.Fatalf("ListDashboards() error = %v", err)
	}
	if len(owned) != 1 || owned[0].ID != "d1" {
		t.Fatalf("unexpected owner listing %#v", owned)
	}

	loaded.Archive(now.Add(time.Hour))
	if err := repo.UpdateDashboard(ctx, loaded); err != nil {
		t.Fatalf("UpdateDashboard() error = %v", err)
	}
	active, err := repo.ListDashboards(ctx, "", false)
	if err != nil {
		t.Fatalf("ListDashboards() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "d2" {
		t.Fatalf("expected archived dashboard hidden, got %#v", active)
	}
	all, err := repo.ListDashboards(ctx, "", true)
	if err != nil {
		t.Fatalf("ListDashboards() error = %v", err)
	}
	if len(all) != 2 || all[0].ArchivedAt == nil {
		t.Fatalf("expected archived dashboard listed first, got %#v", all)
	}

	widget, err := domain.NewWidget(domain.WidgetInput{
		ID:           "w1",
		DashboardID:  "d1",
		Kind:         domain.WidgetJobsMap,
		Description:  "map of **today**",
		Size:         domain.SizeCustom,
		CustomWidth:  4,
		CustomHeight: 3,
		Priority:     2,
		Pinned:       true,
	}, now)
	if err != nil {
		t.Fatalf("NewWidget() error = %v", err)
	}
	if err := repo.CreateWidget(ctx, widget); err != nil {
		t.Fatalf("CreateWidget() error = %v", err)
	}
	got, err := repo.GetWidget(ctx, "w1")
	if err != nil {
		t.Fatalf("GetWidget() error = %v", err)
	}
	if got.Kind != domain.WidgetJobsMap || got.Size != domain.SizeCustom || got.CustomWidth != 4 || got.CustomHeight != 3 || !got.Pinned || got.Priority != 2 {
		t.Fatalf("unexpected widget %#v", got)
	}

	if err := got.Resize(domain.SizeWide, 0, 0, now.Add(time.Minute)); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	got.SetPinned(false, now.Add(time.Minute))
	if err := repo.UpdateWidget(ctx, got); err != nil {
		t.Fatalf("UpdateWidget() error = %v", err)
	}
	widgets, err := repo.ListWidgets(ctx, "d1")
	if err != nil {
		t.Fatalf("ListWidgets() error = %v", err)
	}
	if len(widgets) != 1 || widgets[0].Size != domain.SizeWide || widgets[0].Pinned {
		t.Fatalf("unexpected widgets %#v", widgets)
	}
}

func TestRepository_ReplaceWidgetPositions(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	dashboard, _ := domain.NewDashboard("d1", "u1", "Ops", now)
	if err := repo.CreateDashboard(ctx, dashboard); err != nil {
		t.Fatalf("CreateDashboard() error = %v", err)
	}
	for _, id := range []string{"w1", "w2"} {
		w, _ := domain.NewWidget(domain.WidgetInput{ID: id, DashboardID: "d1", Kind: domain.WidgetNotes}, now)
		if err := repo.CreateWidget(ctx, w); err != nil {
			t.Fatalf("CreateWidget() error = %v", err)
		}
	}

	pos := func(widgetID, bp string, x, y int) domain.WidgetPosition {
		p, err := domain.NewWidgetPosition(widgetID, "d1", bp, x, y, 4, 2, now)
		if err != nil {
			t.Fatalf("NewWidgetPosition() error = %v", err)
		}
		return p
	}
	if err := repo.ReplaceWidgetPositions(ctx, "d1", "desktop", []domain.WidgetPosition{pos("w1", "desktop", 0, 0), pos("w2", "desktop", 4, 0)}); err != nil {
		t.Fatalf("ReplaceWidgetPositions() error = %v", err)
	}
	if err := repo.ReplaceWidgetPositions(ctx, "d1", "mobile", []domain.WidgetPosition{pos("w1", "mobile", 0, 0), pos("w2", "mobile", 0, 2)}); err != nil {
		t.Fatalf("ReplaceWidgetPositions() error = %v", err)
	}

	// a failing replace must leave the previous rows in place
	bad := []domain.WidgetPosition{pos("w2", "desktop", 0, 0), pos("w2", "desktop", 4, 0)}
	if err := repo.ReplaceWidgetPositions(ctx, "d1", "desktop", bad); err == nil {
		t.Fatal("expected duplicate primary key error")
	}
	desktop, err := repo.ListWidgetPositions(ctx, "d1", "desktop")
	if err != nil {
		t.Fatalf("ListWidgetPositions() error = %v", err)
	}
	if len(desktop) != 2 || desktop[0].WidgetID != "w1" || desktop[1].X != 4 {
		t.Fatalf("expected rolled back desktop layout, got %#v", desktop)
	}

	all, err := repo.ListWidgetPositions(ctx, "d1", "")
	if err != nil {
		t.Fatalf("ListWidgetPositions() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 positions across breakpoints, got %d", len(all))
	}

	if err := repo.DeleteWidget(ctx, "w1"); err != nil {
		t.Fatalf("DeleteWidget() error = %v", err)
	}
	all, err = repo.ListWidgetPositions(ctx, "d1", "")
	if err != nil {
		t.Fatalf("ListWidgetPositions() error = %v", err)
	}
	for _, p := range all {
		if p.WidgetID == "w1" {
			t.Fatalf("expected w1 positions removed, got %#v", all)
		}
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 remaining positions, got %d", len(all))
	}
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, err := repo.GetDashboard(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetWidget(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateDashboard(ctx, domain.Dashboard{ID: "missing"}); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteWidget(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_ServiceIntegration(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seq := 0
	svc := app.NewService(repo, func() string {
		seq++
		return "id-" + string(rune('a'+seq))
	}, nil, app.ServiceConfig{})

	dashboard, err := svc.SeedSampleDashboard(ctx, "tech-1")
	if err != nil {
		t.Fatalf("SeedSampleDashboard() error = %v", err)
	}
	layout, err := svc.CurrentLayout(ctx, dashboard.ID, domain.BreakpointDesktop)
	if err != nil {
		t.Fatalf("CurrentLayout() error = %v", err)
	}
	if len(layout.Items) != len(domain.WidgetKinds()) {
		t.Fatalf("expected %d widgets in layout, got %d", len(domain.WidgetKinds()), len(layout.Items))
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

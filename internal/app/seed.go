package app

import (
	"context"

	"github.com/hylla/fieldboard/internal/domain"
)

// sampleWidgets is the widget set of the seeded field-operations dashboard.
var sampleWidgets = []AddWidgetInput{
	{Kind: domain.WidgetOpenWorkOrders, Size: domain.SizeSmall, Priority: 0, Pinned: true,
		Description: "Work orders in **open** or **scheduled** state, grouped by region."},
	{Kind: domain.WidgetOverdueWorkOrders, Size: domain.SizeSmall, Priority: 1,
		Description: "Jobs past their promised completion date.\n\n- sorted by age\n- escalations highlighted"},
	{Kind: domain.WidgetTechnicianSchedule, Size: domain.SizeWide, Priority: 2,
		Description: "Today's assignments per technician with travel gaps."},
	{Kind: domain.WidgetJobsMap, Size: domain.SizeLarge, Priority: 3,
		Description: "Live job locations. Pins are colored by job status."},
	{Kind: domain.WidgetRevenueSummary, Size: domain.SizeMedium, Priority: 4,
		Description: "Invoiced versus collected revenue for the current month."},
	{Kind: domain.WidgetRecentActivity, Size: domain.SizeTall, Priority: 5,
		Description: "Latest status changes, notes and uploads across all jobs."},
	{Kind: domain.WidgetPartsInventory, Size: domain.SizeMedium, Priority: 6,
		Description: "Parts below reorder level in the warehouse and on trucks."},
	{Kind: domain.WidgetCustomerFeedback, Size: domain.SizeSmall, Priority: 7,
		Description: "Post-visit survey scores, last 30 days."},
	{Kind: domain.WidgetNotes, Size: domain.SizeFull, Priority: 8, Title: "Dispatcher notes",
		Description: "Shift handover notes.\n\n> Keep entries short."},
}

// SeedSampleDashboard creates a field-operations dashboard with one widget of every kind and
// packs it for every breakpoint.
func (s *Service) SeedSampleDashboard(ctx context.Context, ownerID string) (domain.Dashboard, error) {
	dashboard, err := s.CreateDashboard(ctx, CreateDashboardInput{
		OwnerID: ownerID,
		Name:    "Field operations",
	})
	if err != nil {
		return domain.Dashboard{}, err
	}
	for _, in := range sampleWidgets {
		in.DashboardID = dashboard.ID
		if _, err := s.createWidget(ctx, in); err != nil {
			return domain.Dashboard{}, err
		}
	}
	if _, err := s.LayoutAll(ctx, dashboard.ID); err != nil {
		return domain.Dashboard{}, err
	}
	return dashboard, nil
}

package app

import (
	"context"

	"github.com/hylla/fieldboard/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateDashboard(context.Context, domain.Dashboard) error
	UpdateDashboard(context.Context, domain.Dashboard) error
	GetDashboard(context.Context, string) (domain.Dashboard, error)
	// ListDashboards lists dashboards of one owner; an empty owner lists every dashboard.
	ListDashboards(context.Context, string, bool) ([]domain.Dashboard, error)

	CreateWidget(context.Context, domain.Widget) error
	UpdateWidget(context.Context, domain.Widget) error
	GetWidget(context.Context, string) (domain.Widget, error)
	ListWidgets(context.Context, string) ([]domain.Widget, error)
	DeleteWidget(context.Context, string) error

	// ListWidgetPositions returns stored positions for one dashboard. An empty breakpoint
	// returns positions for every breakpoint.
	ListWidgetPositions(context.Context, string, string) ([]domain.WidgetPosition, error)
	// ReplaceWidgetPositions swaps the stored layout of one dashboard breakpoint in a single
	// transaction.
	ReplaceWidgetPositions(context.Context, string, string, []domain.WidgetPosition) error
}

// Logger is the structured logging surface used by the service.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

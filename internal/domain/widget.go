package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// WidgetKind identifies what a dashboard widget displays.
type WidgetKind string

// Built-in field-service widget kinds.
const (
	WidgetOpenWorkOrders     WidgetKind = "open_work_orders"
	WidgetOverdueWorkOrders  WidgetKind = "overdue_work_orders"
	WidgetTechnicianSchedule WidgetKind = "technician_schedule"
	WidgetJobsMap            WidgetKind = "jobs_map"
	WidgetRevenueSummary     WidgetKind = "revenue_summary"
	WidgetRecentActivity     WidgetKind = "recent_activity"
	WidgetPartsInventory     WidgetKind = "parts_inventory"
	WidgetCustomerFeedback   WidgetKind = "customer_feedback"
	WidgetNotes              WidgetKind = "notes"
)

var widgetKindTitles = map[WidgetKind]string{
	WidgetOpenWorkOrders:     "Open work orders",
	WidgetOverdueWorkOrders:  "Overdue work orders",
	WidgetTechnicianSchedule: "Technician schedule",
	WidgetJobsMap:            "Jobs map",
	WidgetRevenueSummary:     "Revenue summary",
	WidgetRecentActivity:     "Recent activity",
	WidgetPartsInventory:     "Parts inventory",
	WidgetCustomerFeedback:   "Customer feedback",
	WidgetNotes:              "Notes",
}

// WidgetKinds returns every built-in kind in a stable order.
func WidgetKinds() []WidgetKind {
	return []WidgetKind{
		WidgetOpenWorkOrders,
		WidgetOverdueWorkOrders,
		WidgetTechnicianSchedule,
		WidgetJobsMap,
		WidgetRevenueSummary,
		WidgetRecentActivity,
		WidgetPartsInventory,
		WidgetCustomerFeedback,
		WidgetNotes,
	}
}

// NormalizeWidgetKind canonicalizes a kind value.
func NormalizeWidgetKind(kind WidgetKind) WidgetKind {
	return WidgetKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(kind))), "-", "_"))
}

// IsValidWidgetKind reports whether the kind is built in.
func IsValidWidgetKind(kind WidgetKind) bool {
	_, ok := widgetKindTitles[NormalizeWidgetKind(kind)]
	return ok
}

// Title returns the default display title for the kind.
func (k WidgetKind) Title() string {
	return widgetKindTitles[NormalizeWidgetKind(k)]
}

// SizePreset names a widget footprint.
type SizePreset string

// Size presets. SizeCustom uses the widget's explicit width and height.
const (
	SizeSmall  SizePreset = "small"
	SizeMedium SizePreset = "medium"
	SizeWide   SizePreset = "wide"
	SizeTall   SizePreset = "tall"
	SizeLarge  SizePreset = "large"
	SizeFull   SizePreset = "full"
	SizeCustom SizePreset = "custom"
)

var validSizePresets = []SizePreset{SizeSmall, SizeMedium, SizeWide, SizeTall, SizeLarge, SizeFull, SizeCustom}

// presetCells stores width/height for fixed presets; full width is resolved per breakpoint.
var presetCells = map[SizePreset][2]int{
	SizeSmall:  {3, 2},
	SizeMedium: {4, 2},
	SizeWide:   {6, 2},
	SizeTall:   {3, 4},
	SizeLarge:  {6, 4},
	SizeFull:   {0, 2},
}

// SizePresets returns the presets in cycling order.
func SizePresets() []SizePreset {
	return slices.Clone(validSizePresets)
}

// NormalizeSizePreset canonicalizes a preset value.
func NormalizeSizePreset(size SizePreset) SizePreset {
	return SizePreset(strings.ToLower(strings.TrimSpace(string(size))))
}

// Widget is one tile on a dashboard.
type Widget struct {
	ID           string
	DashboardID  string
	Kind         WidgetKind
	Title        string
	Description  string
	Size         SizePreset
	CustomWidth  int
	CustomHeight int
	Priority     int
	Pinned       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WidgetInput holds values for NewWidget.
type WidgetInput struct {
	ID           string
	DashboardID  string
	Kind         WidgetKind
	Title        string
	Description  string
	Size         SizePreset
	CustomWidth  int
	CustomHeight int
	Priority     int
	Pinned       bool
}

// NewWidget constructs a new value for this package.
func NewWidget(in WidgetInput, now time.Time) (Widget, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.DashboardID = strings.TrimSpace(in.DashboardID)
	in.Kind = NormalizeWidgetKind(in.Kind)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Size = NormalizeSizePreset(in.Size)

	if in.ID == "" || in.DashboardID == "" {
		return Widget{}, ErrInvalidID
	}
	if !IsValidWidgetKind(in.Kind) {
		return Widget{}, ErrInvalidKind
	}
	if in.Title == "" {
		in.Title = in.Kind.Title()
	}
	if in.Size == "" {
		in.Size = SizeMedium
	}
	if err := validateSize(in.Size, in.CustomWidth, in.CustomHeight); err != nil {
		return Widget{}, err
	}
	if in.Priority < 0 {
		return Widget{}, ErrInvalidPosition
	}
	if in.Size != SizeCustom {
		in.CustomWidth, in.CustomHeight = 0, 0
	}

	return Widget{
		ID:           in.ID,
		DashboardID:  in.DashboardID,
		Kind:         in.Kind,
		Title:        in.Title,
		Description:  in.Description,
		Size:         in.Size,
		CustomWidth:  in.CustomWidth,
		CustomHeight: in.CustomHeight,
		Priority:     in.Priority,
		Pinned:       in.Pinned,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// Resize changes the widget footprint.
func (w *Widget) Resize(size SizePreset, customWidth, customHeight int, now time.Time) error {
	size = NormalizeSizePreset(size)
	if err := validateSize(size, customWidth, customHeight); err != nil {
		return err
	}
	if size != SizeCustom {
		customWidth, customHeight = 0, 0
	}
	w.Size = size
	w.CustomWidth = customWidth
	w.CustomHeight = customHeight
	w.UpdatedAt = now.UTC()
	return nil
}

// UpdateDetails updates state for the requested operation.
func (w *Widget) UpdateDetails(title, description string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	w.Title = title
	w.Description = strings.TrimSpace(description)
	w.UpdatedAt = now.UTC()
	return nil
}

// SetPinned marks the widget as manually placed so it is packed ahead of the rest.
func (w *Widget) SetPinned(pinned bool, now time.Time) {
	w.Pinned = pinned
	w.UpdatedAt = now.UTC()
}

// Dimensions resolves the widget footprint in cells for a grid with the given columns.
// Presets shrink to the column count; custom sizes wider than the grid are rejected.
func (w Widget) Dimensions(columns int) (int, int, error) {
	if columns < 1 {
		return 0, 0, ErrInvalidBreakpoint
	}
	if w.Size == SizeCustom {
		if w.CustomWidth > columns {
			return 0, 0, fmt.Errorf("%w: widget %q width %d exceeds %d columns", ErrWidgetTooWide, w.ID, w.CustomWidth, columns)
		}
		return w.CustomWidth, w.CustomHeight, nil
	}
	cells, ok := presetCells[w.Size]
	if !ok {
		return 0, 0, ErrInvalidSize
	}
	width, height := cells[0], cells[1]
	if width == 0 || width > columns {
		width = columns
	}
	return width, height, nil
}

// NextSizePreset returns the preset after size in cycling order, skipping custom.
func NextSizePreset(size SizePreset, step int) SizePreset {
	fixed := validSizePresets[:len(validSizePresets)-1]
	idx := slices.Index(fixed, NormalizeSizePreset(size))
	if idx < 0 {
		return SizeMedium
	}
	n := len(fixed)
	return fixed[((idx+step)%n+n)%n]
}

// validateSize checks a preset and, for custom sizes, the explicit cell counts.
func validateSize(size SizePreset, customWidth, customHeight int) error {
	if !slices.Contains(validSizePresets, size) {
		return ErrInvalidSize
	}
	if size == SizeCustom && (customWidth < 1 || customHeight < 1) {
		return ErrInvalidSize
	}
	return nil
}

// WidgetPosition is the persisted cell rectangle of one widget on one breakpoint.
type WidgetPosition struct {
	WidgetID    string
	DashboardID string
	Breakpoint  string
	X           int
	Y           int
	Width       int
	Height      int
	UpdatedAt   time.Time
}

// NewWidgetPosition constructs a new value for this package.
func NewWidgetPosition(widgetID, dashboardID, breakpoint string, x, y, width, height int, now time.Time) (WidgetPosition, error) {
	widgetID = strings.TrimSpace(widgetID)
	dashboardID = strings.TrimSpace(dashboardID)
	breakpoint = NormalizeBreakpointName(breakpoint)
	if widgetID == "" || dashboardID == "" {
		return WidgetPosition{}, ErrInvalidID
	}
	if breakpoint == "" {
		return WidgetPosition{}, ErrInvalidBreakpoint
	}
	if x < 0 || y < 0 {
		return WidgetPosition{}, ErrInvalidPosition
	}
	if width < 1 || height < 1 {
		return WidgetPosition{}, ErrInvalidSize
	}
	return WidgetPosition{
		WidgetID:    widgetID,
		DashboardID: dashboardID,
		Breakpoint:  breakpoint,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		UpdatedAt:   now.UTC(),
	}, nil
}

package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"slices"
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	ListDashboards(context.Context, string, bool) ([]domain.Dashboard, error)
	ListWidgets(context.Context, string) ([]domain.Widget, error)
	Breakpoints() []domain.Breakpoint
	DefaultBreakpoint() string
	CurrentLayout(context.Context, string, string) (app.Layout, error)
	Layout(context.Context, string, string) (app.Layout, error)
	MoveWidget(context.Context, app.MoveWidgetInput) (app.Layout, error)
	ResizeWidget(context.Context, string, domain.SizePreset, int, int) (domain.Widget, error)
}

// cellHeight is the number of terminal lines drawn per grid row.
const cellHeight = 2

// minCellWidth is the narrowest column drawn per grid cell.
const minCellWidth = 4

// maxGridRows caps how many grid rows one frame draws.
const maxGridRows = 128

// direction names a selection step.
type direction int

// dirLeft and related constants name selection steps.
const (
	dirLeft direction = iota
	dirRight
	dirUp
	dirDown
)

// tilePalette colors widgets by kind.
var tilePalette = []color.Color{
	lipgloss.Color("24"),
	lipgloss.Color("52"),
	lipgloss.Color("22"),
	lipgloss.Color("58"),
	lipgloss.Color("54"),
	lipgloss.Color("23"),
	lipgloss.Color("94"),
	lipgloss.Color("60"),
	lipgloss.Color("238"),
}

// Model represents model data used by this package.
type Model struct {
	svc     Service
	ownerID string

	dashboards         []domain.Dashboard
	selectedDashboard  int
	breakpoints        []domain.Breakpoint
	selectedBreakpoint int
	pendingBreakpoint  string

	layout         app.Layout
	widgets        map[string]domain.Widget
	selectedWidget string
	showDetails    bool

	status string
	err    error
	width  int
	height int
	ready  bool

	keys            keyMap
	help            help.Model
	markdown        *markdownRenderer
	copyToClipboard func(string) error
}

// loadedMsg carries dashboards and the stored layout of the selected one.
type loadedMsg struct {
	dashboards []domain.Dashboard
	layout     app.Layout
	widgets    []domain.Widget
	err        error
}

// layoutMsg carries the result of a relayout, move, or resize.
type layoutMsg struct {
	action  string
	layout  app.Layout
	widgets []domain.Widget
	status  string
	err     error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	bytes int
	err   error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		widgets:         map[string]domain.Widget{},
		markdown:        &markdownRenderer{},
		copyToClipboard: clipboard.WriteAll,
	}
	if svc != nil {
		m.breakpoints = svc.Breakpoints()
		m.selectedBreakpoint = m.breakpointIndex(svc.DefaultBreakpoint())
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.pendingBreakpoint != "" {
		m.selectedBreakpoint = m.breakpointIndex(m.pendingBreakpoint)
		m.pendingBreakpoint = ""
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.dashboards = msg.dashboards
		m.selectedDashboard = clamp(m.selectedDashboard, 0, len(m.dashboards)-1)
		m.layout = msg.layout
		m.setWidgets(msg.widgets)
		m.retainSelection()
		if len(m.dashboards) == 0 {
			m.status = "no dashboards"
		} else if m.status == "" || m.status == "loading..." || m.status == "no dashboards" {
			m.status = "ready"
		}
		return m, nil

	case layoutMsg:
		if msg.err != nil {
			// the stored layout is untouched on failure; keep showing it
			m.status = msg.action + " failed: " + msg.err.Error()
			return m, nil
		}
		m.layout = msg.layout
		if msg.widgets != nil {
			m.setWidgets(msg.widgets)
		}
		m.retainSelection()
		m.status = msg.status
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("copied layout json (%d bytes)", msg.bytes)
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

// handleKey dispatches one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case m.err != nil:
		if key.Matches(msg, m.keys.relayout) || key.Matches(msg, m.keys.reload) {
			m.err = nil
			m.status = "loading..."
			return m, m.loadData
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.nextBreakpoint):
		return m.cycleBreakpoint(1)
	case key.Matches(msg, m.keys.prevBreakpoint):
		return m.cycleBreakpoint(-1)
	case key.Matches(msg, m.keys.nextDashboard):
		return m.cycleDashboard(1)
	case key.Matches(msg, m.keys.prevDashboard):
		return m.cycleDashboard(-1)
	case key.Matches(msg, m.keys.moveLeft):
		return m.moveSelected(-1, 0)
	case key.Matches(msg, m.keys.moveRight):
		return m.moveSelected(1, 0)
	case key.Matches(msg, m.keys.moveUp):
		return m.moveSelected(0, -1)
	case key.Matches(msg, m.keys.moveDown):
		return m.moveSelected(0, 1)
	case key.Matches(msg, m.keys.selectLeft):
		m.selectNeighbor(dirLeft)
		return m, nil
	case key.Matches(msg, m.keys.selectRight):
		m.selectNeighbor(dirRight)
		return m, nil
	case key.Matches(msg, m.keys.selectUp):
		m.selectNeighbor(dirUp)
		return m, nil
	case key.Matches(msg, m.keys.selectDown):
		m.selectNeighbor(dirDown)
		return m, nil
	case key.Matches(msg, m.keys.grow):
		return m.resizeSelected(1)
	case key.Matches(msg, m.keys.shrink):
		return m.resizeSelected(-1)
	case key.Matches(msg, m.keys.relayout):
		return m.relayout()
	case key.Matches(msg, m.keys.toggleDetails):
		m.showDetails = !m.showDetails
		return m, nil
	case key.Matches(msg, m.keys.copyLayout):
		return m, m.copyLayout
	default:
		return m, nil
	}
}

// loadData lists dashboards and reads the stored layout of the selected one.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	dashboards, err := m.svc.ListDashboards(ctx, m.ownerID, false)
	if err != nil {
		return loadedMsg{err: err}
	}
	if len(dashboards) == 0 {
		return loadedMsg{dashboards: dashboards}
	}
	dashboard := dashboards[clamp(m.selectedDashboard, 0, len(dashboards)-1)]
	layout, err := m.svc.CurrentLayout(ctx, dashboard.ID, m.breakpointName())
	if err != nil {
		return loadedMsg{err: err}
	}
	widgets, err := m.svc.ListWidgets(ctx, dashboard.ID)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{dashboards: dashboards, layout: layout, widgets: widgets}
}

// cycleBreakpoint selects the next or previous breakpoint and reloads.
func (m Model) cycleBreakpoint(step int) (tea.Model, tea.Cmd) {
	n := len(m.breakpoints)
	if n == 0 {
		return m, nil
	}
	m.selectedBreakpoint = ((m.selectedBreakpoint+step)%n + n) % n
	m.status = "breakpoint " + m.breakpointName()
	return m, m.loadData
}

// cycleDashboard selects the next or previous dashboard and reloads.
func (m Model) cycleDashboard(step int) (tea.Model, tea.Cmd) {
	n := len(m.dashboards)
	if n < 2 {
		return m, nil
	}
	m.selectedDashboard = ((m.selectedDashboard+step)%n + n) % n
	m.selectedWidget = ""
	m.status = "dashboard " + m.dashboards[m.selectedDashboard].Name
	return m, m.loadData
}

// relayout repacks the visible breakpoint.
func (m Model) relayout() (tea.Model, tea.Cmd) {
	dashboardID := m.layout.DashboardID
	if dashboardID == "" {
		m.status = "no dashboard to relayout"
		return m, nil
	}
	bp := m.breakpointName()
	svc := m.svc
	return m, func() tea.Msg {
		layout, err := svc.Layout(context.Background(), dashboardID, bp)
		return layoutMsg{
			action: "relayout",
			layout: layout,
			status: fmt.Sprintf("relayout %s: %d widgets, %d rows", bp, len(layout.Items), layout.Rows),
			err:    err,
		}
	}
}

// moveSelected shifts the selected widget by one cell.
func (m Model) moveSelected(dx, dy int) (tea.Model, tea.Cmd) {
	item, ok := m.layout.Find(m.selectedWidget)
	if !ok {
		m.status = "no widget selected"
		return m, nil
	}
	x, y := item.X+dx, item.Y+dy
	if x < 0 || y < 0 || x+item.Width > m.layout.Columns {
		m.status = "cannot move past the grid edge"
		return m, nil
	}
	bp := m.layout.Breakpoint
	svc := m.svc
	return m, func() tea.Msg {
		layout, err := svc.MoveWidget(context.Background(), app.MoveWidgetInput{
			WidgetID:   item.WidgetID,
			Breakpoint: bp,
			X:          x,
			Y:          y,
		})
		return layoutMsg{
			action: "move",
			layout: layout,
			status: fmt.Sprintf("moved %s to (%d,%d)", item.Title, x, y),
			err:    err,
		}
	}
}

// resizeSelected steps the selected widget through the size presets.
func (m Model) resizeSelected(step int) (tea.Model, tea.Cmd) {
	widget, ok := m.widgets[m.selectedWidget]
	if !ok {
		m.status = "no widget selected"
		return m, nil
	}
	next := domain.NextSizePreset(widget.Size, step)
	dashboardID := m.layout.DashboardID
	bp := m.breakpointName()
	svc := m.svc
	return m, func() tea.Msg {
		ctx := context.Background()
		if _, err := svc.ResizeWidget(ctx, widget.ID, next, 0, 0); err != nil {
			return layoutMsg{action: "resize", err: err}
		}
		layout, err := svc.CurrentLayout(ctx, dashboardID, bp)
		if err != nil {
			return layoutMsg{action: "resize", err: err}
		}
		widgets, err := svc.ListWidgets(ctx, dashboardID)
		if err != nil {
			return layoutMsg{action: "resize", err: err}
		}
		return layoutMsg{
			action:  "resize",
			layout:  layout,
			widgets: widgets,
			status:  fmt.Sprintf("resized %s to %s", widget.Title, next),
		}
	}
}

// copyLayout writes the visible layout as JSON to the clipboard.
func (m Model) copyLayout() tea.Msg {
	data, err := json.MarshalIndent(m.layout, "", "  ")
	if err != nil {
		return copiedMsg{err: err}
	}
	if err := m.copyToClipboard(string(data)); err != nil {
		return copiedMsg{err: err}
	}
	return copiedMsg{bytes: len(data)}
}

// selectNeighbor moves the selection to the nearest widget in one direction.
func (m *Model) selectNeighbor(dir direction) {
	items := m.layout.Items
	if len(items) == 0 {
		return
	}
	cur := slices.IndexFunc(items, func(it app.LayoutItem) bool { return it.WidgetID == m.selectedWidget })
	if cur < 0 {
		m.selectedWidget = items[0].WidgetID
		return
	}
	switch dir {
	case dirLeft:
		if cur > 0 {
			m.selectedWidget = items[cur-1].WidgetID
		}
		return
	case dirRight:
		if cur < len(items)-1 {
			m.selectedWidget = items[cur+1].WidgetID
		}
		return
	}

	from := items[cur]
	best, bestDY, bestDX := -1, 0, 0
	for idx, it := range items {
		var dy int
		switch dir {
		case dirUp:
			if it.Y+it.Height > from.Y {
				continue
			}
			dy = from.Y - (it.Y + it.Height)
		case dirDown:
			if it.Y < from.Y+from.Height {
				continue
			}
			dy = it.Y - (from.Y + from.Height)
		}
		dx := abs((it.X + it.Width/2) - (from.X + from.Width/2))
		if best < 0 || dy < bestDY || (dy == bestDY && dx < bestDX) {
			best, bestDY, bestDX = idx, dy, dx
		}
	}
	if best >= 0 {
		m.selectedWidget = items[best].WidgetID
	}
}

// setWidgets indexes widgets by id.
func (m *Model) setWidgets(widgets []domain.Widget) {
	m.widgets = make(map[string]domain.Widget, len(widgets))
	for _, w := range widgets {
		m.widgets[w.ID] = w
	}
}

// retainSelection keeps the selected widget when it is still laid out.
func (m *Model) retainSelection() {
	if _, ok := m.layout.Find(m.selectedWidget); ok {
		return
	}
	m.selectedWidget = ""
	if len(m.layout.Items) > 0 {
		m.selectedWidget = m.layout.Items[0].WidgetID
	}
}

// breakpointIndex returns the index of a breakpoint name, or 0.
func (m Model) breakpointIndex(name string) int {
	name = domain.NormalizeBreakpointName(name)
	for idx, bp := range m.breakpoints {
		if bp.Name == name {
			return idx
		}
	}
	return 0
}

// breakpointName returns the selected breakpoint name, or "" for the service default.
func (m Model) breakpointName() string {
	if len(m.breakpoints) == 0 {
		return ""
	}
	return m.breakpoints[clamp(m.selectedBreakpoint, 0, len(m.breakpoints)-1)].Name
}

// View handles view.
func (m Model) View() tea.View {
	var content string
	switch {
	case m.err != nil:
		content = "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	case !m.ready:
		content = "loading..."
	default:
		content = m.renderBoard()
	}
	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// renderBoard renders header, grid, optional details, status, and help.
func (m Model) renderBoard() string {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	sections := []string{m.renderHeader(titleStyle, accent, muted)}
	if len(m.dashboards) == 0 {
		sections = append(sections,
			"",
			"No dashboards yet.",
			"Run `fieldboard seed` to create a sample dashboard.",
			"Press q to quit.",
		)
	} else {
		sections = append(sections, "", m.renderGrid(accent, dim))
		if m.showDetails {
			if details := m.renderDetails(accent, muted); details != "" {
				sections = append(sections, "", details)
			}
		}
	}
	if status := strings.TrimSpace(m.status); status != "" {
		sections = append(sections, "", statusStyle.Render(status))
	}

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	content := strings.Join(sections, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// renderHeader renders the app title, dashboard name, and breakpoint tabs.
func (m Model) renderHeader(titleStyle lipgloss.Style, accent, muted color.Color) string {
	parts := []string{titleStyle.Render("fieldboard")}
	if len(m.dashboards) > 0 {
		d := m.dashboards[clamp(m.selectedDashboard, 0, len(m.dashboards)-1)]
		name := d.Name
		if len(m.dashboards) > 1 {
			name = fmt.Sprintf("%s (%d/%d)", name, m.selectedDashboard+1, len(m.dashboards))
		}
		parts = append(parts, name)
	}
	tabs := make([]string, 0, len(m.breakpoints))
	for idx, bp := range m.breakpoints {
		label := fmt.Sprintf("%s·%d", bp.Name, bp.Columns)
		style := lipgloss.NewStyle().Foreground(muted)
		if idx == m.selectedBreakpoint {
			style = lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	if len(tabs) > 0 {
		parts = append(parts, strings.Join(tabs, "  "))
	}
	return strings.Join(parts, "  │  ")
}

// renderGrid draws each widget as a colored block at its cell coordinates.
func (m Model) renderGrid(accent, dim color.Color) string {
	cols := max(1, m.layout.Columns)
	cellWidth := minCellWidth
	if m.width > 0 {
		cellWidth = max(minCellWidth, (m.width-2)/cols)
	}
	if len(m.layout.Items) == 0 {
		return lipgloss.NewStyle().Foreground(dim).Render("(empty layout)")
	}

	freeCell := lipgloss.NewStyle().Foreground(dim).Render("·") + strings.Repeat(" ", cellWidth-1)
	rows := min(max(0, m.layout.Rows), maxGridRows)
	lines := make([]string, 0, rows*cellHeight+1)
	for line := 0; line < rows*cellHeight; line++ {
		gridY := line / cellHeight
		covering := make([]app.LayoutItem, 0, len(m.layout.Items))
		for _, it := range m.layout.Items {
			if it.Y <= gridY && gridY < it.Y+it.Height {
				covering = append(covering, it)
			}
		}
		slices.SortFunc(covering, func(a, b app.LayoutItem) int { return a.X - b.X })

		var b strings.Builder
		cursor := 0
		for _, it := range covering {
			b.WriteString(strings.Repeat(freeCell, max(0, it.X-cursor)))
			b.WriteString(m.renderTileLine(it, line-it.Y*cellHeight, it.Width*cellWidth, accent))
			cursor = it.X + it.Width
		}
		b.WriteString(strings.Repeat(freeCell, max(0, cols-cursor)))
		lines = append(lines, b.String())
	}
	if hidden := m.layout.Rows - rows; hidden > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(dim).Render(fmt.Sprintf("… %d more rows", hidden)))
	}
	return strings.Join(lines, "\n")
}

// renderTileLine renders one terminal line of one widget block.
func (m Model) renderTileLine(it app.LayoutItem, row, width int, accent color.Color) string {
	var text string
	switch row {
	case 0:
		text = " " + it.Title
	case 1:
		text = fmt.Sprintf(" %s %dx%d", it.Kind, it.Width, it.Height)
	case 2:
		text = fmt.Sprintf(" @%d,%d", it.X, it.Y)
		if it.Sticky {
			text += " kept"
		}
	}
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Background(tileColor(it.Kind))
	if it.WidgetID == m.selectedWidget {
		style = style.Background(accent).Bold(true)
	}
	return style.Render(fitWidth(text, width-1)) + " "
}

// renderDetails renders the selected widget's description with glamour.
func (m Model) renderDetails(accent, muted color.Color) string {
	widget, ok := m.widgets[m.selectedWidget]
	if !ok {
		return ""
	}
	width := max(minMarkdownWidth+4, m.width-4)
	header := lipgloss.NewStyle().Bold(true).Render(widget.Title)
	meta := lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("%s · %s · priority %d", widget.Kind, widget.Size, widget.Priority))
	body := m.markdown.render(widget.Description, width-4)
	if body == "" {
		body = lipgloss.NewStyle().Foreground(muted).Render("(no description)")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(width).
		Render(header + "\n" + meta + "\n\n" + body)
}

// tileColor picks a stable background per widget kind.
func tileColor(kind domain.WidgetKind) color.Color {
	idx := slices.Index(domain.WidgetKinds(), kind)
	if idx < 0 {
		idx = len(tilePalette) - 1
	}
	return tilePalette[idx%len(tilePalette)]
}

// fitWidth truncates or pads text to exactly width runes.
func fitWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	n := utf8.RuneCountInString(text)
	if n > width {
		runes := []rune(text)
		if width == 1 {
			return "…"
		}
		return string(runes[:width-1]) + "…"
	}
	return text + strings.Repeat(" ", width-n)
}

// fitLines pads or truncates content to exactly maxLines lines, ending a truncated block with an ellipsis.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// clamp bounds v to [minV, maxV], returning minV when the range is empty.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// abs returns the absolute value.
func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

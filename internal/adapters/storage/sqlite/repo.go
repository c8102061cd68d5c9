package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/fieldboard/internal/app"
	"github.com/hylla/fieldboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

// newRepository pins the pool to one connection so connection-scoped pragmas hold, then migrates.
func newRepository(db *sql.DB) (*Repository, error) {
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS dashboards (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS widgets (
			id TEXT PRIMARY KEY,
			dashboard_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL DEFAULT 'medium',
			custom_width INTEGER NOT NULL DEFAULT 0,
			custom_height INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(dashboard_id) REFERENCES dashboards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS widget_positions (
			widget_id TEXT NOT NULL,
			dashboard_id TEXT NOT NULL,
			breakpoint TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY(widget_id, breakpoint),
			FOREIGN KEY(widget_id) REFERENCES widgets(id) ON DELETE CASCADE,
			FOREIGN KEY(dashboard_id) REFERENCES dashboards(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dashboards_owner ON dashboards(owner_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_dashboard ON widgets(dashboard_id);`,
		`CREATE INDEX IF NOT EXISTS idx_widget_positions_layout ON widget_positions(dashboard_id, breakpoint);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	// pinned shipped after the first schema; add it to older databases in place.
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE widgets ADD COLUMN pinned INTEGER NOT NULL DEFAULT 0`); err != nil && !isDuplicateColumnErr(err) {
		return fmt.Errorf("migrate sqlite add widgets.pinned: %w", err)
	}
	return nil
}

// CreateDashboard creates dashboard.
func (r *Repository) CreateDashboard(ctx context.Context, d domain.Dashboard) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dashboards(id, owner_id, slug, name, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.OwnerID, d.Slug, d.Name, ts(d.CreatedAt), ts(d.UpdatedAt), nullableTS(d.ArchivedAt))
	return err
}

// UpdateDashboard updates state for the requested operation.
func (r *Repository) UpdateDashboard(ctx context.Context, d domain.Dashboard) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dashboards
		SET owner_id = ?, slug = ?, name = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, d.OwnerID, d.Slug, d.Name, ts(d.UpdatedAt), nullableTS(d.ArchivedAt), d.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetDashboard returns dashboard.
func (r *Repository) GetDashboard(ctx context.Context, id string) (domain.Dashboard, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, slug, name, created_at, updated_at, archived_at
		FROM dashboards
		WHERE id = ?
	`, id)
	return scanDashboard(row)
}

// ListDashboards lists dashboards. An empty owner lists every owner's dashboards.
func (r *Repository) ListDashboards(ctx context.Context, ownerID string, includeArchived bool) ([]domain.Dashboard, error) {
	query := `
		SELECT id, owner_id, slug, name, created_at, updated_at, archived_at
		FROM dashboards
		WHERE 1 = 1
	`
	args := []any{}
	if ownerID = strings.TrimSpace(ownerID); ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Dashboard{}
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateWidget creates widget.
func (r *Repository) CreateWidget(ctx context.Context, w domain.Widget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO widgets(id, dashboard_id, kind, title, description, size, custom_width, custom_height, priority, pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.DashboardID, string(w.Kind), w.Title, w.Description, string(w.Size), w.CustomWidth, w.CustomHeight, w.Priority, boolInt(w.Pinned), ts(w.CreatedAt), ts(w.UpdatedAt))
	return err
}

// UpdateWidget updates state for the requested operation.
func (r *Repository) UpdateWidget(ctx context.Context, w domain.Widget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE widgets
		SET dashboard_id = ?, kind = ?, title = ?, description = ?, size = ?, custom_width = ?, custom_height = ?, priority = ?, pinned = ?, updated_at = ?
		WHERE id = ?
	`, w.DashboardID, string(w.Kind), w.Title, w.Description, string(w.Size), w.CustomWidth, w.CustomHeight, w.Priority, boolInt(w.Pinned), ts(w.UpdatedAt), w.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetWidget returns widget.
func (r *Repository) GetWidget(ctx context.Context, id string) (domain.Widget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, dashboard_id, kind, title, description, size, custom_width, custom_height, priority, pinned, created_at, updated_at
		FROM widgets
		WHERE id = ?
	`, id)
	return scanWidget(row)
}

// ListWidgets lists widgets.
func (r *Repository) ListWidgets(ctx context.Context, dashboardID string) ([]domain.Widget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dashboard_id, kind, title, description, size, custom_width, custom_height, priority, pinned, created_at, updated_at
		FROM widgets
		WHERE dashboard_id = ?
		ORDER BY created_at ASC, id ASC
	`, dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Widget{}
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWidget deletes widget together with its stored positions.
func (r *Repository) DeleteWidget(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM widget_positions WHERE widget_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListWidgetPositions lists stored positions. An empty breakpoint lists every breakpoint.
func (r *Repository) ListWidgetPositions(ctx context.Context, dashboardID, breakpoint string) ([]domain.WidgetPosition, error) {
	query := `
		SELECT widget_id, dashboard_id, breakpoint, x, y, width, height, updated_at
		FROM widget_positions
		WHERE dashboard_id = ?
	`
	args := []any{dashboardID}
	if breakpoint = strings.TrimSpace(breakpoint); breakpoint != "" {
		query += ` AND breakpoint = ?`
		args = append(args, breakpoint)
	}
	query += ` ORDER BY breakpoint ASC, y ASC, x ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WidgetPosition{}
	for rows.Next() {
		var (
			p          domain.WidgetPosition
			updatedRaw string
		)
		if err := rows.Scan(&p.WidgetID, &p.DashboardID, &p.Breakpoint, &p.X, &p.Y, &p.Width, &p.Height, &updatedRaw); err != nil {
			return nil, err
		}
		p.UpdatedAt = parseTS(updatedRaw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceWidgetPositions swaps one dashboard breakpoint layout in a single transaction.
func (r *Repository) ReplaceWidgetPositions(ctx context.Context, dashboardID, breakpoint string, positions []domain.WidgetPosition) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM widget_positions WHERE dashboard_id = ? AND breakpoint = ?`, dashboardID, breakpoint); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO widget_positions(widget_id, dashboard_id, breakpoint, x, y, width, height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range positions {
		if p.DashboardID != dashboardID || p.Breakpoint != breakpoint {
			err = fmt.Errorf("position for widget %q belongs to %s/%s, not %s/%s", p.WidgetID, p.DashboardID, p.Breakpoint, dashboardID, breakpoint)
			return err
		}
		if _, err = stmt.ExecContext(ctx, p.WidgetID, p.DashboardID, p.Breakpoint, p.X, p.Y, p.Width, p.Height, ts(p.UpdatedAt)); err != nil {
			return fmt.Errorf("insert widget position %q: %w", p.WidgetID, err)
		}
	}
	err = tx.Commit()
	return err
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanDashboard handles scan dashboard.
func scanDashboard(s scanner) (domain.Dashboard, error) {
	var (
		d          domain.Dashboard
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Slug, &d.Name, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Dashboard{}, app.ErrNotFound
		}
		return domain.Dashboard{}, err
	}
	d.CreatedAt = parseTS(createdRaw)
	d.UpdatedAt = parseTS(updatedRaw)
	d.ArchivedAt = parseNullTS(archived)
	return d, nil
}

// scanWidget handles scan widget.
func scanWidget(s scanner) (domain.Widget, error) {
	var (
		w          domain.Widget
		kindRaw    string
		sizeRaw    string
		pinned     int
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&w.ID, &w.DashboardID, &kindRaw, &w.Title, &w.Description, &sizeRaw, &w.CustomWidth, &w.CustomHeight, &w.Priority, &pinned, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Widget{}, app.ErrNotFound
		}
		return domain.Widget{}, err
	}
	w.Kind = domain.NormalizeWidgetKind(domain.WidgetKind(kindRaw))
	w.Size = domain.NormalizeSizePreset(domain.SizePreset(sizeRaw))
	w.Pinned = pinned != 0
	w.CreatedAt = parseTS(createdRaw)
	w.UpdatedAt = parseTS(updatedRaw)
	return w, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// boolInt encodes a bool as a sqlite integer.
func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

// isDuplicateColumnErr reports whether the expected condition is satisfied.
func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

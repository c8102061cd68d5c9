package domain

import (
	"strings"
	"time"
)

// Dashboard is one user's arrangement of widgets.
type Dashboard struct {
	ID         string
	OwnerID    string
	Slug       string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ArchivedAt *time.Time
}

// NewDashboard constructs a new value for this package.
func NewDashboard(id, ownerID, name string, now time.Time) (Dashboard, error) {
	id = strings.TrimSpace(id)
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if id == "" || ownerID == "" {
		return Dashboard{}, ErrInvalidID
	}
	if name == "" {
		return Dashboard{}, ErrInvalidName
	}
	return Dashboard{
		ID:        id,
		OwnerID:   ownerID,
		Slug:      normalizeSlug(name),
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the requested operation.
func (d *Dashboard) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	d.Name = name
	d.Slug = normalizeSlug(name)
	d.UpdatedAt = now.UTC()
	return nil
}

// Touch records a layout-affecting change.
func (d *Dashboard) Touch(now time.Time) {
	d.UpdatedAt = now.UTC()
}

// Archive archives the requested operation.
func (d *Dashboard) Archive(now time.Time) {
	ts := now.UTC()
	d.ArchivedAt = &ts
	d.UpdatedAt = ts
}

// Restore restores the requested operation.
func (d *Dashboard) Restore(now time.Time) {
	d.ArchivedAt = nil
	d.UpdatedAt = now.UTC()
}

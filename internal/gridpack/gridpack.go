// Package gridpack lays out dashboard widgets on a fixed-width cell grid.
//
// Pack is a first-fit, row-major packer: items are placed in input order, each one keeps
// its preferred top-left cell when that rectangle is still free and otherwise takes the
// first free slot scanning rows top to bottom and columns left to right. The packer holds
// no state between calls and performs no I/O, so concurrent calls are independent.
package gridpack

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// DefaultMaxRows bounds the fallback scan when a Packer does not set MaxRows.
const DefaultMaxRows = 1000

// RowLimit returns the first row no rectangle may reach for a scan ceiling of maxRows.
// The scan may start an item on any row below maxRows, so sticky items get the same
// room: every bottom edge (Y+Height) must be at most 2*maxRows.
func RowLimit(maxRows int) int {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if maxRows > math.MaxInt/2 {
		return math.MaxInt
	}
	return 2 * maxRows
}

// Point is one top-left cell address.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Item is one rectangle to place, sized in grid cells.
type Item struct {
	ID        string `json:"id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Preferred *Point `json:"preferred,omitempty"`
}

// Placement is one placed item with its final top-left cell.
type Placement struct {
	Item
	X int `json:"x"`
	Y int `json:"y"`
	// Sticky reports whether the item kept its preferred position.
	Sticky bool `json:"sticky"`
}

// Packer runs packing passes with a configurable fallback-scan ceiling.
type Packer struct {
	MaxRows int
}

// Pack places items on a grid with the given column count using DefaultMaxRows.
func Pack(items []Item, columns int) ([]Placement, error) {
	return Packer{}.Pack(items, columns)
}

// Pack places items in input order and returns them sorted by (Y, X).
// A failing call returns no placements.
func (p Packer) Pack(items []Item, columns int) ([]Placement, error) {
	if err := p.Validate(items, columns); err != nil {
		return nil, err
	}
	maxRows := p.maxRows()

	grid := newOccupancy(columns)
	out := make([]Placement, 0, len(items))
	for _, item := range items {
		placed, err := place(grid, item, maxRows)
		if err != nil {
			return nil, err
		}
		out = append(out, placed)
	}
	slices.SortFunc(out, comparePlacement)
	return out, nil
}

// maxRows resolves the configured scan ceiling.
func (p Packer) maxRows() int {
	if p.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return p.MaxRows
}

// RowLimit returns the bottom-edge limit for this packer's scan ceiling.
func (p Packer) RowLimit() int {
	return RowLimit(p.MaxRows)
}

// Validate checks packer preconditions using DefaultMaxRows.
func Validate(items []Item, columns int) error {
	return Packer{}.Validate(items, columns)
}

// Validate checks packer preconditions without placing anything. Heights and preferred
// rows must keep the item's bottom edge within RowLimit.
func (p Packer) Validate(items []Item, columns int) error {
	limit := p.RowLimit()
	if columns < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidColumns, columns)
	}
	seen := make(map[string]struct{}, len(items))
	for idx, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return fmt.Errorf("%w: items[%d] id is required", ErrInvalidItem, idx)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: items[%d] id %q is duplicated", ErrInvalidItem, idx, id)
		}
		seen[id] = struct{}{}
		if item.Width < 1 || item.Height < 1 {
			return fmt.Errorf("%w: item %q size %dx%d must be positive", ErrInvalidItem, id, item.Width, item.Height)
		}
		if item.Width > columns {
			return &WidthError{ItemID: id, Width: item.Width, Columns: columns}
		}
		if item.Height > limit {
			return fmt.Errorf("%w: item %q height %d exceeds row limit %d", ErrInvalidItem, id, item.Height, limit)
		}
		if pref := item.Preferred; pref != nil {
			if pref.X < 0 || pref.Y < 0 {
				return fmt.Errorf("%w: item %q preferred position (%d,%d) is negative", ErrInvalidItem, id, pref.X, pref.Y)
			}
			if pref.Y > limit-item.Height {
				return fmt.Errorf("%w: item %q preferred row %d with height %d passes row limit %d", ErrInvalidItem, id, pref.Y, item.Height, limit)
			}
		}
	}
	return nil
}

// place claims cells for one item, trying the sticky position before the row-major scan.
func place(grid *occupancy, item Item, maxRows int) (Placement, error) {
	if pref := item.Preferred; pref != nil && grid.fits(pref.X, pref.Y, item.Width, item.Height) {
		grid.claim(pref.X, pref.Y, item.Width, item.Height)
		return Placement{Item: item, X: pref.X, Y: pref.Y, Sticky: true}, nil
	}
	for y := 0; y < maxRows; y++ {
		for x := 0; x+item.Width <= grid.columns; x++ {
			if !grid.fits(x, y, item.Width, item.Height) {
				continue
			}
			grid.claim(x, y, item.Width, item.Height)
			return Placement{Item: item, X: x, Y: y}, nil
		}
	}
	return Placement{}, &ExhaustedError{ItemID: item.ID, MaxRows: maxRows}
}

// comparePlacement orders placements top-to-bottom, then left-to-right.
func comparePlacement(a, b Placement) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// Summary describes the footprint of one packed layout.
type Summary struct {
	Columns   int `json:"columns"`
	Rows      int `json:"rows"`
	FreeCells int `json:"free_cells"`
	Sticky    int `json:"sticky"`
	Relocated int `json:"relocated"`
}

// Summarize reports grid height, unclaimed cells above the last row, and how many items kept
// or lost their preferred positions.
func Summarize(placements []Placement, columns int) Summary {
	grid := newOccupancy(max(columns, 1))
	summary := Summary{Columns: columns}
	for _, p := range placements {
		grid.claim(p.X, p.Y, p.Width, p.Height)
		switch {
		case p.Sticky:
			summary.Sticky++
		case p.Preferred != nil:
			summary.Relocated++
		}
	}
	summary.Rows = grid.height
	summary.FreeCells = grid.freeCells(grid.height)
	return summary
}

// Verify checks placements against DefaultMaxRows.
func Verify(placements []Placement, columns int) error {
	return Packer{}.Verify(placements, columns)
}

// Verify checks that placements form a legal layout: every rectangle inside the columns
// and above RowLimit, and no two rectangles sharing a cell.
func (p Packer) Verify(placements []Placement, columns int) error {
	if columns < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidColumns, columns)
	}
	limit := p.RowLimit()
	grid := newOccupancy(columns)
	for _, pl := range placements {
		if pl.Width > columns {
			return &WidthError{ItemID: pl.ID, Width: pl.Width, Columns: columns}
		}
		if pl.Height > limit || pl.Y > limit-pl.Height {
			return fmt.Errorf("%w: item %q at row %d height %d passes row limit %d", ErrInvalidItem, pl.ID, pl.Y, pl.Height, limit)
		}
		if !grid.fits(pl.X, pl.Y, pl.Width, pl.Height) {
			return fmt.Errorf("%w: item %q at (%d,%d) size %dx%d overlaps or leaves the grid", ErrInvalidItem, pl.ID, pl.X, pl.Y, pl.Width, pl.Height)
		}
		grid.claim(pl.X, pl.Y, pl.Width, pl.Height)
	}
	return nil
}

package gridpack

import (
	"math"
	"math/bits"
)

// wordBits is the number of cells tracked per bitmap word.
const wordBits = 64

// occupancy tracks claimed cells for a fixed-width, unbounded-height grid.
// Rows are allocated on first write; a missing row is entirely free.
type occupancy struct {
	columns int
	words   int
	rows    map[int][]uint64
	height  int
}

// newOccupancy constructs an empty grid for the given column count.
func newOccupancy(columns int) *occupancy {
	return &occupancy{
		columns: columns,
		words:   (columns + wordBits - 1) / wordBits,
		rows:    map[int][]uint64{},
	}
}

// inBounds reports whether the w×h rectangle at (x, y) lies inside the columns without
// overflowing int at its right or bottom edge.
func (o *occupancy) inBounds(x, y, w, h int) bool {
	return x >= 0 && y >= 0 && w >= 1 && h >= 1 && x <= o.columns-w && y <= math.MaxInt-h
}

// fits reports whether the w×h rectangle at (x, y) is inside the column bounds and unclaimed.
func (o *occupancy) fits(x, y, w, h int) bool {
	if !o.inBounds(x, y, w, h) {
		return false
	}
	for row := y; row < y+h; row++ {
		cells, ok := o.rows[row]
		if !ok {
			continue
		}
		if spanOccupied(cells, x, w) {
			return false
		}
	}
	return true
}

// claim marks the w×h rectangle at (x, y) as occupied. Callers check fits first;
// out-of-bounds rectangles are ignored.
func (o *occupancy) claim(x, y, w, h int) {
	if !o.inBounds(x, y, w, h) {
		return
	}
	for row := y; row < y+h; row++ {
		cells, ok := o.rows[row]
		if !ok {
			cells = make([]uint64, o.words)
			o.rows[row] = cells
		}
		for col := x; col < x+w; col++ {
			cells[col/wordBits] |= 1 << uint(col%wordBits)
		}
	}
	if y+h > o.height {
		o.height = y + h
	}
}

// freeCells counts unclaimed cells within the first rows of the grid.
func (o *occupancy) freeCells(rows int) int {
	free := rows * o.columns
	for row, cells := range o.rows {
		if row >= rows {
			continue
		}
		for _, word := range cells {
			free -= bits.OnesCount64(word)
		}
	}
	return free
}

// spanOccupied reports whether any cell in [x, x+w) is set in one row bitmap.
func spanOccupied(cells []uint64, x, w int) bool {
	for col := x; col < x+w; col++ {
		if cells[col/wordBits]&(1<<uint(col%wordBits)) != 0 {
			return true
		}
	}
	return false
}

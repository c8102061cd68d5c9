package gridpack

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

// at builds a preferred position.
func at(x, y int) *Point {
	return &Point{X: x, Y: y}
}

// positions flattens placements to id -> (x,y) for compact assertions.
func positions(placements []Placement) map[string]Point {
	out := make(map[string]Point, len(placements))
	for _, p := range placements {
		out[p.ID] = Point{X: p.X, Y: p.Y}
	}
	return out
}

// ids returns placement ids in output order.
func ids(placements []Placement) []string {
	out := make([]string, 0, len(placements))
	for _, p := range placements {
		out = append(out, p.ID)
	}
	return out
}

// TestPackScenarios verifies the reference layouts for small grids.
func TestPackScenarios(t *testing.T) {
	cases := []struct {
		name    string
		columns int
		items   []Item
		want    map[string]Point
		order   []string
	}{
		{
			name:    "first fit fills row gaps",
			columns: 3,
			items: []Item{
				{ID: "a", Width: 2, Height: 1},
				{ID: "b", Width: 2, Height: 1},
				{ID: "c", Width: 1, Height: 1},
			},
			want:  map[string]Point{"a": {0, 0}, "c": {2, 0}, "b": {0, 1}},
			order: []string{"a", "c", "b"},
		},
		{
			name:    "sticky position kept when alone",
			columns: 3,
			items:   []Item{{ID: "a", Width: 1, Height: 1, Preferred: at(1, 0)}},
			want:    map[string]Point{"a": {1, 0}},
			order:   []string{"a"},
		},
		{
			name:    "earlier item wins contested preferred cell",
			columns: 3,
			items: []Item{
				{ID: "a", Width: 1, Height: 1, Preferred: at(0, 0)},
				{ID: "b", Width: 1, Height: 1, Preferred: at(0, 0)},
			},
			want:  map[string]Point{"a": {0, 0}, "b": {1, 0}},
			order: []string{"a", "b"},
		},
		{
			name:    "tall item blocks rows below",
			columns: 2,
			items: []Item{
				{ID: "tall", Width: 1, Height: 3},
				{ID: "x", Width: 2, Height: 1},
				{ID: "y", Width: 1, Height: 1},
			},
			want:  map[string]Point{"tall": {0, 0}, "y": {1, 0}, "x": {0, 3}},
			order: []string{"tall", "y", "x"},
		},
		{
			name:    "preferred outside column bounds falls back",
			columns: 4,
			items:   []Item{{ID: "a", Width: 2, Height: 1, Preferred: at(3, 0)}},
			want:    map[string]Point{"a": {0, 0}},
			order:   []string{"a"},
		},
		{
			name:    "sticky item placed below earlier scan",
			columns: 3,
			items: []Item{
				{ID: "low", Width: 3, Height: 1, Preferred: at(0, 2)},
				{ID: "top", Width: 3, Height: 1},
				{ID: "mid", Width: 3, Height: 1},
			},
			want:  map[string]Point{"top": {0, 0}, "mid": {0, 1}, "low": {0, 2}},
			order: []string{"top", "mid", "low"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Pack(tc.items, tc.columns)
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if gotPos := positions(got); !reflect.DeepEqual(gotPos, tc.want) {
				t.Fatalf("positions = %#v, want %#v", gotPos, tc.want)
			}
			if gotOrder := ids(got); !slices.Equal(gotOrder, tc.order) {
				t.Fatalf("order = %v, want %v", gotOrder, tc.order)
			}
		})
	}
}

// TestPackSingleRowOfTwelve verifies input order is kept across one full row.
func TestPackSingleRowOfTwelve(t *testing.T) {
	items := make([]Item, 0, 12)
	for i := range 12 {
		items = append(items, Item{ID: fmt.Sprintf("w%02d", i), Width: 1, Height: 1})
	}
	got, err := Pack(items, 12)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	for i, p := range got {
		if p.ID != items[i].ID || p.X != i || p.Y != 0 {
			t.Fatalf("placement[%d] = %s at (%d,%d), want %s at (%d,0)", i, p.ID, p.X, p.Y, items[i].ID, i)
		}
	}
}

// TestPackStickyFlag verifies Sticky is only set when the preferred cell was honored.
func TestPackStickyFlag(t *testing.T) {
	got, err := Pack([]Item{
		{ID: "a", Width: 1, Height: 1, Preferred: at(0, 0)},
		{ID: "b", Width: 1, Height: 1, Preferred: at(0, 0)},
		{ID: "c", Width: 1, Height: 1},
	}, 3)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	sticky := map[string]bool{}
	for _, p := range got {
		sticky[p.ID] = p.Sticky
	}
	if !sticky["a"] || sticky["b"] || sticky["c"] {
		t.Fatalf("unexpected sticky flags %#v", sticky)
	}
	summary := Summarize(got, 3)
	if summary.Sticky != 1 || summary.Relocated != 1 {
		t.Fatalf("summary = %#v, want 1 sticky and 1 relocated", summary)
	}
	if summary.Rows != 1 || summary.FreeCells != 0 {
		t.Fatalf("summary = %#v, want one full row", summary)
	}
}

// TestPackRejectsTooWideItem verifies width violations fail fast with no partial output.
func TestPackRejectsTooWideItem(t *testing.T) {
	got, err := Pack([]Item{
		{ID: "ok", Width: 1, Height: 1},
		{ID: "wide", Width: 4, Height: 1},
	}, 3)
	if err == nil {
		t.Fatal("expected width error")
	}
	if got != nil {
		t.Fatalf("expected no partial output, got %#v", got)
	}
	if !errors.Is(err, ErrItemTooWide) {
		t.Fatalf("errors.Is(err, ErrItemTooWide) = false for %v", err)
	}
	var widthErr *WidthError
	if !errors.As(err, &widthErr) {
		t.Fatalf("errors.As(*WidthError) = false for %v", err)
	}
	if widthErr.ItemID != "wide" || widthErr.Width != 4 || widthErr.Columns != 3 {
		t.Fatalf("unexpected width error %#v", widthErr)
	}
}

// TestPackRejectsInvalidInput verifies precondition failures are reported distinctly.
func TestPackRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		columns int
		items   []Item
		want    error
	}{
		{name: "zero columns", columns: 0, items: nil, want: ErrInvalidColumns},
		{name: "empty id", columns: 3, items: []Item{{ID: " ", Width: 1, Height: 1}}, want: ErrInvalidItem},
		{name: "duplicate id", columns: 3, items: []Item{{ID: "a", Width: 1, Height: 1}, {ID: "a", Width: 1, Height: 1}}, want: ErrInvalidItem},
		{name: "zero height", columns: 3, items: []Item{{ID: "a", Width: 1, Height: 0}}, want: ErrInvalidItem},
		{name: "negative preferred", columns: 3, items: []Item{{ID: "a", Width: 1, Height: 1, Preferred: at(-1, 0)}}, want: ErrInvalidItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Pack(tc.items, tc.columns)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Pack() error = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestPackBoundaryCoordinates verifies preferred cells at the edges of int and of the grid.
func TestPackBoundaryCoordinates(t *testing.T) {
	got, err := Pack([]Item{{ID: "a", Width: 1, Height: 1, Preferred: at(math.MaxInt, 0)}}, 3)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if got[0].X != 0 || got[0].Y != 0 || got[0].Sticky {
		t.Fatalf("huge preferred x placed at %#v, want scanned to (0,0)", got[0])
	}

	_, err = Pack([]Item{
		{ID: "a", Width: 1, Height: 2, Preferred: at(0, math.MaxInt)},
		{ID: "b", Width: 1, Height: 2, Preferred: at(0, math.MaxInt)},
	}, 3)
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Pack() error = %v, want ErrInvalidItem", err)
	}

	got, err = Pack([]Item{{ID: "edge", Width: 2, Height: 1, Preferred: at(1, 0)}}, 3)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if got[0].X != 1 || !got[0].Sticky {
		t.Fatalf("item ending on the last column = %#v, want sticky at x=1", got[0])
	}
}

// TestPackRowLimit verifies sticky rows past MaxRows are kept up to the row limit.
func TestPackRowLimit(t *testing.T) {
	packer := Packer{MaxRows: 4}
	if packer.RowLimit() != 8 {
		t.Fatalf("RowLimit() = %d, want 8", packer.RowLimit())
	}
	got, err := packer.Pack([]Item{
		{ID: "deep", Width: 1, Height: 2, Preferred: at(0, 6)},
		{ID: "top", Width: 1, Height: 1},
	}, 2)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	pos := positions(got)
	if pos["deep"] != (Point{0, 6}) || pos["top"] != (Point{0, 0}) {
		t.Fatalf("unexpected positions %#v", pos)
	}
	if err := packer.Verify(got, 2); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	cases := []struct {
		name string
		item Item
	}{
		{name: "preferred row past limit", item: Item{ID: "a", Width: 1, Height: 2, Preferred: at(0, 7)}},
		{name: "height past limit", item: Item{ID: "a", Width: 1, Height: 9}},
		{name: "huge height", item: Item{ID: "a", Width: 1, Height: math.MaxInt}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := packer.Pack([]Item{tc.item}, 2); !errors.Is(err, ErrInvalidItem) {
				t.Fatalf("Pack() error = %v, want ErrInvalidItem", err)
			}
		})
	}

	if RowLimit(math.MaxInt) != math.MaxInt {
		t.Fatalf("RowLimit(MaxInt) = %d, want MaxInt", RowLimit(math.MaxInt))
	}
	if RowLimit(0) != 2*DefaultMaxRows {
		t.Fatalf("RowLimit(0) = %d, want %d", RowLimit(0), 2*DefaultMaxRows)
	}
}

// TestVerifyRejectsOverflowingPlacements verifies rectangles near the int limit never pass.
func TestVerifyRejectsOverflowingPlacements(t *testing.T) {
	cases := []struct {
		name       string
		placements []Placement
	}{
		{name: "huge x", placements: []Placement{{Item: Item{ID: "a", Width: 1, Height: 1}, X: math.MaxInt}}},
		{name: "stacked at max row", placements: []Placement{
			{Item: Item{ID: "a", Width: 1, Height: 2}, Y: math.MaxInt},
			{Item: Item{ID: "b", Width: 1, Height: 2}, Y: math.MaxInt},
		}},
		{name: "past row limit", placements: []Placement{{Item: Item{ID: "a", Width: 1, Height: 1}, Y: 2 * DefaultMaxRows}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Verify(tc.placements, 3); !errors.Is(err, ErrInvalidItem) {
				t.Fatalf("Verify() error = %v, want ErrInvalidItem", err)
			}
		})
	}

	unbounded := Packer{MaxRows: math.MaxInt}
	err := unbounded.Verify([]Placement{
		{Item: Item{ID: "a", Width: 1, Height: 2}, Y: math.MaxInt - 2},
		{Item: Item{ID: "b", Width: 1, Height: 2}, Y: math.MaxInt - 2},
	}, 3)
	if !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Verify() error = %v, want overlap rejected", err)
	}
}

// TestOccupancyBounds verifies the bounds check near the int limit.
func TestOccupancyBounds(t *testing.T) {
	grid := newOccupancy(3)
	if grid.fits(math.MaxInt, 0, 1, 1) || grid.fits(0, math.MaxInt, 1, 2) || grid.fits(2, 0, 2, 1) {
		t.Fatal("fits() accepted an out-of-bounds rectangle")
	}
	if !grid.fits(1, 0, 2, 1) || !grid.fits(0, math.MaxInt-1, 1, 1) {
		t.Fatal("fits() rejected an in-bounds rectangle")
	}
	grid.claim(0, math.MaxInt, 1, 2)
	if len(grid.rows) != 0 || grid.height != 0 {
		t.Fatalf("claim() marked an out-of-bounds rectangle: rows=%d height=%d", len(grid.rows), grid.height)
	}
}

// TestPackExhaustion verifies the row ceiling surfaces as a typed error.
func TestPackExhaustion(t *testing.T) {
	got, err := Packer{MaxRows: 2}.Pack([]Item{
		{ID: "a", Width: 1, Height: 1},
		{ID: "b", Width: 1, Height: 1},
		{ID: "c", Width: 1, Height: 1},
	}, 1)
	if !errors.Is(err, ErrPackingExhausted) {
		t.Fatalf("Pack() error = %v, want ErrPackingExhausted", err)
	}
	if got != nil {
		t.Fatalf("expected no partial output, got %#v", got)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.ItemID != "c" || exhausted.MaxRows != 2 {
		t.Fatalf("unexpected exhausted error %#v", exhausted)
	}
}

// TestPackEmptyInput verifies an empty pass is a success, not an error.
func TestPackEmptyInput(t *testing.T) {
	got, err := Pack(nil, 4)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

// randomItems builds a deterministic pseudo-random item list.
func randomItems(rng *rand.Rand, columns, n int) []Item {
	items := make([]Item, 0, n)
	for i := range n {
		item := Item{
			ID:     fmt.Sprintf("item-%d", i),
			Width:  1 + rng.IntN(columns),
			Height: 1 + rng.IntN(4),
		}
		if rng.IntN(2) == 0 {
			item.Preferred = at(rng.IntN(columns), rng.IntN(8))
		}
		items = append(items, item)
	}
	return items
}

// overlaps reports whether two placements share any cell.
func overlaps(a, b Placement) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width && a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// TestPackProperties checks layout invariants over many generated inputs.
func TestPackProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	for round := range 300 {
		columns := 1 + rng.IntN(12)
		items := randomItems(rng, columns, rng.IntN(20))

		got, err := Pack(items, columns)
		if err != nil {
			t.Fatalf("round %d: Pack() error = %v", round, err)
		}
		if len(got) != len(items) {
			t.Fatalf("round %d: len = %d, want %d", round, len(got), len(items))
		}
		byID := map[string]Item{}
		for _, item := range items {
			byID[item.ID] = item
		}
		for i, p := range got {
			if p.X < 0 || p.Y < 0 || p.X+p.Width > columns {
				t.Fatalf("round %d: %s at (%d,%d) width %d escapes %d columns", round, p.ID, p.X, p.Y, p.Width, columns)
			}
			src, ok := byID[p.ID]
			if !ok {
				t.Fatalf("round %d: unknown placement id %q", round, p.ID)
			}
			delete(byID, p.ID)
			if p.Width != src.Width || p.Height != src.Height {
				t.Fatalf("round %d: %s size changed", round, p.ID)
			}
			if p.Sticky && (src.Preferred == nil || p.X != src.Preferred.X || p.Y != src.Preferred.Y) {
				t.Fatalf("round %d: %s marked sticky away from preferred cell", round, p.ID)
			}
			for _, other := range got[i+1:] {
				if overlaps(p, other) {
					t.Fatalf("round %d: %s overlaps %s", round, p.ID, other.ID)
				}
			}
			if i > 0 && comparePlacement(got[i-1], p) >= 0 {
				t.Fatalf("round %d: output not sorted by (y, x) at %d", round, i)
			}
		}
		if err := Verify(got, columns); err != nil {
			t.Fatalf("round %d: Verify() error = %v", round, err)
		}
		if len(items) > 0 && items[0].Preferred != nil {
			first := items[0]
			pos := positions(got)[first.ID]
			if first.Preferred.X+first.Width <= columns && pos != *first.Preferred {
				t.Fatalf("round %d: first item lost free preferred cell", round)
			}
		}

		again, err := Pack(items, columns)
		if err != nil {
			t.Fatalf("round %d: second Pack() error = %v", round, err)
		}
		if !reflect.DeepEqual(got, again) {
			t.Fatalf("round %d: packing is not deterministic", round)
		}
	}
}

// TestPackRepackIsStable verifies feeding a layout back as preferences reproduces it.
func TestPackRepackIsStable(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	for round := range 100 {
		columns := 1 + rng.IntN(12)
		first, err := Pack(randomItems(rng, columns, 15), columns)
		if err != nil {
			t.Fatalf("round %d: Pack() error = %v", round, err)
		}
		again := make([]Item, 0, len(first))
		for _, p := range first {
			item := p.Item
			item.Preferred = at(p.X, p.Y)
			again = append(again, item)
		}
		second, err := Pack(again, columns)
		if err != nil {
			t.Fatalf("round %d: repack error = %v", round, err)
		}
		if !reflect.DeepEqual(positions(first), positions(second)) {
			t.Fatalf("round %d: repack moved items", round)
		}
	}
}

// TestVerifyDetectsOverlap verifies Verify rejects overlapping or escaping rectangles.
func TestVerifyDetectsOverlap(t *testing.T) {
	overlapping := []Placement{
		{Item: Item{ID: "a", Width: 2, Height: 2}, X: 0, Y: 0},
		{Item: Item{ID: "b", Width: 1, Height: 1}, X: 1, Y: 1},
	}
	if err := Verify(overlapping, 4); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Verify(overlap) error = %v, want ErrInvalidItem", err)
	}
	escaping := []Placement{{Item: Item{ID: "a", Width: 2, Height: 1}, X: 3, Y: 0}}
	if err := Verify(escaping, 4); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Verify(escape) error = %v, want ErrInvalidItem", err)
	}
}

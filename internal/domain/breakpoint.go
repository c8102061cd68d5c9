package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Breakpoint is a named responsive width tier with its own grid column count.
type Breakpoint struct {
	Name     string `json:"name"`
	Columns  int    `json:"columns"`
	MinWidth int    `json:"min_width"`
}

// BreakpointDesktop and related constants name the default responsive tiers.
const (
	BreakpointDesktop = "desktop"
	BreakpointTablet  = "tablet"
	BreakpointMobile  = "mobile"
)

// DefaultBreakpoints returns the desktop/tablet/mobile tiers, widest first.
func DefaultBreakpoints() []Breakpoint {
	return []Breakpoint{
		{Name: BreakpointDesktop, Columns: 12, MinWidth: 1200},
		{Name: BreakpointTablet, Columns: 8, MinWidth: 768},
		{Name: BreakpointMobile, Columns: 4, MinWidth: 0},
	}
}

// NewBreakpoint constructs a validated breakpoint.
func NewBreakpoint(name string, columns, minWidth int) (Breakpoint, error) {
	name = NormalizeBreakpointName(name)
	if name == "" {
		return Breakpoint{}, ErrInvalidBreakpoint
	}
	if columns < 1 || minWidth < 0 {
		return Breakpoint{}, ErrInvalidBreakpoint
	}
	return Breakpoint{Name: name, Columns: columns, MinWidth: minWidth}, nil
}

// NormalizeBreakpointName canonicalizes a breakpoint name for lookups.
func NormalizeBreakpointName(name string) string {
	return normalizeSlug(name)
}

// FindBreakpoint returns the breakpoint with the given name.
func FindBreakpoint(breakpoints []Breakpoint, name string) (Breakpoint, bool) {
	name = NormalizeBreakpointName(name)
	for _, bp := range breakpoints {
		if bp.Name == name {
			return bp, true
		}
	}
	return Breakpoint{}, false
}

// BreakpointForWidth returns the widest tier whose MinWidth does not exceed width.
func BreakpointForWidth(breakpoints []Breakpoint, width int) (Breakpoint, bool) {
	sorted := slices.Clone(breakpoints)
	slices.SortFunc(sorted, func(a, b Breakpoint) int {
		return cmp.Compare(b.MinWidth, a.MinWidth)
	})
	for _, bp := range sorted {
		if width >= bp.MinWidth {
			return bp, true
		}
	}
	return Breakpoint{}, false
}

// normalizeSlug normalizes slug.
func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

package gridpack

import (
	"errors"
	"fmt"
)

// ErrInvalidColumns and related errors describe packer input and runtime failures.
var (
	ErrInvalidColumns   = errors.New("invalid column count")
	ErrInvalidItem      = errors.New("invalid grid item")
	ErrItemTooWide      = errors.New("item wider than grid")
	ErrPackingExhausted = errors.New("packing exhausted")
)

// WidthError reports an item that can never fit the grid width.
type WidthError struct {
	ItemID  string
	Width   int
	Columns int
}

// Error formats the width violation.
func (e *WidthError) Error() string {
	return fmt.Sprintf("item %q width %d exceeds %d columns", e.ItemID, e.Width, e.Columns)
}

// Unwrap returns ErrItemTooWide so callers can match with errors.Is.
func (e *WidthError) Unwrap() error {
	return ErrItemTooWide
}

// ExhaustedError reports a fallback scan that ran past the row ceiling.
// Reaching it means the packer has a bug: an empty row always accepts a legal item.
type ExhaustedError struct {
	ItemID  string
	MaxRows int
}

// Error formats the exhaustion failure.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no free slot for item %q within %d rows", e.ItemID, e.MaxRows)
}

// Unwrap returns ErrPackingExhausted so callers can match with errors.Is.
func (e *ExhaustedError) Unwrap() error {
	return ErrPackingExhausted
}

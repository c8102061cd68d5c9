package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTitle      = errors.New("invalid title")
	ErrInvalidKind       = errors.New("invalid widget kind")
	ErrInvalidSize       = errors.New("invalid widget size")
	ErrInvalidBreakpoint = errors.New("invalid breakpoint")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrWidgetTooWide     = errors.New("widget wider than breakpoint")
)

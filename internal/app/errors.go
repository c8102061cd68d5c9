package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrLayoutFailed      = errors.New("layout failed")
	ErrUnknownBreakpoint = errors.New("unknown breakpoint")
	ErrDashboardArchived = errors.New("dashboard archived")
)

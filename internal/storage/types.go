package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an event doesn't exist.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// PartialEvent describes a field-level overwrite of an existing event.
// Nil fields mean "leave unchanged"; there is no way to erase a field
// through an update, only to replace its value.
type PartialEvent struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Location  *string
}

// IsEmpty reports whether the partial carries no changes at all.
func (p PartialEvent) IsEmpty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Location == nil
}

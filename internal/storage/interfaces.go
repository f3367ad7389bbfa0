// Package storage provides the event store interface for pland.
//
// The event store is an external collaborator from the engine's point of
// view: every call can fail with a transient error, and the engine
// surfaces those failures as a generic store-failure outcome rather than
// retrying internally.
package storage

import (
	"context"
	"time"

	"github.com/kyrelim/pland/pkg/types"
)

// EventStore provides persistence for events, scoped queries for
// conflict detection, and the date queries the nightly briefing needs.
type EventStore interface {
	// Insert validates and persists a new event, returning the id the
	// store assigned. Returns ErrInvalidInput for events that fail
	// validation (including flagged unparsable start times).
	Insert(ctx context.Context, event *types.Event) (int64, error)

	// Get retrieves an event by id.
	// Returns ErrNotFound if the event doesn't exist.
	Get(ctx context.Context, id int64) (*types.Event, error)

	// Update applies a partial field overwrite to an existing event and
	// returns the updated row. Nil fields in partial are left unchanged.
	// Returns ErrNotFound if the event doesn't exist.
	Update(ctx context.Context, id int64, partial PartialEvent) (*types.Event, error)

	// QueryOverlaps returns the events owned by userID whose interval
	// overlaps [start, end) under the half-open rule s1 < e2 AND e1 > s2.
	// It must never return events belonging to a different user.
	QueryOverlaps(ctx context.Context, userID int64, start, end time.Time) ([]*types.Event, error)

	// QueryByUserAndDate returns userID's events starting on the given
	// calendar day, ordered by start time ascending.
	QueryByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*types.Event, error)

	// QueryUsersWithEventsOn returns the distinct owner ids that have at
	// least one event starting on the given calendar day.
	QueryUsersWithEventsOn(ctx context.Context, date time.Time) ([]int64, error)

	// DeleteByUserAndDate removes userID's events on the given calendar
	// day and returns the number of rows deleted.
	DeleteByUserAndDate(ctx context.Context, userID int64, date time.Time) (int64, error)

	// UpdateEnrichment attaches supplementary data to an event after
	// persistence. Returns ErrNotFound if the event doesn't exist.
	UpdateEnrichment(ctx context.Context, id int64, enrichment map[string]string) error

	// Close releases any resources held by the store.
	Close() error
}

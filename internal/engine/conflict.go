package engine

import (
	"context"
	"time"

	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/pkg/types"
)

// ConflictDetector finds a user's existing events that overlap a
// candidate interval. Overlap follows the half-open rule: [s1,e1) and
// [s2,e2) overlap iff s1 < e2 AND e1 > s2, so events that merely touch
// at an endpoint do not conflict.
type ConflictDetector struct {
	store storage.EventStore
}

// NewConflictDetector creates a conflict detector over the given store.
func NewConflictDetector(store storage.EventStore) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// FindOverlaps returns the user's events overlapping [start, end),
// excluding the event with excludeID (pass 0 to exclude nothing).
// Excluding the candidate's own id matters on the update path: an event
// always overlaps itself, and a self-conflict is not a conflict.
func (d *ConflictDetector) FindOverlaps(ctx context.Context, userID int64, start, end time.Time, excludeID int64) ([]*types.Event, error) {
	overlaps, err := d.store.QueryOverlaps(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if excludeID == 0 {
		return overlaps, nil
	}

	filtered := overlaps[:0]
	for _, e := range overlaps {
		if e.ID != excludeID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

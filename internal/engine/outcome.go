// Package engine implements the per-message decision pipeline: intent
// gating, event extraction, conflict detection, short-term chat memory,
// and the update/new-event state machine tying them together.
package engine

import "github.com/kyrelim/pland/pkg/types"

// OutcomeKind enumerates the terminal results of processing one message.
// Every message produces exactly one outcome.
type OutcomeKind string

const (
	// OutcomeDropped means the intent gate rejected the message. Not an
	// error; no notification is sent.
	OutcomeDropped OutcomeKind = "dropped"

	// OutcomeCreated means a new event was persisted.
	OutcomeCreated OutcomeKind = "created"

	// OutcomeUpdated means an existing event was modified in place.
	OutcomeUpdated OutcomeKind = "updated"

	// OutcomeConflict means a valid event or update was rejected because
	// it overlaps existing events. Conflicts carries the overlap set.
	OutcomeConflict OutcomeKind = "conflict"

	// OutcomeExtractionFailed covers oracle errors, unparsable output,
	// and the past-event guard.
	OutcomeExtractionFailed OutcomeKind = "extraction_failed"

	// OutcomeUpdateIndeterminate means update triggers were present and
	// the oracle confirmed an update, but no concrete field change was
	// identified. The user is asked to be more specific.
	OutcomeUpdateIndeterminate OutcomeKind = "update_indeterminate"

	// OutcomeStoreFailure covers any persistence-layer error.
	OutcomeStoreFailure OutcomeKind = "store_failure"
)

// Outcome is the terminal result of processing one inbound message.
type Outcome struct {
	Kind OutcomeKind

	// Event is the created or updated event. Set for OutcomeCreated,
	// OutcomeUpdated, and OutcomeConflict (the candidate that lost).
	Event *types.Event

	// Conflicts is the set of overlapping events for OutcomeConflict.
	Conflicts []*types.Event

	// Err is the underlying failure for the failing kinds. It is logged,
	// never shown to the user verbatim.
	Err error
}

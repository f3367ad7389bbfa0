package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kyrelim/pland/internal/oracle"
	"github.com/kyrelim/pland/pkg/types"
)

// ErrPastEvent is returned when the extracted start time is more than
// the guard window in the past.
var ErrPastEvent = errors.New("event starts in the past")

// pastEventGuard tolerates small clock skew and typing delay: a start
// within the last five minutes is still accepted.
const pastEventGuard = 5 * time.Minute

// Extractor turns approved message text into a normalized event via the
// language oracle. It pins relative-date resolution to its own clock
// rather than the oracle's, and enforces the temporal invariants in code
// regardless of what the oracle returned.
type Extractor struct {
	oracle oracle.Oracle
	loc    *time.Location

	// now is replaceable in tests.
	now func() time.Time
}

// NewExtractor creates an extractor that resolves relative dates in loc.
func NewExtractor(o oracle.Oracle, loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{oracle: o, loc: loc, now: time.Now}
}

// Extract asks the oracle to pull an event out of text and validates the
// result. Returns ErrPastEvent for events starting before now minus the
// guard window, and the oracle/parse error otherwise. An unparsable
// start time is not an error here: the event comes back flagged and the
// store rejects it at the persistence boundary.
func (x *Extractor) Extract(ctx context.Context, text string, userID int64) (*types.Event, error) {
	now := x.now().In(x.loc)

	raw, err := x.oracle.Complete(ctx, oracle.ExtractionPrompt(text, now))
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}

	event, err := oracle.ParseEventResponse(raw)
	if err != nil {
		return nil, err
	}

	if !event.TimeFlagged() && event.StartTime.Before(now.Add(-pastEventGuard)) {
		return nil, fmt.Errorf("%w: start %s", ErrPastEvent, event.StartTime.Format(types.TimeLayout))
	}

	event.EnsureEnd()
	event.OwnerUserID = userID
	event.Source = types.SourceConversation
	notes := text
	event.ContextNotes = &notes

	return event, nil
}

package engine

import (
	"context"
	"errors"
	"log"

	"github.com/kyrelim/pland/internal/intent"
	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/pkg/types"
)

// Session is the per-message state machine. For every inbound message it
// runs the intent gate, then either the update path (chat memory +
// update classifier) or the new-event path (extractor + conflict
// detector), and returns exactly one terminal outcome.
type Session struct {
	gate       *intent.Gate
	extractor  *Extractor
	classifier *UpdateClassifier
	detector   *ConflictDetector
	memory     *ChatMemory
	store      storage.EventStore
	locks      *userLocks
}

// NewSession wires the pipeline components into an orchestrator.
func NewSession(gate *intent.Gate, extractor *Extractor, classifier *UpdateClassifier, store storage.EventStore, memory *ChatMemory) *Session {
	return &Session{
		gate:       gate,
		extractor:  extractor,
		classifier: classifier,
		detector:   NewConflictDetector(store),
		memory:     memory,
		store:      store,
		locks:      newUserLocks(),
	}
}

// Memory exposes the chat memory, for the command surface (/clear).
func (s *Session) Memory() *ChatMemory {
	return s.memory
}

// ProcessMessage drives one message to its terminal outcome. It never
// panics outward; every failure becomes an outcome.
func (s *Session) ProcessMessage(ctx context.Context, roomID, userID int64, text string) Outcome {
	if !s.gate.IsEventLike(text) {
		return Outcome{Kind: OutcomeDropped}
	}

	// Update path: only attempted when the room remembers a previous
	// event and that event still exists.
	if prevID, ok := s.memory.Get(roomID); ok {
		prev, err := s.store.Get(ctx, prevID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// The remembered event vanished; fall through to the new path.
			s.memory.Forget(roomID)
		case err != nil:
			return Outcome{Kind: OutcomeStoreFailure, Err: err}
		case prev.Source == types.SourceConversation:
			if outcome, handled := s.tryUpdate(ctx, roomID, userID, text, prev); handled {
				return outcome
			}
		}
	}

	return s.createEvent(ctx, roomID, userID, text)
}

// tryUpdate runs the update classifier against prev. handled is false
// when the message is not an update, in which case the caller falls
// through to the new-event path.
func (s *Session) tryUpdate(ctx context.Context, roomID, userID int64, text string, prev *types.Event) (Outcome, bool) {
	analysis := s.classifier.Classify(ctx, text, prev)
	if !analysis.IsUpdate {
		return Outcome{}, false
	}
	if !analysis.HasChanges() {
		return Outcome{Kind: OutcomeUpdateIndeterminate}, true
	}

	partial := storage.PartialEvent{
		Title:    analysis.NewTitle,
		Location: analysis.NewLocation,
	}

	// Moving the start preserves the event's duration.
	newStart := prev.StartTime
	newEnd := prev.EndTime
	if analysis.NewStartTime != nil {
		newStart = *analysis.NewStartTime
		newEnd = newStart.Add(prev.EndTime.Sub(prev.StartTime))
		partial.StartTime = &newStart
		partial.EndTime = &newEnd
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	// The event's own interval always overlaps itself; exclude it.
	conflicts, err := s.detector.FindOverlaps(ctx, userID, newStart, newEnd, prev.ID)
	if err != nil {
		return Outcome{Kind: OutcomeStoreFailure, Err: err}, true
	}
	if len(conflicts) > 0 {
		return Outcome{Kind: OutcomeConflict, Event: prev, Conflicts: conflicts}, true
	}

	updated, err := s.store.Update(ctx, prev.ID, partial)
	if err != nil {
		return Outcome{Kind: OutcomeStoreFailure, Err: err}, true
	}

	// The room keeps pointing at the same event id.
	s.memory.Set(roomID, updated.ID)
	log.Printf("engine: updated event %d for user %d in room %d", updated.ID, userID, roomID)
	return Outcome{Kind: OutcomeUpdated, Event: updated}, true
}

func (s *Session) createEvent(ctx context.Context, roomID, userID int64, text string) Outcome {
	event, err := s.extractor.Extract(ctx, text, userID)
	if err != nil {
		return Outcome{Kind: OutcomeExtractionFailed, Err: err}
	}

	// An unparsable start time would fail store validation anyway; give
	// it the extraction-failure notification instead of a generic
	// database error.
	if event.TimeFlagged() {
		return Outcome{Kind: OutcomeExtractionFailed, Err: errors.New("start time could not be resolved: " + event.StartTimeRaw)}
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	conflicts, err := s.detector.FindOverlaps(ctx, userID, event.StartTime, event.EndTime, 0)
	if err != nil {
		return Outcome{Kind: OutcomeStoreFailure, Err: err}
	}
	if len(conflicts) > 0 {
		return Outcome{Kind: OutcomeConflict, Event: event, Conflicts: conflicts}
	}

	id, err := s.store.Insert(ctx, event)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			return Outcome{Kind: OutcomeExtractionFailed, Err: err}
		}
		return Outcome{Kind: OutcomeStoreFailure, Err: err}
	}

	// Memory is only written after a successful save.
	s.memory.Set(roomID, id)
	log.Printf("engine: created event %d for user %d in room %d", id, userID, roomID)
	return Outcome{Kind: OutcomeCreated, Event: event}
}

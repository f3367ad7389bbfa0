package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrelim/pland/internal/intent"
	"github.com/kyrelim/pland/pkg/types"
)

type sessionFixture struct {
	session *Session
	oracle  *fakeOracle
	store   *memStore
	memory  *ChatMemory
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	o := &fakeOracle{}
	gate := intent.NewGate()

	extractor := NewExtractor(o, time.Local)
	extractor.now = func() time.Time { return testNow }

	classifier := NewUpdateClassifier(gate, o, time.Local)
	classifier.now = func() time.Time { return testNow }

	store := newMemStore()
	memory, err := NewChatMemory(16)
	require.NoError(t, err)

	return &sessionFixture{
		session: NewSession(gate, extractor, classifier, store, memory),
		oracle:  o,
		store:   store,
		memory:  memory,
	}
}

func updateJSON(newStart *time.Time) string {
	if newStart == nil {
		return `{"is_update":true,"new_start_time":null,"new_title":null,"new_location":null}`
	}
	return `{"is_update":true,"new_start_time":"` + newStart.Format(types.TimeLayout) +
		`","new_title":null,"new_location":null}`
}

func TestSessionDropsNonEventMessages(t *testing.T) {
	f := newSessionFixture(t)

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "lol that's hilarious")
	assert.Equal(t, OutcomeDropped, outcome.Kind)
	// No oracle call was spent.
	assert.Empty(t, f.oracle.prompts)
}

func TestSessionCreateUpdateNewScenario(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	const room, user = int64(10), int64(1)

	// Message 1: "Let's meet tomorrow at 2pm at COM1" → new event.
	start := time.Date(2026, 3, 11, 14, 0, 0, 0, time.Local)
	f.oracle.push(`{"title":"Meetup","start_time":"` + start.Format(types.TimeLayout) +
		`","end_time":null,"location":"COM1"}`)

	outcome := f.session.ProcessMessage(ctx, room, user, "Let's meet tomorrow at 2pm at COM1")
	require.Equal(t, OutcomeCreated, outcome.Kind)
	e1 := outcome.Event.ID

	remembered, ok := f.memory.Get(room)
	require.True(t, ok)
	assert.Equal(t, e1, remembered)

	// Message 2: "Actually move it to 3pm" → update of E1, duration kept.
	newStart := start.Add(time.Hour)
	f.oracle.push(updateJSON(&newStart))

	outcome = f.session.ProcessMessage(ctx, room, user, "Actually move it to 3pm")
	require.Equal(t, OutcomeUpdated, outcome.Kind)
	assert.Equal(t, e1, outcome.Event.ID)
	assert.True(t, outcome.Event.StartTime.Equal(newStart))
	assert.True(t, outcome.Event.EndTime.Equal(newStart.Add(time.Hour)))

	// Memory still points at E1.
	remembered, ok = f.memory.Get(room)
	require.True(t, ok)
	assert.Equal(t, e1, remembered)

	// Message 3: "Dinner at 7pm tomorrow at Deck" → classifier has no
	// trigger, so it goes straight to the new-event path.
	dinner := time.Date(2026, 3, 11, 19, 0, 0, 0, time.Local)
	f.oracle.push(`{"title":"Dinner","start_time":"` + dinner.Format(types.TimeLayout) +
		`","end_time":null,"location":"Deck"}`)

	outcome = f.session.ProcessMessage(ctx, room, user, "Dinner at 7pm tomorrow at Deck")
	require.Equal(t, OutcomeCreated, outcome.Kind)
	e2 := outcome.Event.ID
	assert.NotEqual(t, e1, e2)

	remembered, ok = f.memory.Get(room)
	require.True(t, ok)
	assert.Equal(t, e2, remembered)
}

func TestSessionNoMemoryNeverClassifiesUpdate(t *testing.T) {
	f := newSessionFixture(t)

	// Trigger words present ("actually", "move") but the room has no
	// memory, so this must be treated as a new event.
	start := testNow.Add(24 * time.Hour)
	f.oracle.push(extractionJSON(start))

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "actually move it to 3pm")
	assert.Equal(t, OutcomeCreated, outcome.Kind)
	// Exactly one oracle call, and it was extraction, not classification.
	require.Len(t, f.oracle.prompts, 1)
	assert.NotContains(t, f.oracle.prompts[0], "is_update")
}

func TestSessionVanishedMemoryFallsBackToNew(t *testing.T) {
	f := newSessionFixture(t)

	// Remembered id points at nothing.
	f.memory.Set(10, 999)

	start := testNow.Add(24 * time.Hour)
	f.oracle.push(extractionJSON(start))

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "actually move the meeting")
	assert.Equal(t, OutcomeCreated, outcome.Kind)

	// The stale entry was dropped and replaced by the new event.
	remembered, ok := f.memory.Get(10)
	require.True(t, ok)
	assert.Equal(t, outcome.Event.ID, remembered)
}

func TestSessionConflictRejectsNewEvent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 11, 14, 0, 0, 0, time.Local)
	seedEvent(t, f.store, 1, base, time.Hour) // 14:00-15:00

	// Candidate 14:30-15:30 for the same user.
	f.oracle.push(`{"title":"Clash","start_time":"` + base.Add(30*time.Minute).Format(types.TimeLayout) +
		`","end_time":"` + base.Add(90*time.Minute).Format(types.TimeLayout) + `","location":null}`)

	outcome := f.session.ProcessMessage(ctx, 10, 1, "meeting tomorrow at 2:30pm")
	require.Equal(t, OutcomeConflict, outcome.Kind)
	assert.NotEmpty(t, outcome.Conflicts)

	// A rejected save never touches memory.
	_, ok := f.memory.Get(10)
	assert.False(t, ok)

	// A different user with the same interval saves fine.
	f.oracle.push(`{"title":"Clash","start_time":"` + base.Add(30*time.Minute).Format(types.TimeLayout) +
		`","end_time":"` + base.Add(90*time.Minute).Format(types.TimeLayout) + `","location":null}`)
	outcome = f.session.ProcessMessage(ctx, 11, 2, "meeting tomorrow at 2:30pm")
	assert.Equal(t, OutcomeCreated, outcome.Kind)
}

func TestSessionUpdateConflictKeepsOriginal(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 11, 14, 0, 0, 0, time.Local)
	e1 := seedEvent(t, f.store, 1, base, time.Hour)            // 14:00-15:00
	seedEvent(t, f.store, 1, base.Add(2*time.Hour), time.Hour) // 16:00-17:00
	f.memory.Set(10, e1)

	// Moving E1 to 16:30 collides with the second event.
	newStart := base.Add(150 * time.Minute)
	f.oracle.push(updateJSON(&newStart))

	outcome := f.session.ProcessMessage(ctx, 10, 1, "actually move it to 4:30pm")
	require.Equal(t, OutcomeConflict, outcome.Kind)
	assert.NotEmpty(t, outcome.Conflicts)

	// The original event is untouched.
	got, err := f.store.Get(ctx, e1)
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(base))

	// Memory still points at E1.
	remembered, ok := f.memory.Get(10)
	require.True(t, ok)
	assert.Equal(t, e1, remembered)
}

func TestSessionUpdateWithNoChangesIsIndeterminate(t *testing.T) {
	f := newSessionFixture(t)

	base := time.Date(2026, 3, 11, 14, 0, 0, 0, time.Local)
	e1 := seedEvent(t, f.store, 1, base, time.Hour)
	f.memory.Set(10, e1)

	f.oracle.push(updateJSON(nil))

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "actually change the meeting")
	assert.Equal(t, OutcomeUpdateIndeterminate, outcome.Kind)
}

func TestSessionClassifierFailureFallsBackToNew(t *testing.T) {
	f := newSessionFixture(t)

	base := time.Date(2026, 3, 11, 14, 0, 0, 0, time.Local)
	e1 := seedEvent(t, f.store, 1, base, time.Hour)
	f.memory.Set(10, e1)

	// First oracle call (classification) fails; the retryable error must
	// not corrupt E1, and the message becomes a fresh extraction attempt,
	// which also fails here because the oracle is down entirely.
	f.oracle.err = errors.New("quota exceeded")

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "actually move it to 5pm")
	assert.Equal(t, OutcomeExtractionFailed, outcome.Kind)

	got, err := f.store.Get(context.Background(), e1)
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(base))
}

func TestSessionExtractionFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.oracle.err = errors.New("oracle down")

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "meeting tomorrow 3pm")
	assert.Equal(t, OutcomeExtractionFailed, outcome.Kind)
	assert.Error(t, outcome.Err)
}

func TestSessionFlaggedStartIsExtractionFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.oracle.push(`{"title":"Vague","start_time":"whenever","end_time":null,"location":null}`)

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "schedule it whenever")
	assert.Equal(t, OutcomeExtractionFailed, outcome.Kind)
}

func TestSessionStoreFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.store.queryErr = errors.New("connection refused")

	start := testNow.Add(24 * time.Hour)
	f.oracle.push(extractionJSON(start))

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "meeting tomorrow 3pm")
	assert.Equal(t, OutcomeStoreFailure, outcome.Kind)

	// Failed save never writes memory.
	_, ok := f.memory.Get(10)
	assert.False(t, ok)
}

func TestSessionPastEventRejected(t *testing.T) {
	f := newSessionFixture(t)
	f.oracle.push(extractionJSON(testNow.Add(-time.Hour)))

	outcome := f.session.ProcessMessage(context.Background(), 10, 1, "meeting at 11am")
	assert.Equal(t, OutcomeExtractionFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrPastEvent)
}

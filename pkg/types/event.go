// Package types defines the shared domain types for pland: events, their
// sources, and the update-analysis result exchanged between the language
// oracle and the scheduling engine.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the canonical timestamp layout used everywhere an event
// time crosses a boundary (oracle output, storage, display). It is a
// sortable ISO-8601 form without a timezone offset; all times are local
// to the configured deployment timezone.
const TimeLayout = "2006-01-02T15:04:05"

// EventSource distinguishes how an event entered the system.
type EventSource string

const (
	// SourceConversation marks events extracted from live chat messages.
	// Only conversation events participate in the stateful update flow.
	SourceConversation EventSource = "conversation"

	// SourceResearch marks events produced by the bulk topic-research path.
	SourceResearch EventSource = "research"
)

// IsValidEventSource reports whether s is a recognized event source.
func IsValidEventSource(s string) bool {
	switch EventSource(s) {
	case SourceConversation, SourceResearch:
		return true
	}
	return false
}

// Event is the canonical scheduling unit. IDs are assigned by the event
// store on insert and are stable for the lifetime of the event.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Location is nil when the message named no place.
	Location *string `json:"location,omitempty"`

	// OwnerUserID scopes conflict detection. Required before persistence.
	OwnerUserID int64 `json:"owner_user_id"`

	Source EventSource `json:"source"`

	// ContextNotes holds the original raw text for audit and debugging.
	// It is never used for matching.
	ContextNotes *string `json:"context_notes,omitempty"`

	// Enrichment holds supplementary data (links, summaries) attached
	// after persistence. Irrelevant to conflict and update decisions.
	Enrichment map[string]string `json:"enrichment,omitempty"`

	// StartTimeRaw preserves the oracle's start_time string when it could
	// not be parsed into a valid timestamp. A non-empty value with a zero
	// StartTime means the event is flagged for store-side validation.
	StartTimeRaw string `json:"start_time_raw,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeFlagged reports whether the extractor could not produce a valid
// start timestamp and deferred rejection to the store.
func (e *Event) TimeFlagged() bool {
	return e.StartTime.IsZero() && e.StartTimeRaw != ""
}

// EnsureEnd defaults a missing end time to one hour after the start.
// Idempotent: calling it on an event that already has an end is a no-op.
func (e *Event) EnsureEnd() {
	if e.EndTime.IsZero() && !e.StartTime.IsZero() {
		e.EndTime = e.StartTime.Add(time.Hour)
	}
}

// Validate checks the invariants required before an event may be
// persisted. It rejects rather than coerces.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title is required")
	}
	if e.StartTime.IsZero() {
		if e.StartTimeRaw != "" {
			return fmt.Errorf("event start time %q is not a valid timestamp", e.StartTimeRaw)
		}
		return errors.New("event start time is required")
	}
	if e.EndTime.IsZero() {
		return errors.New("event end time is required")
	}
	if !e.EndTime.After(e.StartTime) {
		return fmt.Errorf("event end time %s is not after start time %s",
			e.EndTime.Format(TimeLayout), e.StartTime.Format(TimeLayout))
	}
	if e.OwnerUserID == 0 {
		return errors.New("event owner is required")
	}
	if !IsValidEventSource(string(e.Source)) {
		return fmt.Errorf("invalid event source: %q", e.Source)
	}
	return nil
}

// UpdateAnalysis is the ephemeral result of classifying a follow-up
// message against the previous event in a room. Each New* field is set
// only when the oracle asserted that field changed; absence means
// "unchanged", never "erase".
type UpdateAnalysis struct {
	IsUpdate     bool       `json:"is_update"`
	NewStartTime *time.Time `json:"new_start_time,omitempty"`
	NewTitle     *string    `json:"new_title,omitempty"`
	NewLocation  *string    `json:"new_location,omitempty"`
}

// HasChanges reports whether the analysis carries at least one concrete
// field change. An update with no changes is indeterminate and must not
// be applied.
func (a UpdateAnalysis) HasChanges() bool {
	return a.NewStartTime != nil || a.NewTitle != nil || a.NewLocation != nil
}

package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ChatMemory maps a chat room to the id of the last event confirmed in
// that room. It is the recency hint the update classifier consults to
// decide whether a follow-up message edits the previous event.
//
// Entries are bounded by an LRU cache so rooms that go quiet for weeks
// eventually fall out instead of growing the map for the process
// lifetime. Losing an entry only costs a follow-up being treated as a
// new event, which is the safe direction. The cache's own lock gives
// get/set atomicity per entry; it is not a serialization point for the
// pipeline.
type ChatMemory struct {
	cache *lru.Cache[int64, int64]
}

// NewChatMemory creates a chat memory bounded to capacity rooms.
func NewChatMemory(capacity int) (*ChatMemory, error) {
	cache, err := lru.New[int64, int64](capacity)
	if err != nil {
		return nil, err
	}
	return &ChatMemory{cache: cache}, nil
}

// Get returns the last-confirmed event id for the room, if any.
func (m *ChatMemory) Get(roomID int64) (int64, bool) {
	return m.cache.Get(roomID)
}

// Set records eventID as the last-confirmed event for the room,
// overwriting any previous entry.
func (m *ChatMemory) Set(roomID, eventID int64) {
	m.cache.Add(roomID, eventID)
}

// Forget drops the room's entry, if present.
func (m *ChatMemory) Forget(roomID int64) {
	m.cache.Remove(roomID)
}

// Len returns the number of rooms currently tracked.
func (m *ChatMemory) Len() int {
	return m.cache.Len()
}

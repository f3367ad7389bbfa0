package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/pkg/types"
)

// fakeOracle replays scripted responses in order.
type fakeOracle struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (f *fakeOracle) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fake oracle: no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeOracle) GetModel() string { return "fake" }

func (f *fakeOracle) push(resp string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

// memStore is an in-memory storage.EventStore with error injection.
type memStore struct {
	mu     sync.Mutex
	events map[int64]*types.Event
	nextID int64

	insertErr error
	getErr    error
	queryErr  error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{events: make(map[int64]*types.Event), nextID: 1}
}

func (s *memStore) Insert(_ context.Context, event *types.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if err := event.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	id := s.nextID
	s.nextID++
	copied := *event
	copied.ID = id
	s.events[id] = &copied
	event.ID = id
	return id, nil
}

func (s *memStore) Get(_ context.Context, id int64) (*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	event, ok := s.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (s *memStore) Update(_ context.Context, id int64, partial storage.PartialEvent) (*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	event, ok := s.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if partial.Title != nil {
		event.Title = *partial.Title
	}
	if partial.StartTime != nil {
		event.StartTime = *partial.StartTime
	}
	if partial.EndTime != nil {
		event.EndTime = *partial.EndTime
	}
	if partial.Location != nil {
		event.Location = partial.Location
	}
	event.UpdatedAt = time.Now()
	copied := *event
	return &copied, nil
}

func (s *memStore) QueryOverlaps(_ context.Context, userID int64, start, end time.Time) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []*types.Event
	for _, event := range s.events {
		if event.OwnerUserID != userID {
			continue
		}
		if event.StartTime.Before(end) && event.EndTime.After(start) {
			copied := *event
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) QueryByUserAndDate(_ context.Context, userID int64, date time.Time) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var out []*types.Event
	for _, event := range s.events {
		if event.OwnerUserID == userID && !event.StartTime.Before(dayStart) && event.StartTime.Before(dayEnd) {
			copied := *event
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) QueryUsersWithEventsOn(_ context.Context, date time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	seen := make(map[int64]bool)
	var out []int64
	for _, event := range s.events {
		if !event.StartTime.Before(dayStart) && event.StartTime.Before(dayEnd) && !seen[event.OwnerUserID] {
			seen[event.OwnerUserID] = true
			out = append(out, event.OwnerUserID)
		}
	}
	return out, nil
}

func (s *memStore) DeleteByUserAndDate(_ context.Context, userID int64, date time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var deleted int64
	for id, event := range s.events {
		if event.OwnerUserID == userID && !event.StartTime.Before(dayStart) && event.StartTime.Before(dayEnd) {
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memStore) UpdateEnrichment(_ context.Context, id int64, enrichment map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return storage.ErrNotFound
	}
	event.Enrichment = enrichment
	return nil
}

func (s *memStore) Close() error { return nil }

var _ storage.EventStore = (*memStore)(nil)

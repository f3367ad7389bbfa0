// Package briefing sends each user a nightly summary of tomorrow's
// events at a configured local hour.
package briefing

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kyrelim/pland/internal/bot"
	"github.com/kyrelim/pland/internal/gateway"
	"github.com/kyrelim/pland/internal/storage"
)

// maxConcurrentSends bounds the briefing fan-out so one nightly run
// can't burst past the messenger's rate budget.
const maxConcurrentSends = 8

// Config holds the scheduler settings.
type Config struct {
	// Hour is the local hour (0-23) the briefing fires at.
	Hour     int
	Location *time.Location
}

// Scheduler drives the nightly briefing.
type Scheduler struct {
	store     storage.EventStore
	messenger gateway.Messenger
	hour      int
	loc       *time.Location

	now func() time.Time
}

// NewScheduler creates a briefing scheduler.
func NewScheduler(cfg Config, store storage.EventStore, messenger gateway.Messenger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:     store,
		messenger: messenger,
		hour:      cfg.Hour,
		loc:       loc,
		now:       time.Now,
	}
}

// Start runs the scheduling loop until ctx is cancelled. Call it in its
// own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		wait := s.untilNextRun()
		log.Printf("briefing: next run in %s", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			log.Println("briefing: scheduler stopped")
			return
		case <-time.After(wait):
		}

		tomorrow := s.now().In(s.loc).AddDate(0, 0, 1)
		if err := s.Run(ctx, tomorrow); err != nil {
			log.Printf("briefing: run failed: %v", err)
		}
	}
}

// untilNextRun returns the duration until the next configured hour in
// the scheduler's location.
func (s *Scheduler) untilNextRun() time.Duration {
	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Run sends a briefing for date to every user with events on that day.
// A send failure for one user doesn't stop the others; the first error
// is returned after the fan-out completes.
func (s *Scheduler) Run(ctx context.Context, date time.Time) error {
	users, err := s.store.QueryUsersWithEventsOn(ctx, date)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		log.Println("briefing: no users with events tomorrow")
		return nil
	}

	// A plain group: one user's failure must not cancel the other sends,
	// so the shared ctx is passed through as-is.
	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			return s.sendBriefing(ctx, userID, date)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("briefing: sent to %d users", len(users))
	return nil
}

// ForceBriefing sends one user their briefing for tomorrow immediately,
// even if they have nothing scheduled.
func (s *Scheduler) ForceBriefing(ctx context.Context, userID int64) error {
	tomorrow := s.now().In(s.loc).AddDate(0, 0, 1)
	return s.sendBriefing(ctx, userID, tomorrow)
}

func (s *Scheduler) sendBriefing(ctx context.Context, userID int64, date time.Time) error {
	events, err := s.store.QueryByUserAndDate(ctx, userID, date)
	if err != nil {
		return err
	}

	// A user's private chat id equals their user id.
	if _, err := s.messenger.Send(ctx, userID, bot.BriefingMessage(date, events)); err != nil {
		log.Printf("briefing: send to user %d failed: %v", userID, err)
		return err
	}
	return nil
}

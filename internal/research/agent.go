// Package research implements the bulk topic-research path: given a
// topic, search the web, ask the oracle to pull out upcoming events, and
// save them in one batch. Research events bypass the conversational
// update flow and conflict gate entirely; they are a weaker-guarantee
// import, marked with their own source.
package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kyrelim/pland/internal/oracle"
	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/internal/websearch"
	"github.com/kyrelim/pland/pkg/types"
)

// maxSearchResults bounds how much raw web content one research job
// feeds to the oracle.
const maxSearchResults = 3

// Agent runs topic research jobs.
type Agent struct {
	oracle   oracle.Oracle
	searcher websearch.Searcher
	store    storage.EventStore
	loc      *time.Location

	now func() time.Time
}

// NewAgent creates a research agent. A nil searcher disables research.
func NewAgent(o oracle.Oracle, searcher websearch.Searcher, store storage.EventStore, loc *time.Location) *Agent {
	if loc == nil {
		loc = time.Local
	}
	return &Agent{oracle: o, searcher: searcher, store: store, loc: loc, now: time.Now}
}

// Enabled reports whether research can run (a search client exists).
func (a *Agent) Enabled() bool {
	return a.searcher != nil
}

// Scavenge researches topic for userID and persists the future events it
// finds. Already-saved events from earlier runs may be duplicated; the
// bulk path does no conflict checking. Returns the saved events.
func (a *Agent) Scavenge(ctx context.Context, userID int64, topic string) ([]*types.Event, error) {
	if a.searcher == nil {
		return nil, fmt.Errorf("research: no search client configured")
	}

	jobID := uuid.New().String()[:8]
	log.Printf("research: job %s started for user %d, topic %q", jobID, userID, topic)

	now := a.now().In(a.loc)
	results, err := a.searcher.Search(ctx, topic+" upcoming events schedule dates", websearch.DepthAdvanced, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("research: search failed: %w", err)
	}
	if len(results) == 0 {
		log.Printf("research: job %s found nothing on the web", jobID)
		return nil, nil
	}

	corpus := buildCorpus(results)
	raw, err := a.oracle.Complete(ctx, oracle.ResearchPrompt(topic, corpus, now))
	if err != nil {
		return nil, fmt.Errorf("research: oracle call failed: %w", err)
	}

	candidates, err := oracle.ParseEventListResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("research: unparsable oracle output: %w", err)
	}

	var saved []*types.Event
	for _, event := range candidates {
		event.OwnerUserID = userID
		event.Source = types.SourceResearch
		event.EnsureEnd()

		if event.StartTime.Before(now) {
			continue
		}

		if _, err := a.store.Insert(ctx, event); err != nil {
			log.Printf("research: job %s skipped event %q: %v", jobID, event.Title, err)
			continue
		}
		saved = append(saved, event)
	}

	log.Printf("research: job %s saved %d of %d candidates", jobID, len(saved), len(candidates))
	return saved, nil
}

func buildCorpus(results []websearch.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "SOURCE %d: %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String()
}

// Package enrich runs the background enrichment pool: after an event is
// saved and confirmed, a worker searches the web for supplementary
// context and upgrades the confirmation message in place.
package enrich

import (
	"context"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kyrelim/pland/internal/gateway"
	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/internal/websearch"
	"github.com/kyrelim/pland/pkg/types"
)

// Job asks for one saved event to be enriched. Handle points at the
// confirmation message already delivered for it.
type Job struct {
	Event  *types.Event
	ChatID int64
	Handle gateway.MessageHandle
}

// RenderFunc builds the upgraded notification text for an enriched
// event. Injected so the pool stays independent of the formatting
// layer.
type RenderFunc func(event *types.Event, summary string) string

// Config holds the pool settings.
type Config struct {
	Workers         int
	QueueSize       int
	ShutdownTimeout time.Duration

	// Render builds the replacement message text.
	Render RenderFunc
}

// Pool is a fixed-size worker pool over a buffered job queue. Jobs are
// best-effort: a full queue drops the job, and any failure inside a
// worker is logged but never reaches the user as an error.
type Pool struct {
	store     storage.EventStore
	searcher  websearch.Searcher
	messenger gateway.Messenger

	queue           chan *Job
	wg              sync.WaitGroup
	shutdownTimeout time.Duration
	render          RenderFunc
}

// NewPool creates and starts the pool. A nil searcher disables
// enrichment entirely (Submit becomes a no-op).
func NewPool(cfg Config, store storage.EventStore, searcher websearch.Searcher, messenger gateway.Messenger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Render == nil {
		cfg.Render = func(event *types.Event, summary string) string { return summary }
	}

	p := &Pool{
		store:           store,
		searcher:        searcher,
		messenger:       messenger,
		queue:           make(chan *Job, cfg.QueueSize),
		shutdownTimeout: cfg.ShutdownTimeout,
		render:          cfg.Render,
	}

	if searcher == nil {
		log.Println("enrich: no search client configured, enrichment disabled")
		return p
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("enrich: started %d workers", cfg.Workers)
	return p
}

// Submit queues a job. Returns false when enrichment is disabled or the
// queue is full; the confirmation message simply stays as-is.
func (p *Pool) Submit(job *Job) bool {
	if p.searcher == nil {
		return false
	}
	select {
	case p.queue <- job:
		return true
	default:
		log.Printf("enrich: queue full, dropping job for event %d", job.Event.ID)
		return false
	}
}

// Stop closes the queue and waits for workers to drain, up to the
// shutdown timeout.
func (p *Pool) Stop() {
	close(p.queue)
	if p.searcher == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("enrich: all workers finished")
	case <-time.After(p.shutdownTimeout):
		log.Printf("enrich: shutdown timeout reached, %d jobs may be dropped", len(p.queue))
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.process(id, job)
	}
}

func (p *Pool) process(workerID int, job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := job.Event.Title
	if job.Event.Location != nil && *job.Event.Location != "" {
		query += " " + *job.Event.Location
	}

	results, err := p.searcher.Search(ctx, query, websearch.DepthBasic, 1)
	if err != nil {
		log.Printf("enrich: worker %d search failed for event %d: %v", workerID, job.Event.ID, err)
		return
	}
	if len(results) == 0 {
		return
	}

	top := results[0]
	enrichment := map[string]string{
		"summary": summarize(top.Content),
		"url":     top.URL,
	}
	if err := p.store.UpdateEnrichment(ctx, job.Event.ID, enrichment); err != nil {
		log.Printf("enrich: worker %d failed to persist enrichment for event %d: %v", workerID, job.Event.ID, err)
		return
	}

	// Two-phase notification: try to upgrade the confirmation in place,
	// fall back to a fresh message when the edit fails.
	text := p.render(job.Event, enrichment["summary"])
	if err := p.messenger.Edit(ctx, job.ChatID, job.Handle, text); err != nil {
		log.Printf("enrich: edit failed for event %d, sending new message: %v", job.Event.ID, err)
		if _, err := p.messenger.Send(ctx, job.ChatID, text); err != nil {
			log.Printf("enrich: fallback send also failed for event %d: %v", job.Event.ID, err)
		}
	}
}

// summarize truncates search content to a notification-sized snippet,
// backing off to a rune boundary so multi-byte text stays valid UTF-8.
func summarize(content string) string {
	const maxLen = 280
	if len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "…"
}

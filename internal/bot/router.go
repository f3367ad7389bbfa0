package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/kyrelim/pland/internal/engine"
	"github.com/kyrelim/pland/internal/enrich"
	"github.com/kyrelim/pland/internal/gateway"
	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/pkg/types"
)

// Briefer sends one user their next-day briefing on demand.
type Briefer interface {
	ForceBriefing(ctx context.Context, userID int64) error
}

// Researcher runs a topic-research job and returns the saved events.
type Researcher interface {
	Enabled() bool
	Scavenge(ctx context.Context, userID int64, topic string) ([]*types.Event, error)
}

// Enricher accepts background enrichment jobs for saved events.
type Enricher interface {
	Submit(job *enrich.Job) bool
}

// Router dispatches inbound messages: commands go to the private hub
// surface, everything else runs through the scheduling pipeline.
type Router struct {
	session   *engine.Session
	store     storage.EventStore
	messenger gateway.Messenger
	briefer   Briefer
	research  Researcher
	enricher  Enricher
	loc       *time.Location

	now func() time.Time
}

// NewRouter wires the router. briefer, research, and enricher may be nil
// when the respective feature is disabled.
func NewRouter(session *engine.Session, store storage.EventStore, messenger gateway.Messenger, briefer Briefer, research Researcher, enricher Enricher, loc *time.Location) *Router {
	if loc == nil {
		loc = time.Local
	}
	return &Router{
		session:   session,
		store:     store,
		messenger: messenger,
		briefer:   briefer,
		research:  research,
		enricher:  enricher,
		loc:       loc,
		now:       time.Now,
	}
}

// HandleMessage drives one inbound message to completion. It never
// returns an error; every failure ends as a logged, user-visible (or
// deliberately silent) notification.
func (r *Router) HandleMessage(ctx context.Context, msg *gateway.Message) {
	if cmd, args, ok := msg.IsCommand(); ok {
		if msg.IsPrivate() {
			r.handleCommand(ctx, msg, cmd, args)
		}
		// Commands in group chats are ignored; the bot is a listener
		// there, not a hub.
		return
	}

	r.runPipeline(ctx, msg)
}

func (r *Router) runPipeline(ctx context.Context, msg *gateway.Message) {
	outcome := r.session.ProcessMessage(ctx, msg.ChatID, msg.UserID, msg.Text)

	switch outcome.Kind {
	case engine.OutcomeDropped:
		// Deliberate no-op: small talk costs nothing.

	case engine.OutcomeCreated:
		handle, err := r.messenger.Send(ctx, msg.ChatID, ConfirmationMessage(outcome.Event))
		if err != nil {
			log.Printf("bot: failed to send confirmation for event %d: %v", outcome.Event.ID, err)
			return
		}
		if r.enricher != nil {
			r.enricher.Submit(&enrich.Job{Event: outcome.Event, ChatID: msg.ChatID, Handle: handle})
		}

	case engine.OutcomeUpdated:
		r.send(ctx, msg.ChatID, UpdatedMessage(outcome.Event))

	case engine.OutcomeConflict:
		r.send(ctx, msg.ChatID, ConflictMessage(outcome.Event, outcome.Conflicts))

	case engine.OutcomeUpdateIndeterminate:
		r.send(ctx, msg.ChatID, IndeterminateUpdateMessage())

	case engine.OutcomeExtractionFailed, engine.OutcomeStoreFailure:
		log.Printf("bot: message in chat %d failed (%s): %v", msg.ChatID, outcome.Kind, outcome.Err)
		r.send(ctx, msg.ChatID, GenericFailureMessage())

	default:
		log.Printf("bot: unknown outcome kind %q", outcome.Kind)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *gateway.Message, cmd, args string) {
	switch cmd {
	case "start", "help":
		r.send(ctx, msg.ChatID, HelpMessage())

	case "agenda":
		r.handleAgenda(ctx, msg)

	case "briefing":
		r.handleBriefing(ctx, msg)

	case "track":
		r.handleTrack(ctx, msg, args)

	case "clear":
		r.handleClear(ctx, msg, args)

	default:
		r.send(ctx, msg.ChatID, "Unknown command. Try /help.")
	}
}

func (r *Router) handleAgenda(ctx context.Context, msg *gateway.Message) {
	today := r.now().In(r.loc)
	events, err := r.store.QueryByUserAndDate(ctx, msg.UserID, today)
	if err != nil {
		log.Printf("bot: agenda query failed for user %d: %v", msg.UserID, err)
		r.send(ctx, msg.ChatID, GenericFailureMessage())
		return
	}
	r.send(ctx, msg.ChatID, AgendaMessage(today, events))
}

func (r *Router) handleBriefing(ctx context.Context, msg *gateway.Message) {
	if r.briefer == nil {
		r.send(ctx, msg.ChatID, "Briefings are disabled.")
		return
	}
	if err := r.briefer.ForceBriefing(ctx, msg.UserID); err != nil {
		log.Printf("bot: forced briefing failed for user %d: %v", msg.UserID, err)
		r.send(ctx, msg.ChatID, GenericFailureMessage())
	}
}

func (r *Router) handleTrack(ctx context.Context, msg *gateway.Message, topic string) {
	if r.research == nil || !r.research.Enabled() {
		r.send(ctx, msg.ChatID, "Topic research is disabled (no search API key configured).")
		return
	}
	if strings.TrimSpace(topic) == "" {
		r.send(ctx, msg.ChatID, "Usage: /track &lt;topic&gt;, e.g. /track gophercon 2026")
		return
	}

	// Two phases: a loading message now, edited into the result when the
	// slow research finishes. If the edit fails, fall back to sending.
	handle, err := r.messenger.Send(ctx, msg.ChatID,
		fmt.Sprintf("\U0001F50D Researching <b>%s</b>…", html.EscapeString(topic)))
	if err != nil {
		log.Printf("bot: failed to send loading message: %v", err)
		return
	}

	saved, err := r.research.Scavenge(ctx, msg.UserID, topic)
	var text string
	switch {
	case err != nil:
		log.Printf("bot: research for %q failed: %v", topic, err)
		text = GenericFailureMessage()
	case len(saved) == 0:
		text = fmt.Sprintf("\U0001F50D No upcoming events found for <b>%s</b>.", html.EscapeString(topic))
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "\U0001F50D Found %d upcoming events for <b>%s</b>:\n\n", len(saved), html.EscapeString(topic))
		for _, e := range saved {
			fmt.Fprintf(&b, "• <b>%s</b> — %s\n", html.EscapeString(e.Title), FormatTimeRange(e.StartTime, e.EndTime))
		}
		text = strings.TrimRight(b.String(), "\n")
	}

	if err := r.messenger.Edit(ctx, msg.ChatID, handle, text); err != nil {
		log.Printf("bot: edit of research result failed, sending new message: %v", err)
		r.send(ctx, msg.ChatID, text)
	}
}

func (r *Router) handleClear(ctx context.Context, msg *gateway.Message, args string) {
	date, err := r.parseClearDate(args)
	if err != nil {
		r.send(ctx, msg.ChatID, "Usage: /clear [date], e.g. /clear tomorrow or /clear 2026-09-01")
		return
	}

	deleted, err := r.store.DeleteByUserAndDate(ctx, msg.UserID, date)
	if err != nil {
		log.Printf("bot: clear failed for user %d: %v", msg.UserID, err)
		r.send(ctx, msg.ChatID, GenericFailureMessage())
		return
	}
	r.session.Memory().Forget(msg.ChatID)
	r.send(ctx, msg.ChatID, fmt.Sprintf("\U0001F9F9 Cleared %d events for %s and forgot recent context.",
		deleted, date.Format(dayLayout)))
}

// parseClearDate resolves the /clear argument: empty means today, and
// "today"/"tomorrow" or a YYYY-MM-DD date are accepted.
func (r *Router) parseClearDate(args string) (time.Time, error) {
	arg := strings.ToLower(strings.TrimSpace(args))
	today := r.now().In(r.loc)
	switch arg {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	return time.ParseInLocation("2006-01-02", arg, r.loc)
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if _, err := r.messenger.Send(ctx, chatID, text); err != nil {
		log.Printf("bot: send to chat %d failed: %v", chatID, err)
	}
}

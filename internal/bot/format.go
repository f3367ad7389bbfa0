// Package bot routes inbound messages to the scheduling pipeline or the
// private command surface, and renders pipeline outcomes as Telegram
// HTML notifications.
package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kyrelim/pland/pkg/types"
)

// maxConflictsShown caps how many overlapping events a conflict
// notification names before truncating.
const maxConflictsShown = 3

const (
	dayLayout     = "Mon, 2 Jan"
	dayTimeLayout = "Mon, 2 Jan 15:04"
	timeLayout    = "15:04"
)

// FormatTimeRange renders an interval, collapsing the date when start
// and end fall on the same day.
func FormatTimeRange(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s–%s", start.Format(dayTimeLayout), end.Format(timeLayout))
	}
	return fmt.Sprintf("%s – %s", start.Format(dayTimeLayout), end.Format(dayTimeLayout))
}

func eventLine(event *types.Event) string {
	line := fmt.Sprintf("<b>%s</b>\n\U0001F552 %s", html.EscapeString(event.Title),
		FormatTimeRange(event.StartTime, event.EndTime))
	if event.Location != nil && *event.Location != "" {
		line += fmt.Sprintf("\n\U0001F4CD %s", html.EscapeString(*event.Location))
	}
	return line
}

// ConfirmationMessage announces a newly saved event.
func ConfirmationMessage(event *types.Event) string {
	return "✅ Event saved!\n\n" + eventLine(event)
}

// UpdatedMessage announces an applied update.
func UpdatedMessage(event *types.Event) string {
	return "✏️ Event updated!\n\n" + eventLine(event)
}

// ConflictMessage explains a rejected save, naming the first few
// overlapping events with formatted times.
func ConflictMessage(candidate *types.Event, conflicts []*types.Event) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Schedule conflict!</b>\n\n")
	fmt.Fprintf(&b, "<b>%s</b> (%s) overlaps with:\n",
		html.EscapeString(candidate.Title),
		FormatTimeRange(candidate.StartTime, candidate.EndTime))

	shown := conflicts
	if len(shown) > maxConflictsShown {
		shown = shown[:maxConflictsShown]
	}
	for _, c := range shown {
		fmt.Fprintf(&b, "• <b>%s</b> — %s\n",
			html.EscapeString(c.Title), FormatTimeRange(c.StartTime, c.EndTime))
	}
	if extra := len(conflicts) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "…and %d more\n", extra)
	}
	b.WriteString("\nThe event was not saved.")
	return b.String()
}

// AgendaMessage renders a day's events for one user.
func AgendaMessage(date time.Time, events []*types.Event) string {
	if len(events) == 0 {
		return fmt.Sprintf("\U0001F4C5 Nothing scheduled for <b>%s</b>.", date.Format(dayLayout))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F4C5 <b>Agenda for %s</b>\n\n", date.Format(dayLayout))
	for _, e := range events {
		loc := ""
		if e.Location != nil && *e.Location != "" {
			loc = " @ " + html.EscapeString(*e.Location)
		}
		fmt.Fprintf(&b, "• %s–%s <b>%s</b>%s\n",
			e.StartTime.Format(timeLayout), e.EndTime.Format(timeLayout),
			html.EscapeString(e.Title), loc)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BriefingMessage renders the nightly briefing for tomorrow's events.
func BriefingMessage(date time.Time, events []*types.Event) string {
	if len(events) == 0 {
		return fmt.Sprintf("\U0001F319 Nothing on for <b>%s</b>. Enjoy the free evening!", date.Format(dayLayout))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F319 <b>Your plans for %s</b>\n\n", date.Format(dayLayout))
	for _, e := range events {
		loc := ""
		if e.Location != nil && *e.Location != "" {
			loc = " @ " + html.EscapeString(*e.Location)
		}
		fmt.Fprintf(&b, "• %s–%s <b>%s</b>%s\n",
			e.StartTime.Format(timeLayout), e.EndTime.Format(timeLayout),
			html.EscapeString(e.Title), loc)
	}
	return strings.TrimRight(b.String(), "\n")
}

// EnrichedMessage appends research findings to a confirmation.
func EnrichedMessage(event *types.Event, summary string) string {
	msg := ConfirmationMessage(event)
	if summary != "" {
		msg += "\n\n\U0001F50E " + html.EscapeString(summary)
	}
	return msg
}

// GenericFailureMessage covers extraction and store failures without
// leaking internals.
func GenericFailureMessage() string {
	return "\U0001F615 Sorry, I couldn't process that message. Try rephrasing it?"
}

// IndeterminateUpdateMessage asks for specifics when an update carries
// no concrete change.
func IndeterminateUpdateMessage() string {
	return "\U0001F914 It sounds like you want to change the last event, but I couldn't tell what to change. Try \"move it to 3pm\" or \"change the location to COM1\"."
}

// HelpMessage lists the private-chat commands.
func HelpMessage() string {
	return strings.Join([]string{
		"<b>pland</b> — chat scheduling assistant",
		"",
		"Add me to a group and mention plans (\"meet tomorrow 2pm at COM1\"); I'll track them and flag clashes.",
		"",
		"Private commands:",
		"/agenda — today's events",
		"/briefing — tomorrow's events now",
		"/track &lt;topic&gt; — research a topic and save upcoming events",
		"/clear [date] — delete that day's events (default today) and forget recent context",
		"/help — this message",
	}, "\n")
}

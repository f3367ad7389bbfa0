package oracle

import (
	"fmt"
	"time"

	"github.com/kyrelim/pland/pkg/types"
)

// referenceDateLayout renders the reference date the way a person would
// say it, which anchors relative phrases like "tomorrow" far more
// reliably than a bare ISO date.
const referenceDateLayout = "Monday, January 2, 2006"

// ExtractionPrompt builds the event extraction prompt. The reference date
// is pinned into the instructions so the oracle never falls back on its
// own unreliable sense of "now".
func ExtractionPrompt(text string, referenceDate time.Time) string {
	ref := referenceDate.Format(referenceDateLayout)
	return fmt.Sprintf(`TASK: Extract a single calendar event from a chat message.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

Today is %s.

DATE RULES:
- "tomorrow" means the day after %s
- "today" means %s
- "next Monday/Tuesday/etc." means the next occurrence of that day AFTER today
- "next week" means 7 days from today
- If no year is given, assume %d
- If no time of day is given, default to 09:00:00

REQUIRED JSON STRUCTURE:
{
  "title": "short event headline",
  "start_time": "YYYY-MM-DDTHH:MM:SS",
  "end_time": "YYYY-MM-DDTHH:MM:SS or null",
  "location": "place or null"
}

RULES:
1. "title" and "start_time" are required.
2. Timestamps MUST be ISO 8601 (YYYY-MM-DDTHH:MM:SS), no timezone suffix.
3. Use an explicit null for unknown fields, never omit them.
4. Do not invent details that are not in the message.

MESSAGE:
%s`, ref, ref, ref, referenceDate.Year(), text)
}

// UpdatePrompt builds the update classification prompt. The previous
// event's snapshot is supplied as context; the oracle must confirm the
// message is an edit of that event and report only the fields that
// changed.
func UpdatePrompt(text string, prev *types.Event, referenceDate time.Time) string {
	ref := referenceDate.Format(referenceDateLayout)
	location := "null"
	if prev.Location != nil {
		location = *prev.Location
	}
	return fmt.Sprintf(`TASK: Decide whether a chat message edits a previously planned event.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

Today is %s.

PREVIOUS EVENT:
- title: %s
- start_time: %s
- location: %s

REQUIRED JSON STRUCTURE:
{
  "is_update": true or false,
  "new_start_time": "YYYY-MM-DDTHH:MM:SS or null",
  "new_title": "string or null",
  "new_location": "string or null"
}

RULES:
1. "is_update" is true ONLY if the message revises THIS event, not a new plan.
2. Set a new_* field ONLY when the message changes that field; otherwise null.
3. Null means "unchanged", never "erase".
4. Resolve relative dates against today (%s), keeping the previous event's
   date when the message changes only the time of day.

MESSAGE:
%s`, ref, prev.Title, prev.StartTime.Format(types.TimeLayout), location, ref, text)
}

// ResearchPrompt builds the bulk extraction prompt for topic research.
// Unlike the single-event path, it asks for every event found in the
// search corpus and tolerates partial results.
func ResearchPrompt(topic, corpus string, referenceDate time.Time) string {
	return fmt.Sprintf(`TASK: Extract ALL specific events, deadlines, and dates related to '%s' from the provided text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

REQUIRED JSON STRUCTURE:
{
  "events": [
    {
      "title": "short event headline",
      "start_time": "YYYY-MM-DDTHH:MM:SS",
      "end_time": "YYYY-MM-DDTHH:MM:SS or null",
      "location": "place or null"
    }
  ]
}

RULES:
1. Timestamps MUST be ISO 8601 (YYYY-MM-DDTHH:MM:SS).
2. If no time of day is stated, use T09:00:00.
3. If the year is missing, assume %d.
4. Include end_time only when a duration is stated; otherwise null.
5. Extract as many relevant events as the text supports.

TEXT:
%s`, topic, referenceDate.Year(), corpus)
}

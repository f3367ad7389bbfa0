package oracle

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kyrelim/pland/pkg/types"
)

// eventResponse is the raw JSON shape the oracle returns for a single
// event. All fields arrive as strings; nothing is trusted until parsed.
type eventResponse struct {
	Title     string  `json:"title"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Location  *string `json:"location"`
}

// eventListResponse wraps the bulk research extraction result.
type eventListResponse struct {
	Events []eventResponse `json:"events"`
}

// updateResponse is the raw JSON shape for update classification.
type updateResponse struct {
	IsUpdate     bool    `json:"is_update"`
	NewStartTime *string `json:"new_start_time"`
	NewTitle     *string `json:"new_title"`
	NewLocation  *string `json:"new_location"`
}

// timestampLayouts are the accepted oracle timestamp forms, most specific
// first. A date-only value gets the default 09:00 hour.
var timestampLayouts = []string{
	types.TimeLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// extractJSON extracts the first complete JSON object from a string that
// may contain extra text. This handles oracles that add explanations or
// markdown fences around the JSON despite instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, let the parser fail with the raw text
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // no complete JSON object, return as-is
}

// parseTimestamp parses an oracle timestamp in any accepted layout into a
// local time. A bare date gets the default 09:00 hour.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t.Add(9 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseEventResponse parses a single-event extraction response into an
// Event. Title and start_time are required; a present-but-unparsable
// start_time is propagated flagged (StartTimeRaw set, zero StartTime) so
// the store-side validation rejects it instead of crashing the pipeline.
// Source, owner, and context notes are the caller's responsibility.
func ParseEventResponse(jsonStr string) (*types.Event, error) {
	cleanJSON := extractJSON(jsonStr)

	var resp eventResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse event JSON: %w", err)
	}

	return eventFromResponse(resp)
}

func eventFromResponse(resp eventResponse) (*types.Event, error) {
	title := strings.TrimSpace(resp.Title)
	if title == "" {
		return nil, fmt.Errorf("oracle returned no event title")
	}
	if strings.TrimSpace(resp.StartTime) == "" {
		return nil, fmt.Errorf("oracle returned no start time")
	}

	ev := &types.Event{Title: title}

	start, err := parseTimestamp(resp.StartTime)
	if err != nil {
		log.Printf("oracle: flagging unparsable start time %q", resp.StartTime)
		ev.StartTimeRaw = resp.StartTime
	} else {
		ev.StartTime = start
	}

	if resp.EndTime != nil && strings.TrimSpace(*resp.EndTime) != "" {
		end, err := parseTimestamp(*resp.EndTime)
		if err != nil {
			// A bad end time is recoverable: the defaulting step fills it in.
			log.Printf("oracle: dropping unparsable end time %q", *resp.EndTime)
		} else {
			ev.EndTime = end
		}
	}

	if resp.Location != nil {
		loc := strings.TrimSpace(*resp.Location)
		if loc != "" {
			ev.Location = &loc
		}
	}

	return ev, nil
}

// ParseUpdateResponse parses an update classification response. Every
// change field is optional; when is_update is false the change fields are
// discarded regardless of content. An unparsable new_start_time is
// treated as "unchanged" rather than corrupting the event.
func ParseUpdateResponse(jsonStr string) (types.UpdateAnalysis, error) {
	cleanJSON := extractJSON(jsonStr)

	var resp updateResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return types.UpdateAnalysis{}, fmt.Errorf("failed to parse update JSON: %w", err)
	}

	if !resp.IsUpdate {
		return types.UpdateAnalysis{IsUpdate: false}, nil
	}

	analysis := types.UpdateAnalysis{IsUpdate: true}

	if resp.NewStartTime != nil && strings.TrimSpace(*resp.NewStartTime) != "" {
		ts, err := parseTimestamp(*resp.NewStartTime)
		if err != nil {
			log.Printf("oracle: ignoring unparsable new start time %q", *resp.NewStartTime)
		} else {
			analysis.NewStartTime = &ts
		}
	}
	if resp.NewTitle != nil {
		title := strings.TrimSpace(*resp.NewTitle)
		if title != "" {
			analysis.NewTitle = &title
		}
	}
	if resp.NewLocation != nil {
		loc := strings.TrimSpace(*resp.NewLocation)
		if loc != "" {
			analysis.NewLocation = &loc
		}
	}

	return analysis, nil
}

// ParseEventListResponse parses a bulk research extraction response and
// filters out invalid entries. Items with a missing title, missing start
// time, or unparsable start time are skipped rather than failing the
// batch; only malformed JSON is an error.
func ParseEventListResponse(jsonStr string) ([]*types.Event, error) {
	cleanJSON := extractJSON(jsonStr)

	var resp eventListResponse
	if err := json.Unmarshal([]byte(cleanJSON), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse event list JSON: %w", err)
	}

	events := make([]*types.Event, 0, len(resp.Events))
	for i, raw := range resp.Events {
		ev, err := eventFromResponse(raw)
		if err != nil {
			log.Printf("oracle: skipping research event %d: %v", i, err)
			continue
		}
		if ev.TimeFlagged() {
			log.Printf("oracle: skipping research event %d with unparsable start %q", i, ev.StartTimeRaw)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

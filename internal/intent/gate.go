// Package intent implements the cheap, deterministic filter that decides
// whether a chat message is worth spending an oracle call on. It is pure
// string matching with no external calls.
package intent

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultEventWords is the built-in event vocabulary. It is deliberately
// biased toward recall: false positives only cost extra processing, but a
// false negative silently drops a real event.
var defaultEventWords = []string{
	"meet", "meeting", "event", "class", "lecture", "tutorial",
	"dinner", "lunch", "breakfast", "brunch", "appointment",
	"schedule", "deadline", "due", "exam", "quiz", "presentation",
	"tomorrow", "today", "tonight", "next week", "next",
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday",
	"am", "pm", "o'clock", "noon", "midnight",
	"cancel", "postpone", "reschedule",
}

// defaultUpdateTriggers is the narrower revision vocabulary. A word here
// implies the message revises something already said, which is what
// separates a follow-up edit from a fresh plan.
var defaultUpdateTriggers = []string{
	"actually", "move", "instead", "change", "changed",
	"edit", "correct", "correction", "shift", "push back",
	"bring forward", "make it", "rather",
}

// Gate approves or rejects messages for further processing.
type Gate struct {
	eventWords     []string
	updateTriggers []string
}

// NewGate returns a gate with the built-in vocabulary. Update triggers are
// also event words: a bare "actually move it" must pass the event gate so
// the update path can see it.
func NewGate() *Gate {
	return &Gate{
		eventWords:     append(append([]string{}, defaultEventWords...), defaultUpdateTriggers...),
		updateTriggers: defaultUpdateTriggers,
	}
}

// vocabularyFile is the YAML shape of a custom vocabulary file.
type vocabularyFile struct {
	EventWords     []string `yaml:"event_words"`
	UpdateTriggers []string `yaml:"update_triggers"`
}

// NewGateFromFile loads a custom vocabulary from a YAML file. An empty
// list in the file falls back to the corresponding built-in list, so a
// deployment can override just one of the two.
func NewGateFromFile(path string) (*Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intent: failed to read vocabulary file: %w", err)
	}

	var vf vocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("intent: failed to parse vocabulary file: %w", err)
	}

	g := NewGate()
	if len(vf.UpdateTriggers) > 0 {
		g.updateTriggers = normalize(vf.UpdateTriggers)
	}
	if len(vf.EventWords) > 0 {
		g.eventWords = append(normalize(vf.EventWords), g.updateTriggers...)
	}
	return g, nil
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// IsEventLike reports whether text contains any term from the event
// vocabulary, case-insensitively. No match means the message is dropped
// without an oracle call.
func (g *Gate) IsEventLike(text string) bool {
	return containsAny(text, g.eventWords)
}

// HasUpdateTrigger reports whether text contains any revision trigger.
// This is the local short-circuit of the update classifier: no trigger,
// no oracle call.
func (g *Gate) HasUpdateTrigger(text string) bool {
	return containsAny(text, g.updateTriggers)
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

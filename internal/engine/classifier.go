package engine

import (
	"context"
	"log"
	"time"

	"github.com/kyrelim/pland/internal/intent"
	"github.com/kyrelim/pland/internal/oracle"
	"github.com/kyrelim/pland/pkg/types"
)

// UpdateClassifier decides whether a message edits the previous event in
// its room. Two stages economize oracle calls: a local trigger-word scan
// short-circuits most messages, and only trigger-bearing text reaches
// the oracle.
type UpdateClassifier struct {
	gate   *intent.Gate
	oracle oracle.Oracle
	loc    *time.Location

	now func() time.Time
}

// NewUpdateClassifier creates a classifier sharing the intent gate's
// update-trigger vocabulary.
func NewUpdateClassifier(gate *intent.Gate, o oracle.Oracle, loc *time.Location) *UpdateClassifier {
	if loc == nil {
		loc = time.Local
	}
	return &UpdateClassifier{gate: gate, oracle: o, loc: loc, now: time.Now}
}

// Classify returns the update analysis for text against prev. Oracle
// failure classifies as not-an-update: treating the message as a fresh
// event is recoverable, silently corrupting an existing one is not.
func (c *UpdateClassifier) Classify(ctx context.Context, text string, prev *types.Event) types.UpdateAnalysis {
	if !c.gate.HasUpdateTrigger(text) {
		return types.UpdateAnalysis{}
	}

	raw, err := c.oracle.Complete(ctx, oracle.UpdatePrompt(text, prev, c.now().In(c.loc)))
	if err != nil {
		log.Printf("engine: update classification failed, treating as new event: %v", err)
		return types.UpdateAnalysis{}
	}

	analysis, err := oracle.ParseUpdateResponse(raw)
	if err != nil {
		log.Printf("engine: update response unparsable, treating as new event: %v", err)
		return types.UpdateAnalysis{}
	}
	return analysis
}

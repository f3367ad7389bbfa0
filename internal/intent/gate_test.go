package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEventLike_MatchesVocabulary(t *testing.T) {
	g := NewGate()

	positive := []string{
		"Let's meet tomorrow at 2pm at COM1",
		"CS2103 lecture on Friday",
		"dinner at 7?",
		"project deadline next week",
		"MEETING MOVED", // casing variation
		"Actually make it 3pm",
	}
	for _, text := range positive {
		assert.True(t, g.IsEventLike(text), "expected event-like: %q", text)
	}
}

func TestIsEventLike_RejectsSmallTalk(t *testing.T) {
	g := NewGate()

	negative := []string{
		"lol",
		"nice one",
		"did you watch the game?",
		"ok sure",
		"",
	}
	for _, text := range negative {
		assert.False(t, g.IsEventLike(text), "expected non-event: %q", text)
	}
}

func TestHasUpdateTrigger(t *testing.T) {
	g := NewGate()

	assert.True(t, g.HasUpdateTrigger("Actually, let's change it to 3pm instead"))
	assert.True(t, g.HasUpdateTrigger("move it to Friday"))
	assert.True(t, g.HasUpdateTrigger("CORRECTION: 4pm not 2pm"))

	// A fresh plan carries no revision language.
	assert.False(t, g.HasUpdateTrigger("Dinner at 7pm tomorrow at Deck"))
	assert.False(t, g.HasUpdateTrigger("meet at 2pm"))
}

// Update triggers must pass the event gate too, or follow-up edits like
// "actually move it to 3pm" would be dropped before classification.
func TestUpdateTriggersAreEventLike(t *testing.T) {
	g := NewGate()
	assert.True(t, g.IsEventLike("actually, scrap that"))
}

func TestNewGateFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := []byte(`
event_words:
  - standup
  - retro
update_triggers:
  - scratch that
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	g, err := NewGateFromFile(path)
	require.NoError(t, err)

	assert.True(t, g.IsEventLike("daily STANDUP"))
	assert.True(t, g.HasUpdateTrigger("scratch that, 4pm"))
	// Custom event words replace the built-ins.
	assert.False(t, g.IsEventLike("let's meet tomorrow"))
	// Custom triggers are still event-like.
	assert.True(t, g.IsEventLike("scratch that"))
}

func TestNewGateFromFile_EmptyListsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_words: []\n"), 0o644))

	g, err := NewGateFromFile(path)
	require.NoError(t, err)
	assert.True(t, g.IsEventLike("meet tomorrow"))
	assert.True(t, g.HasUpdateTrigger("actually"))
}

func TestNewGateFromFile_MissingFile(t *testing.T) {
	_, err := NewGateFromFile("/nonexistent/vocab.yaml")
	assert.Error(t, err)
}

func TestNewGateFromFile_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_words: {oops"), 0o644))

	_, err := NewGateFromFile(path)
	assert.Error(t, err)
}

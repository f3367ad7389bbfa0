// Package sqlite provides the SQLite implementation of the event store.
package sqlite

// Schema contains the SQL statements to create the database schema for SQLite.
// Timestamps are stored as TEXT in the local-naive layout so that the overlap
// predicate can compare them lexicographically.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    location TEXT,
    owner_user_id INTEGER NOT NULL,
    source TEXT NOT NULL DEFAULT 'conversation',
    context_notes TEXT,
    enrichment TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Conflict detection and briefing queries are always scoped by owner and
-- filtered by time range.
CREATE INDEX IF NOT EXISTS idx_events_owner_start ON events(owner_user_id, start_time);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);
`

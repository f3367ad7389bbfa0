// Package postgres provides a PostgreSQL implementation of the event store.
package postgres

// Schema contains the SQL statements to create the database schema for
// PostgreSQL. All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    location TEXT,
    owner_user_id BIGINT NOT NULL,
    source TEXT NOT NULL DEFAULT 'conversation',
    context_notes TEXT,
    enrichment JSONB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_owner_start ON events(owner_user_id, start_time);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);
`

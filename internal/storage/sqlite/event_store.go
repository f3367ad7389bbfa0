package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kyrelim/pland/internal/storage"
	"github.com/kyrelim/pland/pkg/types"
)

// EventStore implements storage.EventStore using SQLite.
type EventStore struct {
	db *sql.DB
}

// NewEventStore opens a SQLite database, configures WAL mode, and creates
// the schema.
func NewEventStore(dsn string) (*EventStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Connections live for the lifetime of the store.

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout so that callers wait instead of getting an immediate
	// SQLITE_BUSY error when the connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EventStore{db: db}, nil
}

// Insert validates and persists a new event, returning the assigned id.
func (s *EventStore) Insert(ctx context.Context, event *types.Event) (int64, error) {
	if event == nil {
		return 0, storage.ErrInvalidInput
	}
	if err := event.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	enrichmentJSON, err := marshalEnrichment(event.Enrichment)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO events (
			title, start_time, end_time, location, owner_user_id,
			source, context_notes, enrichment, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		event.Title,
		event.StartTime.Format(types.TimeLayout),
		event.EndTime.Format(types.TimeLayout),
		nullableString(event.Location),
		event.OwnerUserID,
		event.Source,
		nullableString(event.ContextNotes),
		enrichmentJSON,
		event.CreatedAt.Format(types.TimeLayout),
		event.UpdatedAt.Format(types.TimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}

	event.ID = id
	return id, nil
}

const selectColumns = `
	id, title, start_time, end_time, location, owner_user_id,
	source, context_notes, enrichment, created_at, updated_at
`

// Get retrieves an event by id.
func (s *EventStore) Get(ctx context.Context, id int64) (*types.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM events WHERE id = ?`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// Update applies a partial field overwrite and returns the updated event.
// The read-modify-write runs in a transaction so a concurrent update can't
// interleave between the read and the write.
func (s *EventStore) Update(ctx context.Context, id int64, partial storage.PartialEvent) (*types.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + selectColumns + ` FROM events WHERE id = ?`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event for update: %w", err)
	}

	if partial.Title != nil {
		event.Title = *partial.Title
	}
	if partial.StartTime != nil {
		event.StartTime = *partial.StartTime
	}
	if partial.EndTime != nil {
		event.EndTime = *partial.EndTime
	}
	if partial.Location != nil {
		event.Location = partial.Location
	}
	event.UpdatedAt = time.Now()

	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET title = ?, start_time = ?, end_time = ?, location = ?, updated_at = ?
		WHERE id = ?`,
		event.Title,
		event.StartTime.Format(types.TimeLayout),
		event.EndTime.Format(types.TimeLayout),
		nullableString(event.Location),
		event.UpdatedAt.Format(types.TimeLayout),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return event, nil
}

// QueryOverlaps returns the events owned by userID that overlap [start, end)
// under the half-open rule. Events that merely touch at an endpoint are not
// overlaps.
func (s *EventStore) QueryOverlaps(ctx context.Context, userID int64, start, end time.Time) ([]*types.Event, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM events
		WHERE owner_user_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID,
		end.Format(types.TimeLayout), start.Format(types.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query overlaps: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// QueryByUserAndDate returns the user's events starting on the given calendar
// day, ordered by start time.
func (s *EventStore) QueryByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*types.Event, error) {
	dayStart, dayEnd := dayBounds(date)

	query := `
		SELECT ` + selectColumns + `
		FROM events
		WHERE owner_user_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by date: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// QueryUsersWithEventsOn returns the distinct owners with at least one event
// starting on the given calendar day.
func (s *EventStore) QueryUsersWithEventsOn(ctx context.Context, date time.Time) ([]int64, error) {
	dayStart, dayEnd := dayBounds(date)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner_user_id
		FROM events
		WHERE start_time >= ? AND start_time < ?
		ORDER BY owner_user_id`, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with events: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// DeleteByUserAndDate removes the user's events on the given calendar day.
func (s *EventStore) DeleteByUserAndDate(ctx context.Context, userID int64, date time.Time) (int64, error) {
	dayStart, dayEnd := dayBounds(date)

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM events
		WHERE owner_user_id = ? AND start_time >= ? AND start_time < ?`,
		userID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.RowsAffected()
}

// UpdateEnrichment attaches supplementary data to an existing event.
func (s *EventStore) UpdateEnrichment(ctx context.Context, id int64, enrichment map[string]string) error {
	enrichmentJSON, err := marshalEnrichment(enrichment)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET enrichment = ?, updated_at = ? WHERE id = ?`,
		enrichmentJSON, time.Now().Format(types.TimeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*types.Event, error) {
	var (
		event                          types.Event
		startStr, endStr               string
		createdStr, updatedStr         string
		location, notes, enrichmentStr sql.NullString
	)

	err := row.Scan(
		&event.ID, &event.Title, &startStr, &endStr, &location,
		&event.OwnerUserID, &event.Source, &notes, &enrichmentStr,
		&createdStr, &updatedStr,
	)
	if err != nil {
		return nil, err
	}

	if event.StartTime, err = time.ParseInLocation(types.TimeLayout, startStr, time.Local); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.EndTime, err = time.ParseInLocation(types.TimeLayout, endStr, time.Local); err != nil {
		return nil, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if event.CreatedAt, err = time.ParseInLocation(types.TimeLayout, createdStr, time.Local); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.ParseInLocation(types.TimeLayout, updatedStr, time.Local); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if location.Valid {
		event.Location = &location.String
	}
	if notes.Valid {
		event.ContextNotes = &notes.String
	}
	if enrichmentStr.Valid && enrichmentStr.String != "" {
		if err := json.Unmarshal([]byte(enrichmentStr.String), &event.Enrichment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enrichment: %w", err)
		}
	}

	return &event, nil
}

func collectEvents(rows *sql.Rows) ([]*types.Event, error) {
	var events []*types.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// dayBounds returns the formatted [midnight, next midnight) range for the
// calendar day containing date, in date's location.
func dayBounds(date time.Time) (string, string) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start.Format(types.TimeLayout), start.AddDate(0, 0, 1).Format(types.TimeLayout)
}

func marshalEnrichment(enrichment map[string]string) (interface{}, error) {
	if len(enrichment) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(enrichment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enrichment: %w", err)
	}
	return string(data), nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

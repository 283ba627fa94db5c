package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// SQLiteStore implements Store using SQLite. The canonical event is stored
// as a JSON document; indexed columns exist for the fields queries filter on.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
	mu       sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based event store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
// capacity <= 0 selects DefaultCapacity.
func NewSQLiteStore(dbPath string, capacity int) (*SQLiteStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db, capacity: capacity}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		pr_number INTEGER,
		repository TEXT,
		document BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_event_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_repository ON events(repository);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts the event and trims rows beyond capacity, oldest first.
func (s *SQLiteStore) Append(ctx context.Context, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (event_type, pr_number, repository, document) VALUES (?, ?, ?, ?)",
		ev.EventType, ev.PRNumber, ev.Repository.FullName, doc,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)",
		s.capacity,
	)
	if err != nil {
		return fmt.Errorf("trim events: %w", err)
	}

	return nil
}

// List returns the retained log in arrival order, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT document FROM events ORDER BY id")
	if err != nil {
		// Missing table or unreadable database reads as an empty log.
		return nil, nil
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev event.Event
		if err := json.Unmarshal(doc, &ev); err != nil {
			// Skip rows that no longer parse rather than failing reads.
			continue
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Latest returns the most recently inserted event, or nil when empty.
func (s *SQLiteStore) Latest(ctx context.Context) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT document FROM events ORDER BY id DESC LIMIT 1").Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest event: %w", err)
	}
	var ev event.Event
	if err := json.Unmarshal(doc, &ev); err != nil {
		return nil, nil
	}
	return &ev, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

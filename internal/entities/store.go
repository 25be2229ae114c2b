// Package entities persists the intelligence gathered during meetings:
// companies and people surfaced by research workflows and calendar
// events pulled by availability checks. Entities are stored in SQLite
// so meeting context survives restarts.
package entities

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists meeting entities in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the entity database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open entity database: %w", err)
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database handle, running migrations on
// first use.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate entities: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS companies (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS persons (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS calendar_events (
			id          TEXT PRIMARY KEY,
			data        TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_recorded ON calendar_events(recorded_at);
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCompany upserts one company record keyed by name. The latest
// research result for a name replaces the previous one.
func (s *Store) SaveCompany(name string, data map[string]any) error {
	return s.upsertNamed("companies", name, data)
}

// SavePerson upserts one person record keyed by name.
func (s *Store) SavePerson(name string, data map[string]any) error {
	return s.upsertNamed("persons", name, data)
}

func (s *Store) upsertNamed(table, name string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO `+table+` (id, name, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		uuid.NewString(), name, string(payload), time.Now().UTC(),
	)
	return err
}

// SaveEvents appends calendar events observed during a meeting.
func (s *Store) SaveEvents(events []map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO calendar_events (id, data, recorded_at) VALUES (?, ?, ?)`,
			uuid.NewString(), string(payload), now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Company returns the stored record for a company name.
func (s *Store) Company(name string) (map[string]any, error) {
	return s.namedRecord("companies", name)
}

// Person returns the stored record for a person name.
func (s *Store) Person(name string) (map[string]any, error) {
	return s.namedRecord("persons", name)
}

func (s *Store) namedRecord(table, name string) (map[string]any, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT data FROM `+table+` WHERE name = ?`, name,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return data, nil
}

// CompanyNames lists stored company names, most recently updated first.
func (s *Store) CompanyNames() ([]string, error) {
	return s.names("companies")
}

// PersonNames lists stored person names, most recently updated first.
func (s *Store) PersonNames() ([]string, error) {
	return s.names("persons")
}

func (s *Store) names(table string) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM ` + table + ` ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Events returns all recorded calendar events, oldest first.
func (s *Store) Events() ([]map[string]any, error) {
	rows, err := s.db.Query(`SELECT data FROM calendar_events ORDER BY recorded_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []map[string]any
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

package toolbox

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoteNotFound is returned when a note id does not exist.
var ErrNoteNotFound = errors.New("note not found")

// Store provides SQLite-backed storage for notes.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dbPath and
// ensures the notes table exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createTable(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT    NOT NULL,
			body       TEXT    NOT NULL DEFAULT '',
			tags       TEXT    NOT NULL DEFAULT '',
			created_at TEXT    NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a note and returns it with the assigned ID.
func (s *Store) Add(n Note) (*Note, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return nil, errors.New("title must not be empty")
	}
	n.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.db.Exec(`
		INSERT INTO notes (title, body, tags, created_at)
		VALUES (?, ?, ?, ?)
	`, n.Title, n.Body, n.Tags, n.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted ID: %w", err)
	}
	n.ID = id

	return &n, nil
}

// List returns notes oldest first. A non-empty tag keeps only notes whose
// comma-separated tags contain it.
func (s *Store) List(tag string) ([]Note, error) {
	rows, err := s.db.Query(`
		SELECT id, title, body, tags, created_at
		FROM notes ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Tags, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		if tag != "" && !hasTag(n.Tags, tag) {
			continue
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Delete removes a note by ID.
func (s *Store) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNoteNotFound, id)
	}
	return nil
}

func hasTag(tags, tag string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

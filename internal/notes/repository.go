// Package notes is a small notes API served behind the response cache.
//
// Reads (GET /notes, GET /notes/{id}) are cacheable. Every write purges the
// "/notes" prefix, so the next read after a mutation reaches the database.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// ErrNotFound indicates the requested note does not exist.
var ErrNotFound = errors.New("note not found")

// Note is a single stored note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores notes in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and migrates) the notes database at dsn.
func Open(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// every connection to ":memory:" is a separate database
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create notes table: %w", err)
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS notes_created_idx ON notes (created_at)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create notes index: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List returns all notes, oldest first.
func (r *Repository) List(ctx context.Context) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM notes ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns the note with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (Note, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM notes WHERE id = ?", id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

// Create stores a new note with a generated id.
func (r *Repository) Create(ctx context.Context, title, body string) (Note, error) {
	now := r.now().UTC()
	n := Note{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notes (id, title, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.Title, n.Body, now.UnixNano(), now.UnixNano())
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

// Update replaces the title and body of an existing note.
func (r *Repository) Update(ctx context.Context, id, title, body string) (Note, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, body = ?, updated_at = ? WHERE id = ?",
		title, body, now.UnixNano(), id)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return Note{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (Note, error) {
	var (
		n                Note
		created, updated int64
	)
	if err := s.Scan(&n.ID, &n.Title, &n.Body, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, err
		}
		return Note{}, fmt.Errorf("scan note: %w", err)
	}
	n.CreatedAt = time.Unix(0, created).UTC()
	n.UpdatedAt = time.Unix(0, updated).UTC()
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

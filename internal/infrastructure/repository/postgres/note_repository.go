package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inkfold/notecore/internal/core/domain"
)

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *NoteRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	folder_id TEXT,
	documents JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_folder_id ON notes(folder_id);
CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) error {
	docsJSON, err := json.Marshal(note.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	if note.Documents == nil {
		docsJSON = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO notes (id, title, body, folder_id, documents, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		note.ID, note.Title, note.Text, nullable(note.FolderID), docsJSON, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, body, folder_id, documents, created_at, updated_at
FROM notes
WHERE id = $1
`, id)

	note, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNoteNotFound, "get note", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return note, nil
}

func (r *NoteRepository) UpdateText(ctx context.Context, id, text string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE notes SET body = $2, updated_at = NOW() WHERE id = $1
`, id, text)
	if err != nil {
		return fmt.Errorf("update note text: %w", err)
	}
	return requireRow(res, id, "update note text")
}

func (r *NoteRepository) SaveDocuments(ctx context.Context, id string, docs []domain.Document) error {
	docsJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	if docs == nil {
		docsJSON = []byte("[]")
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE notes SET documents = $2, updated_at = NOW() WHERE id = $1
`, id, docsJSON)
	if err != nil {
		return fmt.Errorf("save note documents: %w", err)
	}
	return requireRow(res, id, "save note documents")
}

// Iterate streams the corpus row by row for similarity scans. The
// callback's error aborts the scan and is returned unchanged.
func (r *NoteRepository) Iterate(ctx context.Context, fn func(locator string, note *domain.Note) error) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, body, folder_id, documents, created_at, updated_at
FROM notes
ORDER BY updated_at DESC
`)
	if err != nil {
		return fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return fmt.Errorf("scan note: %w", err)
		}
		if err := fn("notes/"+note.ID, note); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate notes: %w", err)
	}
	return nil
}

func scanNote(scan func(dest ...any) error) (*domain.Note, error) {
	var note domain.Note
	var folderID sql.NullString
	var docsRaw []byte

	if err := scan(&note.ID, &note.Title, &note.Text, &folderID, &docsRaw, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}
	note.FolderID = folderID.String
	if len(docsRaw) > 0 {
		if err := json.Unmarshal(docsRaw, &note.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
	}
	return &note, nil
}

func requireRow(res sql.Result, id, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNoteNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

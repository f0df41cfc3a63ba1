package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const docColumns = `id, session_id, role, file_name, mime_type, size_bytes, storage_key, extracted_text, status, error_message, created_at`

// Upsert inserts doc, replacing an existing technical spec or a same-named
// proposal while keeping the replaced row's position in upload order.
func (r *PGRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()

	const findQuery = `
SELECT id, created_at
FROM documents
WHERE session_id = $1 AND role = $2 AND (role = 'tz' OR file_name = $3)
LIMIT 1`

	var existingID string
	var existingCreatedAt sql.NullTime
	err = tx.QueryRowContext(ctx, findQuery, doc.SessionID, doc.Role, doc.FileName).
		Scan(&existingID, &existingCreatedAt)
	switch {
	case err == nil:
		const updateQuery = `
UPDATE documents
SET file_name = $1, mime_type = $2, size_bytes = $3, storage_key = $4,
    extracted_text = $5, status = $6, error_message = $7
WHERE id = $8`
		if _, err := tx.ExecContext(ctx, updateQuery,
			doc.FileName, doc.MimeType, doc.SizeBytes, doc.StorageKey,
			doc.ExtractedText, doc.Status, nullString(doc.ErrorMessage),
			existingID,
		); err != nil {
			return Document{}, err
		}
		doc.ID = existingID
		if existingCreatedAt.Valid {
			doc.CreatedAt = existingCreatedAt.Time
		}
	case errors.Is(err, sql.ErrNoRows):
		const insertQuery = `
INSERT INTO documents (id, session_id, role, file_name, mime_type, size_bytes, storage_key, extracted_text, status, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if _, err := tx.ExecContext(ctx, insertQuery,
			doc.ID, doc.SessionID, doc.Role, doc.FileName, doc.MimeType,
			doc.SizeBytes, doc.StorageKey, doc.ExtractedText, doc.Status,
			nullString(doc.ErrorMessage), doc.CreatedAt,
		); err != nil {
			return Document{}, err
		}
	default:
		return Document{}, err
	}

	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Update overwrites the mutable fields of a stored document.
func (r *PGRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET mime_type = $1, size_bytes = $2, storage_key = $3, extracted_text = $4,
    status = $5, error_message = $6
WHERE id = $7 AND session_id = $8`

	res, err := r.DB.ExecContext(ctx, query,
		doc.MimeType, doc.SizeBytes, doc.StorageKey, doc.ExtractedText,
		doc.Status, nullString(doc.ErrorMessage), doc.ID, doc.SessionID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a document by ID within a session.
func (r *PGRepo) GetByID(ctx context.Context, sessionID, docID string) (Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE session_id = $1 AND id = $2
LIMIT 1`

	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, sessionID, docID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Delete removes a document from its session.
func (r *PGRepo) Delete(ctx context.Context, sessionID, docID string) error {
	const query = `DELETE FROM documents WHERE session_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, sessionID, docID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySession returns the session's documents in upload order.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string) ([]Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE session_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteBySession drops every document belonging to a session.
func (r *PGRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM documents WHERE session_id = $1`
	_, err := r.DB.ExecContext(ctx, query, sessionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var storageKey, extractedText, errorMessage sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.SessionID,
		&doc.Role,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&storageKey,
		&extractedText,
		&doc.Status,
		&errorMessage,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.StorageKey = storageKey.String
	doc.ExtractedText = extractedText.String
	doc.ErrorMessage = errorMessage.String
	return doc, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"proposal-backend/internal/session"
	"proposal-backend/internal/shared/telemetry"
)

// PGRepo implements Repo using Postgres. Results and the comparison are kept
// together in a JSONB payload column; a payload that no longer parses is
// treated as empty rather than failing the whole read.
type PGRepo struct {
	DB *sql.DB
}

type payload struct {
	Results    []session.AnalysisResult  `json:"results"`
	Comparison *session.ComparisonResult `json:"comparisonResult"`
}

// Insert stores item and prunes rows beyond the newest MaxItems.
func (r *PGRepo) Insert(ctx context.Context, item Item) error {
	blob, err := json.Marshal(payload{Results: item.Results, Comparison: item.Comparison})
	if err != nil {
		return err
	}

	const insertQuery = `
INSERT INTO history_items (id, name, tz_name, kp_count, avg_score, status, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.DB.ExecContext(ctx, insertQuery,
		item.ID, item.Name, item.TZName, item.KPCount, item.AvgScore,
		item.Status, blob, item.Date,
	); err != nil {
		return err
	}

	const pruneQuery = `
DELETE FROM history_items
WHERE id NOT IN (
    SELECT id FROM history_items ORDER BY created_at DESC, id DESC LIMIT $1
)`
	_, err = r.DB.ExecContext(ctx, pruneQuery, MaxItems)
	return err
}

// List returns items newest first.
func (r *PGRepo) List(ctx context.Context) ([]Item, error) {
	const query = `
SELECT id, name, tz_name, kp_count, avg_score, status, payload, created_at
FROM history_items
ORDER BY created_at DESC, id DESC
LIMIT $1`

	rows, err := r.DB.QueryContext(ctx, query, MaxItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetByID returns one item.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Item, error) {
	const query = `
SELECT id, name, tz_name, kp_count, avg_score, status, payload, created_at
FROM history_items
WHERE id = $1
LIMIT 1`

	item, err := scanItem(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// Clear wipes the whole table.
func (r *PGRepo) Clear(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM history_items`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var blob []byte
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.TZName,
		&item.KPCount,
		&item.AvgScore,
		&item.Status,
		&blob,
		&item.Date,
	); err != nil {
		return Item{}, err
	}

	var p payload
	if err := json.Unmarshal(blob, &p); err != nil {
		telemetry.Error("history.payload.decode", map[string]any{
			"history_id": item.ID,
			"error":      err.Error(),
		})
		item.Results = []session.AnalysisResult{}
		return item, nil
	}
	item.Results = p.Results
	item.Comparison = p.Comparison
	return item, nil
}

var _ Repo = (*PGRepo)(nil)

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ReadActions returns every action ordered by seq, then id.
func (s *Store) ReadActions(ctx context.Context) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, shape, payload, digest, runtime_version
		FROM actions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	records := []ActionRecord{}
	for rows.Next() {
		var rec ActionRecord
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.Kind, &rec.Shape, &rec.Payload, &rec.Digest, &rec.RuntimeVersion); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return records, nil
}

// ReadAction returns the action with id.
func (s *Store) ReadAction(ctx context.Context, id string) (ActionRecord, error) {
	var rec ActionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, kind, shape, payload, digest, runtime_version
		FROM actions
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Seq, &rec.Kind, &rec.Shape, &rec.Payload, &rec.Digest, &rec.RuntimeVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("read action %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("read action %s: %w", id, err)
	}
	return rec, nil
}

// ReadChanges returns change events ordered by seq, then row ID. An empty
// store name returns every store's events.
func (s *Store) ReadChanges(ctx context.Context, store string) ([]ChangeRecord, error) {
	query := `
		SELECT id, store, seq, event_type, fields
		FROM changes
	`
	var args []any
	if store != "" {
		query += " WHERE store = ?"
		args = append(args, store)
	}
	query += " ORDER BY seq ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	records := []ChangeRecord{}
	for rows.Next() {
		var rec ChangeRecord
		if err := rows.Scan(&rec.ID, &rec.Store, &rec.Seq, &rec.EventType, &rec.Fields); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return records, nil
}

// Stats summarizes a journal.
type Stats struct {
	Actions int64            `json:"actions"`
	Changes int64            `json:"changes"`
	LastSeq int64            `json:"last_seq"`
	ByKind  map[string]int64 `json:"by_kind"`
}

// Stats counts the journal's records.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByKind: map[string]int64{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seq), 0) FROM actions
	`).Scan(&st.Actions, &st.LastSeq)
	if err != nil {
		return st, fmt.Errorf("count actions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&st.Changes); err != nil {
		return st, fmt.Errorf("count changes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM actions GROUP BY kind ORDER BY kind
	`)
	if err != nil {
		return st, fmt.Errorf("count kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return st, fmt.Errorf("scan kind count: %w", err)
		}
		st.ByKind[kind] = n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate kind counts: %w", err)
	}
	return st, nil
}

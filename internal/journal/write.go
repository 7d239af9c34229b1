package journal

import (
	"context"
	"fmt"
)

// WriteAction inserts an action record. Duplicate IDs are ignored.
func (s *Store) WriteAction(ctx context.Context, rec ActionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actions
		(id, seq, kind, shape, payload, digest, runtime_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.Kind,
		rec.Shape,
		rec.Payload,
		rec.Digest,
		rec.RuntimeVersion,
	)
	if err != nil {
		return fmt.Errorf("write action: %w", err)
	}
	return nil
}

// WriteChange inserts a change record and returns its row ID.
func (s *Store) WriteChange(ctx context.Context, rec ChangeRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO changes
		(store, seq, event_type, fields)
		VALUES (?, ?, ?, ?)
	`,
		rec.Store,
		rec.Seq,
		rec.EventType,
		rec.Fields,
	)
	if err != nil {
		return 0, fmt.Errorf("write change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write change: %w", err)
	}
	return id, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/rendersync/internal/component"
)

// WriteFlush inserts a flush record into the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// The patch is serialized to canonical JSON per RFC 8785 and stored with
// its hash.
func (s *Store) WriteFlush(ctx context.Context, f component.Flush) error {
	patchJSON, hash, err := marshalPatch(f.Patch)
	if err != nil {
		return fmt.Errorf("write flush: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flushes
		(id, seq, component, uid, mounted, patch, patch_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Seq,
		f.Component,
		f.UID,
		f.Mounted,
		patchJSON,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write flush: %w", err)
	}

	return nil
}

// WriteEvent inserts an event record into the journal.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency.
//
// Note: a non-empty FlushID must reference a journaled flush (foreign key
// constraint).
func (s *Store) WriteEvent(ctx context.Context, e component.Event) error {
	var flushID sql.NullString
	if e.FlushID != "" {
		flushID = sql.NullString{String: e.FlushID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(seq, component, uid, kind, flush_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		e.Seq,
		e.Component,
		e.UID,
		string(e.Kind),
		flushID,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// RecordFlush implements component.Recorder.
func (s *Store) RecordFlush(ctx context.Context, f component.Flush) error {
	return s.WriteFlush(ctx, f)
}

// RecordEvent implements component.Recorder.
func (s *Store) RecordEvent(ctx context.Context, e component.Event) error {
	return s.WriteEvent(ctx, e)
}

var _ component.Recorder = (*Store)(nil)

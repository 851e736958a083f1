package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/rendersync/internal/component"
)

// FlushRecord is a journaled flush with its stored patch hash.
type FlushRecord struct {
	component.Flush
	Hash string
}

// ReadFlush retrieves a single flush by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadFlush(ctx context.Context, id string) (FlushRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, component, uid, mounted, patch, patch_hash
		FROM flushes
		WHERE id = ?
	`, id)

	return scanFlush(row)
}

// ReadAllFlushes returns all flushes ordered by seq.
func (s *Store) ReadAllFlushes(ctx context.Context) ([]FlushRecord, error) {
	return s.queryFlushes(ctx, `
		SELECT id, seq, component, uid, mounted, patch, patch_hash
		FROM flushes
		ORDER BY seq ASC
	`)
}

// ReadFlushesFor returns the flushes of one instance ordered by seq.
func (s *Store) ReadFlushesFor(ctx context.Context, uid int64) ([]FlushRecord, error) {
	return s.queryFlushes(ctx, `
		SELECT id, seq, component, uid, mounted, patch, patch_hash
		FROM flushes
		WHERE uid = ?
		ORDER BY seq ASC
	`, uid)
}

func (s *Store) queryFlushes(ctx context.Context, query string, args ...any) ([]FlushRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flushes: %w", err)
	}
	defer rows.Close()

	flushes := []FlushRecord{}
	for rows.Next() {
		f, err := scanFlush(rows)
		if err != nil {
			return nil, err
		}
		flushes = append(flushes, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flushes: %w", err)
	}

	return flushes, nil
}

// ReadAllEvents returns all events ordered by seq.
func (s *Store) ReadAllEvents(ctx context.Context) ([]component.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, component, uid, kind, flush_id
		FROM events
		ORDER BY seq ASC
	`)
}

// ReadEventsFor returns the events of one instance ordered by seq.
func (s *Store) ReadEventsFor(ctx context.Context, uid int64) ([]component.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, component, uid, kind, flush_id
		FROM events
		WHERE uid = ?
		ORDER BY seq ASC
	`, uid)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]component.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []component.Event{}
	for rows.Next() {
		var e component.Event
		var kind string
		var flushID sql.NullString
		if err := rows.Scan(&e.Seq, &e.Component, &e.UID, &kind, &flushID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = component.EventKind(kind)
		e.FlushID = flushID.String
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFlush scans a row into a FlushRecord.
func scanFlush(row scanner) (FlushRecord, error) {
	var f FlushRecord
	var patchJSON string

	if err := row.Scan(&f.ID, &f.Seq, &f.Component, &f.UID, &f.Mounted, &patchJSON, &f.Hash); err != nil {
		if err == sql.ErrNoRows {
			return f, err
		}
		return f, fmt.Errorf("scan flush: %w", err)
	}

	patch, err := unmarshalPatch(patchJSON)
	if err != nil {
		return f, fmt.Errorf("scan flush %s: %w", f.ID, err)
	}
	f.Patch = patch
	return f, nil
}

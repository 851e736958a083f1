package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
)

// Entry is one item of a merged timeline: a flush or an event.
type Entry struct {
	Seq   int64
	Flush *FlushRecord
	Event *component.Event
}

// Kind returns "flush" or the event kind.
func (e Entry) Kind() string {
	if e.Flush != nil {
		return "flush"
	}
	if e.Event != nil {
		return string(e.Event.Kind)
	}
	return "unknown"
}

// Timeline returns flushes and events of one instance (uid > 0) or of all
// instances (uid == 0) merged in seq order.
func (s *Store) Timeline(ctx context.Context, uid int64) ([]Entry, error) {
	var flushes []FlushRecord
	var events []component.Event
	var err error

	if uid > 0 {
		flushes, err = s.ReadFlushesFor(ctx, uid)
	} else {
		flushes, err = s.ReadAllFlushes(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	if uid > 0 {
		events, err = s.ReadEventsFor(ctx, uid)
	} else {
		events, err = s.ReadAllEvents(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	entries := make([]Entry, 0, len(flushes)+len(events))
	for i := range flushes {
		entries = append(entries, Entry{Seq: flushes[i].Seq, Flush: &flushes[i]})
	}
	for i := range events {
		entries = append(entries, Entry{Seq: events[i].Seq, Event: &events[i]})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return entries, nil
}

// ReplayView rebuilds the view a host would hold after applying every
// journaled patch of one instance, in order, to an empty object.
func (s *Store) ReplayView(ctx context.Context, uid int64) (ir.IRObject, error) {
	return s.ReplayOnto(ctx, uid, nil)
}

// ReplayOnto is ReplayView starting from a copy of base, typically the
// host's initial data. base is not modified.
func (s *Store) ReplayOnto(ctx context.Context, uid int64, base ir.IRObject) (ir.IRObject, error) {
	flushes, err := s.ReadFlushesFor(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("replay view: %w", err)
	}

	view := ir.CloneObject(base)
	if view == nil {
		view = ir.IRObject{}
	}
	for _, f := range flushes {
		keys := make([]string, 0, len(f.Patch))
		for k := range f.Patch {
			keys = append(keys, k)
		}
		// Ancestors before descendants, matching how a host applies a patch.
		slices.Sort(keys)
		for _, k := range keys {
			p, err := ir.ParsePath(k)
			if err != nil {
				return nil, fmt.Errorf("replay view: flush %s: %w", f.ID, err)
			}
			ir.SetByPath(view, p, ir.Clone(f.Patch[k]))
		}
	}
	return view, nil
}

// Mismatch is a journaled flush whose stored hash does not match its patch.
type Mismatch struct {
	FlushID string
	Stored  string
	Actual  string
}

// Verify recomputes every patch hash and returns the flushes that differ.
func (s *Store) Verify(ctx context.Context) ([]Mismatch, error) {
	flushes, err := s.ReadAllFlushes(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var out []Mismatch
	for _, f := range flushes {
		actual, err := ir.PatchHash(f.Patch)
		if err != nil {
			return nil, fmt.Errorf("verify: flush %s: %w", f.ID, err)
		}
		if actual != f.Hash {
			out = append(out, Mismatch{FlushID: f.ID, Stored: f.Hash, Actual: actual})
		}
	}
	return out, nil
}

// GetLastSeq returns the highest seq number used in the journal.
// Used to resume the registry's logical clock from the correct position.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			(SELECT COALESCE(MAX(seq), 0) FROM flushes),
			(SELECT COALESCE(MAX(seq), 0) FROM events)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// GetLastUID returns the highest instance uid in the journal, or 0.
func (s *Store) GetLastUID(ctx context.Context) (int64, error) {
	var uid int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			(SELECT COALESCE(MAX(uid), 0) FROM flushes),
			(SELECT COALESCE(MAX(uid), 0) FROM events)
		)
	`).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("get last uid: %w", err)
	}
	return uid, nil
}

// Instance summarizes one journaled component instance.
type Instance struct {
	UID       int64  `json:"uid"`
	Component string `json:"component"`
	Flushes   int    `json:"flushes"`
}

// ListInstances returns every instance that journaled anything, by uid.
func (s *Store) ListInstances(ctx context.Context) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.uid, e.component, COUNT(f.id)
		FROM (SELECT uid, MIN(component) AS component FROM events GROUP BY uid) e
		LEFT JOIN flushes f ON f.uid = e.uid
		GROUP BY e.uid, e.component
		ORDER BY e.uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	out := []Instance{}
	for rows.Next() {
		var in Instance
		if err := rows.Scan(&in.UID, &in.Component, &in.Flushes); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return out, nil
}

package component

import (
	"context"

	"github.com/roach88/rendersync/internal/ir"
)

// EventKind names a journaled instance event.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventMounted   EventKind = "mounted"
	EventUpdated   EventKind = "updated"
	EventDestroyed EventKind = "destroyed"
	EventBroken    EventKind = "broken"
	EventComplete  EventKind = "complete"
)

// Flush is one patch handed to the host.
type Flush struct {
	ID        string
	Seq       int64
	Component string
	UID       int64
	Mounted   bool
	Patch     ir.IRObject
}

// Event is a lifecycle transition, an updated hook run, or a host
// completion (FlushID set).
type Event struct {
	Seq       int64
	Component string
	UID       int64
	Kind      EventKind
	FlushID   string
}

// Recorder journals what an instance delivered and when. Failures are
// logged by the caller and never interrupt rendering.
type Recorder interface {
	RecordFlush(ctx context.Context, f Flush) error
	RecordEvent(ctx context.Context, e Event) error
}

package component

import (
	"context"
	"log/slog"

	"github.com/roach88/rendersync/internal/config"
	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
)

// Registry creates component instances and owns the state they share:
// the read-only configuration, the loop, the uid counter and the journal.
type Registry struct {
	cfg        config.Config
	loop       *engine.Loop
	uids       *engine.Clock
	seq        *engine.Clock
	ids        engine.FlushIDGenerator
	comparator ir.Comparator
	reporter   Reporter
	recorder   Recorder
	logger     *slog.Logger
	ctx        context.Context
}

// Option configures a Registry.
type Option func(*Registry)

// WithReporter sets the error reporter. Default: SlogReporter on the
// registry logger.
func WithReporter(r Reporter) Option {
	return func(reg *Registry) {
		reg.reporter = r
	}
}

// WithRecorder journals flushes and events.
func WithRecorder(r Recorder) Option {
	return func(reg *Registry) {
		reg.recorder = r
	}
}

// WithFlushIDs sets the flush id generator. Default: UUIDv7Generator.
func WithFlushIDs(g engine.FlushIDGenerator) Option {
	return func(reg *Registry) {
		reg.ids = g
	}
}

// WithComparator replaces the structural comparator.
func WithComparator(c ir.Comparator) Option {
	return func(reg *Registry) {
		reg.comparator = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		reg.logger = l
	}
}

// WithContext sets the context passed to the recorder.
func WithContext(ctx context.Context) Option {
	return func(reg *Registry) {
		reg.ctx = ctx
	}
}

// WithSeqStart resumes journal sequence numbers after start.
func WithSeqStart(start int64) Option {
	return func(reg *Registry) {
		reg.seq = engine.NewClockAt(start)
	}
}

// WithUIDStart resumes instance uids after start.
func WithUIDStart(start int64) Option {
	return func(reg *Registry) {
		reg.uids = engine.NewClockAt(start)
	}
}

// NewRegistry creates a registry whose instances run on loop.
func NewRegistry(cfg config.Config, loop *engine.Loop, opts ...Option) *Registry {
	reg := &Registry{
		cfg:        cfg,
		loop:       loop,
		uids:       engine.NewClock(),
		seq:        engine.NewClock(),
		ids:        engine.UUIDv7Generator{},
		comparator: ir.StructuralComparator{MaxFields: cfg.MaxFieldDiffs},
		logger:     slog.Default(),
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.reporter == nil {
		reg.reporter = SlogReporter{Logger: reg.logger}
	}
	return reg
}

// Config returns the shared configuration.
func (r *Registry) Config() config.Config { return r.cfg }

// Loop returns the shared loop.
func (r *Registry) Loop() *engine.Loop { return r.loop }

// New creates an instance for host. The host's capabilities are checked
// here, once. A host missing a required capability yields a broken
// instance: the configuration error is reported and every lifecycle method
// returns it wrapped in ErrBroken.
func (r *Registry) New(host any, opts Options) *Instance {
	in := &Instance{
		reg:  r,
		uid:  r.uids.Next(),
		opts: opts,
		host: host,
	}
	in.logger = r.logger.With("component", opts.Name, "uid", in.uid)

	caps, err := resolveHost(host)
	if err != nil {
		cfgErr := in.newError(CodeConfiguration, "host is missing a required capability", "", err)
		in.state = StateBroken
		in.brokenErr = cfgErr
		r.reporter.Report(cfgErr)
		in.journal(EventBroken, "")
		return in
	}
	in.caps = caps
	in.init()
	return in
}

func (r *Registry) recordFlush(f Flush) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordFlush(r.ctx, f); err != nil {
		r.logger.Warn("failed to journal flush", "flush", f.ID, "error", err)
	}
}

func (r *Registry) recordEvent(e Event) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordEvent(r.ctx, e); err != nil {
		r.logger.Warn("failed to journal event", "kind", e.Kind, "error", err)
	}
}

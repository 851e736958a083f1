package component

import (
	"log/slog"
	"sync"
)

// Reporter receives advisory and fatal component errors. Reporting never
// changes control flow; the instance decides what to do before reporting.
type Reporter interface {
	Report(err *Error)
}

// SlogReporter writes each error as one structured log record.
// Configuration errors log at error level, everything else at warn.
type SlogReporter struct {
	Logger *slog.Logger
}

// Report implements Reporter.
func (r SlogReporter) Report(err *Error) {
	if err == nil {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"code", string(err.Code),
		"component", err.Component,
	}
	if err.Resource != "" {
		attrs = append(attrs, "resource", err.Resource)
	}
	if err.Path != "" {
		attrs = append(attrs, "path", err.Path)
	}
	if err.Err != nil {
		attrs = append(attrs, "error", err.Err)
	}

	if err.Fatal() {
		logger.Error(err.Message, attrs...)
		return
	}
	logger.Warn(err.Message, attrs...)
}

// RecordingReporter keeps every reported error in memory.
//
// Thread-safety: safe for concurrent use.
type RecordingReporter struct {
	mu     sync.Mutex
	errors []*Error
}

// Report implements Reporter.
func (r *RecordingReporter) Report(err *Error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// Errors returns a copy of the reported errors in report order.
func (r *RecordingReporter) Errors() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Error, len(r.errors))
	copy(out, r.errors)
	return out
}

// Codes returns the codes of the reported errors in report order.
func (r *RecordingReporter) Codes() []Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Code, len(r.errors))
	for i, e := range r.errors {
		out[i] = e.Code
	}
	return out
}

// Reset drops all recorded errors.
func (r *RecordingReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = nil
}

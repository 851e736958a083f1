package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	UID      int64  // optional - one instance only
	Kind     string // optional - filter to "flush" or one event kind
}

// TraceEntry represents a single entry in the journal timeline.
type TraceEntry struct {
	Seq       int64          `json:"seq"`
	Kind      string         `json:"kind"` // "flush" or an event kind
	UID       int64          `json:"uid"`
	Component string         `json:"component"`
	FlushID   string         `json:"flush_id,omitempty"`
	Mounted   bool           `json:"mounted,omitempty"`
	Patch     map[string]any `json:"patch,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	UID       int64            `json:"uid,omitempty"`
	Instances []store.Instance `json:"instances"`
	Timeline  []TraceEntry     `json:"timeline"`
	Stats     TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int  `json:"total_entries"`
	Flushes      int  `json:"flushes"`
	Completions  int  `json:"completions"`
	Updates      int  `json:"updates"`
	InFlight     int  `json:"in_flight"`
	IsSettled    bool `json:"is_settled"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the flush journal",
		Long: `Show the flush journal of one instance or of every instance.

The output includes:
- Instances: every journaled instance with its flush count
- Timeline: flushes and lifecycle events in seq order
- Stats: flushes, completions and updated hooks; a timeline is settled
  when every flush has completed

Examples:
  rendersync trace --db ./journal.db
  rendersync trace --db ./journal.db --uid 2
  rendersync trace --db ./journal.db --uid 2 --kind flush --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.UID, "uid", 0, "trace one instance only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to flush or one event kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	instances, err := st.ListInstances(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list instances", err)
	}
	if opts.UID > 0 {
		found := false
		for _, in := range instances {
			if in.UID == opts.UID {
				instances = []store.Instance{in}
				found = true
				break
			}
		}
		if !found {
			return NewExitError(ExitCommandError, fmt.Sprintf("no journal entries for uid %d", opts.UID))
		}
	}

	entries, err := st.Timeline(ctx, opts.UID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read timeline", err)
	}

	result := TraceResult{
		UID:       opts.UID,
		Instances: instances,
		Timeline:  buildTimeline(entries, opts.Kind),
		Stats:     buildStats(entries),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts journal entries to trace entries. When kind is
// set, only entries of that kind are kept.
func buildTimeline(entries []store.Entry, kind string) []TraceEntry {
	timeline := []TraceEntry{}
	for _, e := range entries {
		if kind != "" && e.Kind() != kind {
			continue
		}

		switch {
		case e.Flush != nil:
			f := e.Flush
			patch, _ := ir.ToGo(f.Patch).(map[string]any)
			timeline = append(timeline, TraceEntry{
				Seq:       f.Seq,
				Kind:      e.Kind(),
				UID:       f.UID,
				Component: f.Component,
				FlushID:   f.ID,
				Mounted:   f.Mounted,
				Patch:     patch,
			})
		case e.Event != nil:
			ev := e.Event
			timeline = append(timeline, TraceEntry{
				Seq:       ev.Seq,
				Kind:      e.Kind(),
				UID:       ev.UID,
				Component: ev.Component,
				FlushID:   ev.FlushID,
			})
		}
	}
	return timeline
}

// buildStats counts flushes, completions and updated hooks.
func buildStats(entries []store.Entry) TraceStats {
	stats := TraceStats{TotalEntries: len(entries)}
	for _, e := range entries {
		switch {
		case e.Flush != nil:
			stats.Flushes++
		case e.Event != nil && e.Event.Kind == component.EventComplete:
			stats.Completions++
		case e.Event != nil && e.Event.Kind == component.EventUpdated:
			stats.Updates++
		}
	}
	stats.InFlight = stats.Flushes - stats.Completions
	stats.IsSettled = stats.InFlight == 0
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.UID > 0 {
		fmt.Fprintf(w, "Trace for instance: %d\n", result.UID)
	} else {
		fmt.Fprintln(w, "Trace for all instances")
	}
	fmt.Fprintf(w, "Status: %s\n", settledStatus(result.Stats))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Instances ===")
	if len(result.Instances) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, in := range result.Instances {
		fmt.Fprintf(w, "  %d %s: %d flush(es)\n", in.UID, in.Component, in.Flushes)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	} else {
		for _, entry := range result.Timeline {
			formatTimelineEntry(w, entry, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Flushes:       %d\n", result.Stats.Flushes)
	fmt.Fprintf(w, "  Completions:   %d\n", result.Stats.Completions)
	fmt.Fprintf(w, "  Updates:       %d\n", result.Stats.Updates)

	return nil
}

// formatTimelineEntry formats a single timeline entry for text output.
func formatTimelineEntry(w io.Writer, entry TraceEntry, verbose bool) {
	switch entry.Kind {
	case "flush":
		state := "pre-mount"
		if entry.Mounted {
			state = "mounted"
		}
		fmt.Fprintf(w, "  [%d] FLUSH %s#%d %s (%d path(s))\n",
			entry.Seq, entry.Component, entry.UID, state, len(entry.Patch))
		if verbose {
			fmt.Fprintf(w, "       Patch: %s\n", formatArgs(entry.Patch))
			fmt.Fprintf(w, "       ID: %s\n", truncateID(entry.FlushID))
		}
	default:
		fmt.Fprintf(w, "  [%d] %s %s#%d", entry.Seq, strings.ToUpper(entry.Kind), entry.Component, entry.UID)
		if entry.FlushID != "" {
			fmt.Fprintf(w, " %s", truncateID(entry.FlushID))
		}
		fmt.Fprintln(w)
	}
}

// formatArgs formats a map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// settledStatus returns a human-readable completion status.
func settledStatus(stats TraceStats) string {
	if stats.IsSettled {
		return "Settled"
	}
	return fmt.Sprintf("Unsettled (%d flush(es) in flight)", stats.InFlight)
}

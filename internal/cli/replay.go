package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	UID      int64 // optional - specific instance only
}

// ReplayInstanceResult holds the replay result for a single instance.
type ReplayInstanceResult struct {
	UID            int64          `json:"uid"`
	Component      string         `json:"component"`
	Flushes        int            `json:"flushes"`
	View           map[string]any `json:"view"`
	Deterministic  bool           `json:"deterministic"`
	HashMismatches []string       `json:"hash_mismatches,omitempty"`
}

// Verified reports whether the instance replayed deterministically with
// intact patch hashes.
func (r ReplayInstanceResult) Verified() bool {
	return r.Deterministic && len(r.HashMismatches) == 0
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Instances      []ReplayInstanceResult `json:"instances"`
	TotalInstances int                    `json:"total_instances"`
	AllVerified    bool                   `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild host views from the journal and verify it",
		Long: `Rebuild each instance's host view by applying its journaled patches in
order, and verify the journal.

An instance is verified when replaying it twice yields the same view and
every stored patch hash matches its canonical patch.

Exit codes:
  0 - All instances verified
  1 - Verification failed (hash mismatch or differing replays)
  2 - Command error (database not found, etc.)

Examples:
  rendersync replay --db ./journal.db
  rendersync replay --db ./journal.db --uid 2
  rendersync replay --db ./journal.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.UID, "uid", 0, "replay specific instance only")

	return cmd
}

// openExisting opens a journal that must already exist. store.Open would
// silently create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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
		var selected []store.Instance
		for _, in := range instances {
			if in.UID == opts.UID {
				selected = append(selected, in)
			}
		}
		instances = selected
	}

	if len(instances) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Instances:   []ReplayInstanceResult{},
				AllVerified: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No instances found in database.")
		return nil
	}

	mismatches, err := st.Verify(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify patch hashes", err)
	}
	byFlush := make(map[string]bool, len(mismatches))
	for _, m := range mismatches {
		byFlush[m.FlushID] = true
	}

	result := ReplayResult{
		Instances:      make([]ReplayInstanceResult, 0, len(instances)),
		TotalInstances: len(instances),
		AllVerified:    true,
	}
	for _, in := range instances {
		r, err := replayAndVerifyInstance(ctx, st, in, byFlush)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay instance %d", in.UID), err)
		}
		result.Instances = append(result.Instances, r)
		if !r.Verified() {
			result.AllVerified = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyInstance replays one instance twice and collects the hash
// mismatches of its flushes.
func replayAndVerifyInstance(ctx context.Context, st *store.Store, in store.Instance, mismatched map[string]bool) (ReplayInstanceResult, error) {
	first, err := st.ReplayView(ctx, in.UID)
	if err != nil {
		return ReplayInstanceResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := st.ReplayView(ctx, in.UID)
	if err != nil {
		return ReplayInstanceResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	flushes, err := st.ReadFlushesFor(ctx, in.UID)
	if err != nil {
		return ReplayInstanceResult{}, err
	}
	var bad []string
	for _, f := range flushes {
		if mismatched[f.ID] {
			bad = append(bad, f.ID)
		}
	}

	view, _ := ir.ToGo(first).(map[string]any)
	return ReplayInstanceResult{
		UID:            in.UID,
		Component:      in.Component,
		Flushes:        len(flushes),
		View:           view,
		Deterministic:  ir.Equal(first, second),
		HashMismatches: bad,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllVerified {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_VERIFY",
			Message: "journal verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d instance(s)\n", result.TotalInstances)
	fmt.Fprintln(w)

	for _, in := range result.Instances {
		status := "✓"
		if !in.Verified() {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Instance: %d (%s)\n", status, in.UID, in.Component)
		fmt.Fprintf(w, "  Flushes: %d\n", in.Flushes)
		if verbose {
			fmt.Fprintf(w, "  View: %s\n", formatArgs(in.View))
		}

		if !in.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		for _, id := range in.HashMismatches {
			fmt.Fprintf(w, "  Warning: patch hash mismatch in flush %s\n", truncateID(id))
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "✓ All instances verified")
		return nil
	}

	fmt.Fprintln(w, "✗ Journal verification failed")
	return NewExitError(ExitFailure, "journal verification failed")
}

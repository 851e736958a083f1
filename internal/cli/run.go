package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rendersync/internal/config"
	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/harness"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// FlushIDs overrides the flush id generator used with --db (for
	// testing). If nil, defaults to UUIDv7Generator.
	FlushIDs engine.FlushIDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name   string          `json:"name"`
	Pass   bool            `json:"pass"`
	State  string          `json:"state"`
	Errors []string        `json:"errors,omitempty"`
	Trace  json.RawMessage `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and print its trace",
		Long: `Run one scenario against a fake host and print the full trace.

Spec paths in the scenario are resolved relative to the scenario file.
With --db the flushes and lifecycle events are appended to a SQLite
journal, numbered after whatever the journal already holds, for later
inspection with trace and replay.

Exit codes:
  0 - Every step and assertion passed
  1 - A step or assertion failed
  2 - Command error (unreadable scenario, bad specs, etc.)

Example:
  rendersync run ./scenarios/counter.yaml
  rendersync run ./scenarios/counter.yaml --db ./journal.db --strict-diff`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "append the journal to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	applyFlagOverrides(opts.RootOptions, cmd, &scenario.Config)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := harness.Options{Logger: logger}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		if runOpts.SeqStart, err = st.GetLastSeq(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		if runOpts.UIDStart, err = st.GetLastUID(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		runOpts.Store = st
		runOpts.FlushIDs = opts.FlushIDs
		if runOpts.FlushIDs == nil {
			runOpts.FlushIDs = engine.UUIDv7Generator{}
		}
		logger.Debug("journaling to database", "path", opts.Database, "seq", runOpts.SeqStart, "uid", runOpts.UIDStart)
	}

	result, err := harness.RunWith(ctx, scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
		if err != nil {
			return err
		}
		if err := (&OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}).Success(RunResult{
			Name:   scenario.Name,
			Pass:   result.Pass,
			State:  result.State,
			Errors: result.Errors,
			Trace:  snapshot,
		}); err != nil {
			return err
		}
	} else {
		writeTraceText(cmd.OutOrStdout(), scenario.Name, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// applyFlagOverrides applies explicitly set diff flags over cfg.
func applyFlagOverrides(opts *RootOptions, cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("strict-diff") {
		cfg.StrictDiff = opts.StrictDiff
	}
	if flags.Changed("ignore-render-error") {
		cfg.IgnoreRenderError = opts.IgnoreRenderError
	}
}

// writeTraceText prints one line per trace event and the final outcome.
func writeTraceText(w io.Writer, name string, result *harness.Result) {
	fmt.Fprintf(w, "Scenario: %s\n\n", name)
	for _, event := range result.Trace {
		fmt.Fprintf(w, "  [%d] %s", event.Seq, event.Label())
		if event.Path != "" {
			fmt.Fprintf(w, " %s", event.Path)
		}
		if event.FlushID != "" {
			fmt.Fprintf(w, " (%s)", event.FlushID)
		}
		if event.Patch != nil {
			fmt.Fprintf(w, " %s", canonical(event.Patch))
		}
		if event.Value != nil {
			fmt.Fprintf(w, " = %s", canonical(event.Value))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nState: %s\n", result.State)
	fmt.Fprintf(w, "View:  %s\n", canonical(result.View))

	if result.Pass {
		fmt.Fprintln(w, "✓ passed")
		return
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// canonical renders v as canonical JSON, falling back to %v.
func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

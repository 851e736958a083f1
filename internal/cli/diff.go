package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/patch"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Keys     []string // local keys; default: every top-level key of both files
	Baseline bool     // treat <from> as the host view instead of a prior flush
	ExitCode bool     // exit 1 when the patch is not empty
}

// DiffResult is the JSON payload of the diff command.
type DiffResult struct {
	Mode  string      `json:"mode"`
	Paths int         `json:"paths"`
	Patch ir.IRObject `json:"patch"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Compute the patch between two data snapshots",
		Long: `Compute the patch a component would send when its data changes from
<from> to <to>. Both files are JSON or YAML objects.

By default <from> is rendered first to fill the diff cache, exactly as a
previous flush would. With --baseline the cache starts empty and <from>
is used as the host's current view instead.

Examples:
  rendersync diff before.json after.json
  rendersync diff before.yaml after.yaml --strict-diff --keys user,items
  rendersync diff before.json after.json --exit-code`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Keys, "keys", nil, "local keys eligible for patching")
	cmd.Flags().BoolVar(&opts.Baseline, "baseline", false, "use <from> as the host view")
	cmd.Flags().BoolVar(&opts.ExitCode, "exit-code", false, "exit with 1 if the patch is not empty")

	return cmd
}

func runDiff(opts *DiffOptions, fromPath, toPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	from, err := readDataFile(fromPath)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read "+fromPath, err)
	}
	to, err := readDataFile(toPath)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read "+toPath, err)
	}

	keys := patch.NewKeySet(opts.Keys...)
	if len(opts.Keys) == 0 {
		keys.AddObject(from)
		keys.AddObject(to)
	}

	mode := patch.ModeLoose
	if cfg.StrictDiff {
		mode = patch.ModeStrict
	}
	d := patch.NewDiffer(mode, keys)
	d.Comparator = ir.StructuralComparator{MaxFields: cfg.MaxFieldDiffs}
	formatter.VerboseLog("Diffing %s -> %s (%s mode, keys %v)", fromPath, toPath, mode, keys.Sorted())

	var out ir.IRObject
	if opts.Baseline {
		out, err = d.Diff(to, from)
	} else {
		if _, err = d.Diff(from, nil); err == nil {
			out, err = d.Diff(to, nil)
		}
	}
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid data keys", err)
	}
	out = ir.NormalizeObject(out)

	if opts.Format == "json" {
		if err := formatter.Success(DiffResult{Mode: mode.String(), Paths: len(out), Patch: out}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, canonical(out))
	}

	if opts.ExitCode && len(out) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("patch has %d path(s)", len(out)))
	}
	return nil
}

// readDataFile decodes a JSON or YAML object.
func readDataFile(path string) (ir.IRObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return ir.IRObject{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	obj, err := ir.ObjectFromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return obj, nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rendersync/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled component definitions.
type CompilationResult struct {
	Components []*compiler.Definition `json:"components"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ComponentCount int
	TotalDataKeys  int
	TotalComputed  int
	TotalWatchers  int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE component definitions to JSON",
		Long: `Compile CUE component definitions to their JSON form.

The compiler parses CUE files, converts declared data to concrete values,
runs the key checks of validate, and outputs the definitions sorted by name.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		code, message := describeLoadError(loadErrors[0])
		return failCommand(formatter, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// A definition that fails the key checks is never written out.
	var verrs []error
	for _, v := range validateAll(loadResult, formatter) {
		verrs = append(verrs, &LoadError{Code: v.Code, Message: v.Field + ": " + v.Message})
	}
	if len(verrs) > 0 {
		return outputCompileErrors(formatter, verrs)
	}

	result := &CompilationResult{Components: loadResult.Components}
	slices.SortFunc(result.Components, func(a, b *compiler.Definition) int {
		return strings.Compare(a.Name, b.Name)
	})

	if opts.Output != "" {
		if err := writeDefinitionsToFile(result, opts.Output); err != nil {
			return failCommand(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}
	return outputCompileSuccess(formatter, result, calculateStats(result), opts.Output)
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{ComponentCount: len(result.Components)}
	for _, def := range result.Components {
		stats.TotalDataKeys += len(def.Data)
		stats.TotalComputed += len(def.Computed)
		stats.TotalWatchers += len(def.Watch)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d component(s)\n\n", stats.ComponentCount)

	fmt.Fprintln(formatter.Writer, "Components:")
	for _, def := range result.Components {
		mode := "diff"
		if def.NativeRender {
			mode = "native"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d data key(s), %d computed, %d watcher(s), %s render\n",
			def.Name, len(def.Data), len(def.Computed), len(def.Watch), mode)
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote definitions to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := describeLoadError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := describeLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeDefinitionsToFile writes the compilation result as indented JSON.
func writeDefinitionsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling definitions: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

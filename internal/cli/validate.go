package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/rendersync/internal/compiler"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Components []string                   `json:"components,omitempty"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate component definitions",
		Long: `Validate CUE component definitions without writing output.

Compiles every component and checks its keys: reserved or malformed data
keys, duplicate props and methods, methods and props shadowing data,
computed keys shadowing data, and watch paths with an unknown root.

Exit codes:
  0 - All components valid
  1 - A component failed to compile or a key check failed
  2 - The specs directory could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
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

	// Compile failures count as validation failures here; the components
	// that did compile are still checked.
	var verrs []compiler.ValidationError
	for _, err := range loadErrors {
		code, message := describeLoadError(err)
		verr := compiler.ValidationError{Field: "load", Message: message, Code: code}
		var le *LoadError
		if errors.As(err, &le) {
			verr.Line = lineOf(le.Pos)
		}
		verrs = append(verrs, verr)
	}
	verrs = append(verrs, validateAll(loadResult, formatter)...)

	if len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}
	return outputValidateSuccess(formatter, componentNames(loadResult))
}

// validateAll runs the key checks on every compiled component. Fields are
// prefixed with the component name.
func validateAll(result *LoadResult, formatter *OutputFormatter) []compiler.ValidationError {
	var all []compiler.ValidationError
	for _, def := range result.Components {
		formatter.VerboseLog("Validating component: %s", def.Name)
		for _, verr := range compiler.Validate(def) {
			verr.Field = def.Name + "." + verr.Field
			all = append(all, verr)
		}
	}
	return all
}

func componentNames(result *LoadResult) []string {
	names := make([]string, len(result.Components))
	for i, def := range result.Components {
		names[i] = def.Name
	}
	return names
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

func outputValidateSuccess(formatter *OutputFormatter, components []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Components: components})
	}
	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d component(s))\n", len(components))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	fmt.Fprintf(formatter.Writer, "%d error(s)\n", len(errs))
	return failure
}

// ValidateSpecsDir loads specsDir and returns the key check failures of
// its components. Loading or compile failures are returned as the error.
func ValidateSpecsDir(specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return validateAll(loadResult, silent), nil
}

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rendersync/internal/compiler"
)

// Error codes shared by every command that loads specs or input files.
const (
	ErrCodeGeneric     = "E001" // anything without a better code
	ErrCodeScanError   = "E002" // specs directory could not be walked
	ErrCodeNoFiles     = "E003" // no .cue files
	ErrCodeLoadFailed  = "E004" // cue/load rejected the package
	ErrCodeNotFound    = "E005" // path missing or not a directory
	ErrCodeBuildFailed = "E006" // package does not evaluate
	ErrCodeWriteFailed = "E007" // output file not writable
	ErrCodeReadFailed  = "E008" // input file unreadable or malformed

	ErrCodeInvalidData     = "E010" // data not concrete or not a struct
	ErrCodeInvalidComputed = "E011" // malformed computed entry
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops at the first component that does not compile.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every component and reports all failures.
	LoadModeCollectAll
)

// LoadResult is a loaded specs directory.
type LoadResult struct {
	Components []*compiler.Definition
	CUEValue   cue.Value
	FileCount  int
}

// LoadError is a spec loading failure with an error code and, when CUE
// knows it, the source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loadErr(code, format string, args ...any) []error {
	return []error{&LoadError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// LoadSpecs evaluates the CUE package in dir and compiles every component
// declared under its top-level "component" field.
//
// A nil result means the directory itself could not be loaded. A non-nil
// result with errors holds the components that did compile.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, loadErr(ErrCodeNotFound, "specs directory not found: %s", dir)
	case err != nil:
		return nil, loadErr(ErrCodeNotFound, "error accessing specs directory: %v", err)
	case !info.IsDir():
		return nil, loadErr(ErrCodeNotFound, "not a directory: %s", dir)
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, loadErr(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(cueFiles) == 0 {
		return nil, loadErr(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, loadErr(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return nil, loadErr(ErrCodeLoadFailed, "loading CUE files: %v", err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, loadErr(ErrCodeBuildFailed, "building CUE value: %v", err)
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	errs := compileComponents(value, mode, result)
	if len(result.Components) == 0 && len(errs) == 0 {
		errs = loadErr(ErrCodeGeneric, "no components found in specs")
	}
	return result, errs
}

// compileComponents appends each compiled component to result.
func compileComponents(value cue.Value, mode LoadMode, result *LoadResult) []error {
	components := value.LookupPath(cue.ParsePath("component"))
	if !components.Exists() {
		return nil
	}
	iter, err := components.Fields()
	if err != nil {
		return loadErr(ErrCodeGeneric, "iterating components: %v", err)
	}

	var errs []error
	for iter.Next() {
		def, err := compiler.CompileComponent(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "component."+iter.Label()))
			if mode == LoadModeFailFast {
				break
			}
			continue
		}
		result.Components = append(result.Components, def)
	}
	return errs
}

// FindCUEFiles returns every .cue file under dir. The cue.mod module
// directory is skipped.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "cue.mod" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError turns a compiler error into a LoadError carrying the
// component path and source position.
func convertCompileError(err error, where string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", where, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", where, err)}
}

// MapFieldToErrorCode maps the field of a compile error to an error code.
// Fields may be relative ("data") or full CUE paths
// ("component.Counter.data.count").
func MapFieldToErrorCode(field string) string {
	switch {
	case strings.Contains("."+field+".", ".data."):
		return ErrCodeInvalidData
	case strings.HasPrefix(field, "computed.") || strings.Contains(field, ".computed."):
		return ErrCodeInvalidComputed
	default:
		return ErrCodeGeneric
	}
}

// describeLoadError returns the code and message of a loading error.
func describeLoadError(err error) (code, message string) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code, le.Message
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return MapFieldToErrorCode(ce.Field), ce.Message
	}
	return ErrCodeGeneric, err.Error()
}

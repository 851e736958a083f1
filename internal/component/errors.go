package component

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by lifecycle and instance API methods.
var (
	// ErrBroken is returned by every method of an instance whose host lacks
	// a required capability. It wraps the original configuration error.
	ErrBroken = errors.New("component: instance is broken")

	// ErrInvalidTransition is returned when a lifecycle method is called
	// from a state that does not permit it.
	ErrInvalidTransition = errors.New("component: invalid lifecycle transition")

	// ErrNotCreated is returned by instance API methods called before Created.
	ErrNotCreated = errors.New("component: instance not created")

	// ErrDestroyed is returned by instance API methods called after Destroyed.
	ErrDestroyed = errors.New("component: instance destroyed")
)

// Error describes a problem detected while running a component instance.
//
// Only CodeConfiguration is fatal, and it is fatal by state: the instance
// becomes broken and its lifecycle methods return an error wrapping
// ErrBroken. Every other code is advisory and goes to the Reporter.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Component is the component name, Resource its source file if known.
	Component string
	Resource  string

	// Path is the data path or key involved, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Code categorizes component errors.
type Code string

const (
	// CodeConfiguration indicates the host lacks a required capability.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	// CodeDuplicateKey indicates a method name collides with a data,
	// computed or prop key.
	CodeDuplicateKey Code = "DUPLICATE_KEY"

	// CodeForceOverrideKey indicates a forced path whose first segment is
	// not a declared reactive key.
	CodeForceOverrideKey Code = "FORCE_OVERRIDE_KEY"

	// CodeRenderFunction indicates the injected render function failed and
	// the flush degraded to a full render.
	CodeRenderFunction Code = "RENDER_FUNCTION"

	// CodeInvalidPath indicates render or force data carried a key that is
	// not a valid path. The key is skipped.
	CodeInvalidPath Code = "INVALID_PATH"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Component != "" {
		msg += fmt.Sprintf(" [%s]", e.Component)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error leaves the instance unusable.
func (e *Error) Fatal() bool {
	return e.Code == CodeConfiguration
}

func hasCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsConfigurationError returns true if err is a missing-capability error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsDuplicateKeyError returns true if err is a method/data key collision.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, CodeDuplicateKey)
}

// IsForceOverrideKeyError returns true if err is a forced-path advisory.
func IsForceOverrideKeyError(err error) bool {
	return hasCode(err, CodeForceOverrideKey)
}

// IsRenderFunctionError returns true if err is an injected render failure.
func IsRenderFunctionError(err error) bool {
	return hasCode(err, CodeRenderFunction)
}

// IsInvalidPathError returns true if err reports an unparseable path key.
func IsInvalidPathError(err error) bool {
	return hasCode(err, CodeInvalidPath)
}

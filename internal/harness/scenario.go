package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rendersync/internal/config"
)

// Scenario drives one component instance against a fake host and asserts
// on the resulting trace, host view and instance state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files declaring components.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Component selects the component to instantiate. May be omitted when
	// the specs declare exactly one.
	Component string `yaml:"component,omitempty"`

	// Config is the registry configuration (strict_diff,
	// ignore_render_error, max_field_diffs).
	Config config.Config `yaml:"config,omitempty"`

	// Host configures the fake host.
	Host HostSpec `yaml:"host,omitempty"`

	// Flow is the sequence of steps to execute.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace, view and state.
	Assertions []Assertion `yaml:"assertions"`
}

// HostSpec configures the fake host a scenario runs against.
type HostSpec struct {
	// Initial is the host's initial data (props).
	Initial map[string]any `yaml:"initial,omitempty"`

	// AutoComplete completes every render call synchronously.
	AutoComplete bool `yaml:"auto_complete,omitempty"`

	// Render, when set, gives the host a render function returning this
	// object.
	Render map[string]any `yaml:"render,omitempty"`

	// RenderError makes the host's render function fail with this message.
	RenderError string `yaml:"render_error,omitempty"`

	// RenderOnly binds the instance to a host without InitialData, which
	// yields a broken instance.
	RenderOnly bool `yaml:"render_only,omitempty"`
}

// Step is one scenario operation.
type Step struct {
	// Op is the operation; see the Op constants.
	Op string `yaml:"op"`

	// Path is the data path for set.
	Path string `yaml:"path,omitempty"`

	// Value is the value for set.
	Value any `yaml:"value,omitempty"`

	// Data is the forced data for force.
	Data map[string]any `yaml:"data,omitempty"`

	// Callback labels the callback of force, next_tick and flush. The
	// callback is traced as "callback:<label>" when it runs.
	Callback string `yaml:"callback,omitempty"`

	// Count is the number of render calls to release for complete.
	// Zero releases one; -1 releases all.
	Count int `yaml:"count,omitempty"`

	// Args are passed to the created hook.
	Args []any `yaml:"args,omitempty"`

	// ExpectError makes the step pass only if the operation fails.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpCreated   = "created"
	OpMounted   = "mounted"
	OpDestroyed = "destroyed"
	OpSet       = "set"
	OpForce     = "force"
	OpNextTick  = "next_tick"
	OpFlush     = "flush"
	OpTick      = "tick"
	OpDrain     = "drain"
	OpComplete  = "complete"
)

// Assertion validates the trace, the host view or the instance.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with Event's label (and Patch, if given) occurred
	// - "trace_order": events with these labels occurred in this order
	// - "trace_count": an event with Event's label occurred exactly Count times
	// - "final_state": lifecycle State and a subset of instance data (Expect)
	// - "final_view": a subset of the host view (Expect, keyed by path)
	// - "last_patch": the last delivered patch equals Patch exactly
	// - "reports": the reported error codes, in order
	// - "journal_replay": replaying the journal onto the host's initial data
	//   reproduces the host view
	Type string `yaml:"type"`

	// Event is a trace label such as "render", "journal:updated" or
	// "callback:done" (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected label order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Patch is the expected patch (trace_contains, last_patch).
	Patch map[string]any `yaml:"patch,omitempty"`

	// State is the expected lifecycle state (final_state).
	State string `yaml:"state,omitempty"`

	// Expect maps paths to expected values (final_state, final_view).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Codes are the expected report codes (reports).
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertFinalView     = "final_view"
	AssertLastPatch     = "last_patch"
	AssertReports       = "reports"
	AssertJournalReplay = "journal_replay"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario without validating spec paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	case OpSet:
		if s.Path == "" {
			return fmt.Errorf("flow[%d]: path is required for set", index)
		}
	case OpForce:
		if s.Data == nil && s.Callback == "" {
			return fmt.Errorf("flow[%d]: data or callback is required for force", index)
		}
	case OpNextTick:
		if s.Callback == "" {
			return fmt.Errorf("flow[%d]: callback is required for next_tick", index)
		}
	case OpComplete:
		if s.Count < -1 {
			return fmt.Errorf("flow[%d]: count must be -1 (all) or non-negative for complete", index)
		}
	case OpCreated, OpMounted, OpDestroyed, OpFlush, OpTick, OpDrain:
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.State == "" && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: state or expect is required for final_state", index)
		}
	case AssertFinalView:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_view", index)
		}
	case AssertLastPatch:
		if a.Patch == nil {
			return fmt.Errorf("assertions[%d]: patch is required for last_patch", index)
		}
	case AssertReports, AssertJournalReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

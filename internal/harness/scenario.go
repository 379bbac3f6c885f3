package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/plan"
)

// Scenario is one load plan conformance test case loaded from YAML.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Mappings is the directory holding the CUE entity mappings.
	// Relative paths are resolved against the scenario file's directory.
	Mappings string `yaml:"mappings"`

	// Root is the entity name or collection role the plan is built for.
	Root string `yaml:"root"`

	// Overrides maps a property path to a fetch strategy ("join", "batch:25").
	Overrides map[string]string `yaml:"overrides,omitempty"`

	// MaxJoinDepth limits join fetching; 0 means unlimited.
	MaxJoinDepth int `yaml:"max_join_depth,omitempty"`

	// BatchSize is the resolver's default batch size; 0 selects the built-in default.
	BatchSize int `yaml:"batch_size,omitempty"`

	// UIDs pins query space uids by property path.
	UIDs map[string]string `yaml:"uids,omitempty"`

	// Assertions are checked against the built plan.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion is a single check against a build outcome.
// Which fields apply depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	// space_count
	Count int `yaml:"count,omitempty"`

	// join: an edge between spaces of these descriptors with this role
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
	Role string `yaml:"role,omitempty"`

	// join (style) and fetch (strategy, e.g. "batch(25)")
	Fetch string `yaml:"fetch,omitempty"`

	// fetch, path and alias: the property path of a reference
	Path string `yaml:"path,omitempty"`

	// fetch: whether the reference closes a cycle
	Reused *bool `yaml:"reused,omitempty"`

	// path: the descriptor loaded at Path, or Absent when nothing is
	Descriptor string `yaml:"descriptor,omitempty"`
	Absent     bool   `yaml:"absent,omitempty"`

	// alias: the SQL alias of the space at Path
	Alias string `yaml:"alias,omitempty"`

	// error: the build must fail with a message containing Contains
	// and, when set, with the given Kind
	Contains string `yaml:"contains,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertSpaceCount = "space_count"
	AssertJoin       = "join"
	AssertFetch      = "fetch"
	AssertPath       = "path"
	AssertAlias      = "alias"
	AssertError      = "error"
)

// Build error kinds accepted by error assertions.
const (
	ErrorKindUnresolvable = "unresolvable_association"
	ErrorKindUnknownRoot  = "unknown_root"
	ErrorKindDuplicateUID = "duplicate_uid"
)

// LoadScenario reads and parses a scenario YAML file, resolving the mappings
// directory relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative mappings directory against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Mappings != "" && !filepath.IsAbs(scenario.Mappings) && basePath != "" {
		scenario.Mappings = filepath.Join(basePath, scenario.Mappings)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadOptions converts the scenario's overrides, depth limit and pinned uids
// into builder load options.
func (s *Scenario) LoadOptions() (plan.LoadOptions, error) {
	opts := plan.LoadOptions{Fetch: fetch.Options{MaxJoinDepth: s.MaxJoinDepth}}
	for path, text := range s.Overrides {
		strategy, err := ir.ParseFetchStrategy(text)
		if err != nil {
			return plan.LoadOptions{}, fmt.Errorf("overrides[%s]: %w", path, err)
		}
		opts.Fetch = opts.Fetch.Override(ir.ParsePropertyPath(path), strategy)
	}
	if len(s.UIDs) > 0 {
		opts.UIDs = make(map[ir.PropertyPath]string, len(s.UIDs))
		for path, uid := range s.UIDs {
			opts.UIDs[ir.ParsePropertyPath(path)] = uid
		}
	}
	return opts, nil
}

// ExpectsError reports whether the scenario asserts a failed build.
func (s *Scenario) ExpectsError() bool {
	for _, a := range s.Assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Mappings == "" {
		return fmt.Errorf("mappings is required")
	}
	if s.Root == "" {
		return fmt.Errorf("root is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MaxJoinDepth < 0 {
		return fmt.Errorf("max_join_depth must be non-negative")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}

	if info, err := os.Stat(s.Mappings); err != nil || !info.IsDir() {
		return fmt.Errorf("mappings directory not found: %s", s.Mappings)
	}

	if _, err := s.LoadOptions(); err != nil {
		return err
	}
	for path, uid := range s.UIDs {
		if uid == "" {
			return fmt.Errorf("uids[%s]: uid must be non-empty", path)
		}
	}

	errorAssertions := 0
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
		if assertion.Type == AssertError {
			errorAssertions++
		}
	}
	if errorAssertions > 0 && errorAssertions != len(s.Assertions) {
		return fmt.Errorf("error assertions cannot be combined with plan assertions")
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSpaceCount:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for space_count", index)
		}
	case AssertJoin:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for join", index)
		}
		if a.Fetch != "" {
			if _, err := ir.ParseFetchStyle(a.Fetch); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertFetch:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for fetch", index)
		}
		if a.Fetch == "" && a.Reused == nil {
			return fmt.Errorf("assertions[%d]: fetch or reused is required for fetch", index)
		}
	case AssertPath:
		if a.Descriptor == "" && !a.Absent {
			return fmt.Errorf("assertions[%d]: descriptor or absent is required for path", index)
		}
		if a.Descriptor != "" && a.Absent {
			return fmt.Errorf("assertions[%d]: descriptor and absent are mutually exclusive", index)
		}
	case AssertAlias:
		if a.Alias == "" {
			return fmt.Errorf("assertions[%d]: alias is required for alias", index)
		}
	case AssertError:
		if a.Contains == "" && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: contains or kind is required for error", index)
		}
		switch a.Kind {
		case "", ErrorKindUnresolvable, ErrorKindUnknownRoot, ErrorKindDuplicateUID:
		default:
			return fmt.Errorf("assertions[%d]: unknown error kind %q", index, a.Kind)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a named sequence of steps
// executed against a fresh reactor.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Steps run in order. Exactly one field of each step must be set.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario operation.
type Step struct {
	// Set writes Value at the expression.
	Set   []any `yaml:"set,omitempty"`
	Value any   `yaml:"value,omitempty"`

	// Get resolves the expression, recording the outcome in the trace.
	Get []any `yaml:"get,omitempty"`

	// Expect resolves an expression and asserts on the outcome.
	Expect *Expectation `yaml:"expect,omitempty"`

	// Subscribe registers a counting subscriber under a name.
	Subscribe *Subscription `yaml:"subscribe,omitempty"`

	// Flush delivers pending notifications.
	Flush bool `yaml:"flush,omitempty"`

	// Count asserts a named subscriber's delivery count.
	Count *CountAssertion `yaml:"count,omitempty"`
}

// Expectation asserts the outcome of resolving an expression: either a
// value or an error substring.
type Expectation struct {
	Expr  []any  `yaml:"expr"`
	Value any    `yaml:"value,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Subscription registers a counting subscriber.
type Subscription struct {
	Expr []any  `yaml:"expr"`
	As   string `yaml:"as"`
}

// CountAssertion asserts a subscriber's delivery count.
type CountAssertion struct {
	Sub   string `yaml:"sub"`
	Value int    `yaml:"value"`
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("parse scenario: missing name")
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse scenario %q: no steps", s.Name)
	}
	return &s, nil
}

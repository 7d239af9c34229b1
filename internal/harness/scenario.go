package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flux/internal/demo"
)

// Scenario defines one run of the runtime.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Bus is the bus strategy: "direct" (default) or "buffered".
	Bus string `yaml:"bus,omitempty"`

	// KeepCache enables the store cache.
	KeepCache bool `yaml:"keep_cache,omitempty"`

	// Stores are resolved before the first step, in order.
	Stores []StoreRef `yaml:"stores"`

	// Steps run in order, each followed by a barrier.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// StoreRef resolves a store through the registry.
type StoreRef struct {
	// Name is the alias assertions refer to.
	Name string `yaml:"name"`

	// Kind is the store kind ("todo" or "user").
	Kind string `yaml:"kind"`

	// Tag selects a cached instance. Empty means untagged.
	Tag string `yaml:"tag,omitempty"`
}

// Step sends one action, or runs concurrent posters.
type Step struct {
	// Send is the action kind.
	Send string `yaml:"send,omitempty"`

	// Payload is raw input for the action helper: a user index or a
	// "kind:position" command.
	Payload any `yaml:"payload,omitempty"`

	// Todo is a single to-do payload.
	Todo *demo.Todo `yaml:"todo,omitempty"`

	// Todos is a to-do list payload.
	Todos []demo.Todo `yaml:"todos,omitempty"`

	// Async sends off the calling goroutine.
	Async bool `yaml:"async,omitempty"`

	// ExpectError is the error code the send must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Concurrent runs several posters at once.
	Concurrent *Concurrent `yaml:"concurrent,omitempty"`
}

// Concurrent sends Repeat to-dos from each of Posters goroutines. Poster p
// sends IDs p*Repeat through p*Repeat+Repeat-1 in order, with memo
// "poster-p".
type Concurrent struct {
	Posters int    `yaml:"posters"`
	Repeat  int    `yaml:"repeat"`
	Send    string `yaml:"send"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Store is the store alias (count, item, events, poster_order).
	Store string `yaml:"store,omitempty"`

	// Count is the expected entity count (count).
	Count int `yaml:"count,omitempty"`

	// Index is the entity position (item).
	Index int `yaml:"index,omitempty"`

	// Expect holds expected entity fields, subset match (item).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Events are the expected change events, in order (events). An
	// item change is written "item_changed:<position>".
	Events []string `yaml:"events,omitempty"`

	// Stores are the aliases compared by same_store.
	Stores []string `yaml:"stores,omitempty"`

	// Same is the expected outcome of same_store.
	Same bool `yaml:"same,omitempty"`
}

// Assertion type constants.
const (
	AssertCount       = "count"
	AssertItem        = "item"
	AssertEvents      = "events"
	AssertSameStore   = "same_store"
	AssertPosterOrder = "poster_order"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	aliases := make(map[string]bool, len(s.Stores))
	for i, ref := range s.Stores {
		if ref.Name == "" || ref.Kind == "" {
			return fmt.Errorf("stores[%d]: name and kind are required", i)
		}
		if aliases[ref.Name] {
			return fmt.Errorf("stores[%d]: duplicate name %q", i, ref.Name)
		}
		aliases[ref.Name] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, aliases); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if (step.Send == "") == (step.Concurrent == nil) {
		return fmt.Errorf("exactly one of send or concurrent is required")
	}
	if c := step.Concurrent; c != nil {
		if c.Posters < 1 || c.Repeat < 1 || c.Send == "" {
			return fmt.Errorf("concurrent needs posters >= 1, repeat >= 1 and send")
		}
		return nil
	}

	if step.Async && step.ExpectError != "" {
		return fmt.Errorf("expect_error cannot be combined with async")
	}

	payloads := 0
	if step.Payload != nil {
		payloads++
	}
	if step.Todo != nil {
		payloads++
	}
	if step.Todos != nil {
		payloads++
	}
	if payloads > 1 {
		return fmt.Errorf("at most one of payload, todo and todos is allowed")
	}
	return nil
}

func validateAssertion(a Assertion, aliases map[string]bool) error {
	switch a.Type {
	case AssertCount, AssertItem, AssertEvents, AssertPosterOrder:
		if !aliases[a.Store] {
			return fmt.Errorf("%s: unknown store %q", a.Type, a.Store)
		}
	case AssertSameStore:
		if len(a.Stores) != 2 {
			return fmt.Errorf("same_store needs exactly two stores")
		}
		for _, name := range a.Stores {
			if !aliases[name] {
				return fmt.Errorf("same_store: unknown store %q", name)
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

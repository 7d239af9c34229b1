package harness

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Store    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Store != "" {
		fmt.Fprintf(&buf, " (store %s)", e.Store)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a, h); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, h *Harness) error {
	switch a.Type {
	case AssertCount:
		return assertCount(result, a)
	case AssertItem:
		return assertItem(result, a)
	case AssertEvents:
		return assertEvents(h.views[a.Store].events(), a)
	case AssertSameStore:
		return assertSameStore(h, a)
	case AssertPosterOrder:
		return assertPosterOrder(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertCount(result *Result, a Assertion) error {
	if got := len(result.State[a.Store]); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Store:    a.Store,
			Expected: fmt.Sprintf("%d entities", a.Count),
			Actual:   fmt.Sprintf("%d entities", got),
		}
	}
	return nil
}

// assertItem checks the entity at Index against Expect (subset match on
// JSON field names).
func assertItem(result *Result, a Assertion) error {
	items := result.State[a.Store]
	if a.Index < 0 || a.Index >= len(items) {
		return &AssertionError{
			Type:     a.Type,
			Store:    a.Store,
			Expected: fmt.Sprintf("an entity at index %d", a.Index),
			Actual:   fmt.Sprintf("%d entities", len(items)),
		}
	}

	fields, err := toFields(items[a.Index])
	if err != nil {
		return err
	}
	for key, want := range a.Expect {
		got, ok := fields[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return &AssertionError{
				Type:     a.Type,
				Store:    a.Store,
				Expected: fmt.Sprintf("[%d].%s = %v", a.Index, key, want),
				Actual:   fmt.Sprintf("[%d].%s = %v", a.Index, key, got),
			}
		}
	}
	return nil
}

func toFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return fields, nil
}

func assertEvents(events []ir.ChangeEvent, a Assertion) error {
	got := make([]string, len(events))
	for i, ev := range events {
		got[i] = eventString(ev)
	}
	if !slices.Equal(got, a.Events) {
		return &AssertionError{
			Type:     a.Type,
			Store:    a.Store,
			Expected: fmt.Sprint(a.Events),
			Actual:   fmt.Sprint(got),
		}
	}
	return nil
}

func eventString(ev ir.ChangeEvent) string {
	if ic, ok := ev.(ir.ItemChanged); ok {
		return ev.EventType() + ":" + strconv.Itoa(ic.Position)
	}
	return ev.EventType()
}

func assertSameStore(h *Harness, a Assertion) error {
	first, second := h.stores[a.Stores[0]], h.stores[a.Stores[1]]
	if same := first == second; same != a.Same {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("same(%s, %s) = %t", a.Stores[0], a.Stores[1], a.Same),
			Actual:   fmt.Sprintf("same(%s, %s) = %t", a.Stores[0], a.Stores[1], same),
		}
	}
	return nil
}

// assertPosterOrder checks that the to-dos of each concurrent poster appear
// in the order that poster sent them.
func assertPosterOrder(result *Result, a Assertion) error {
	last := make(map[string]int)
	for i, item := range result.State[a.Store] {
		td, ok := item.(demo.Todo)
		if !ok || !strings.HasPrefix(td.Memo, "poster-") {
			continue
		}
		if prev, seen := last[td.Memo]; seen && td.ID <= prev {
			return &AssertionError{
				Type:     a.Type,
				Store:    a.Store,
				Expected: fmt.Sprintf("%s ids increasing", td.Memo),
				Actual:   fmt.Sprintf("id %d at position %d after id %d", td.ID, i, prev),
			}
		}
		last[td.Memo] = td.ID
	}
	return nil
}

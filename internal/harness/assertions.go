package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Type     string // contains, not_contains, op_count, error
	Expected string
	Actual   string
	Output   string // output or error message, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Output != "" {
		fmt.Fprintf(&buf, "\nOutput:\n%s", e.Output)
	}
	return buf.String()
}

// subject is the text substring checks run against: the output of a
// successful run or the error message of a failed one.
func subject(r *Result) string {
	if r.ErrorCode != "" {
		return r.ErrorMessage
	}
	return r.Output
}

func assertErrorCode(r *Result, want string) error {
	if want == "" {
		if r.ErrorCode == "" {
			return nil
		}
		return &AssertionError{
			Type:     "error",
			Expected: "successful compilation",
			Actual:   fmt.Sprintf("%s: %s", r.ErrorCode, r.ErrorMessage),
		}
	}
	if r.ErrorCode == want {
		return nil
	}
	actual := "successful compilation"
	if r.ErrorCode != "" {
		actual = fmt.Sprintf("%s: %s", r.ErrorCode, r.ErrorMessage)
	}
	return &AssertionError{
		Type:     "error",
		Expected: want,
		Actual:   actual,
		Output:   r.Output,
	}
}

func assertContains(r *Result, want string) error {
	text := subject(r)
	if strings.Contains(text, want) {
		return nil
	}
	return &AssertionError{
		Type:     "contains",
		Expected: fmt.Sprintf("text containing %q", want),
		Actual:   "not found",
		Output:   text,
	}
}

func assertNotContains(r *Result, unwanted string) error {
	text := subject(r)
	if !strings.Contains(text, unwanted) {
		return nil
	}
	return &AssertionError{
		Type:     "not_contains",
		Expected: fmt.Sprintf("text without %q", unwanted),
		Actual:   fmt.Sprintf("found %d occurrence(s)", strings.Count(text, unwanted)),
		Output:   text,
	}
}

func assertOpCount(r *Result, kind string, want int) error {
	got := r.OpCounts[kind]
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     "op_count",
		Expected: fmt.Sprintf("%d %s node(s)", want, kind),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// EvaluateExpect checks a result against its expectations. Returns one
// message per failed check.
func EvaluateExpect(result *Result, expect Expect) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(assertErrorCode(result, expect.Error))
	for _, want := range expect.Contains {
		add(assertContains(result, want))
	}
	for _, unwanted := range expect.NotContains {
		add(assertNotContains(result, unwanted))
	}

	// Sorted for stable failure output.
	kinds := make([]string, 0, len(expect.OpCounts))
	for kind := range expect.OpCounts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		add(assertOpCount(result, kind, expect.OpCounts[kind]))
	}
	return errs
}

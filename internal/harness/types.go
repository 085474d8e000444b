package harness

import (
	"github.com/roach88/tinypy/internal/compiler"
	"github.com/roach88/tinypy/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Output is the emitted text: the printed module or LLVM IR.
	// Empty when compilation failed.
	Output string `json:"output,omitempty"`

	// ErrorCode classifies a compilation failure, empty on success.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// OpCounts maps node kinds to their number of occurrences in the
	// final module.
	OpCounts map[string]int `json:"op_counts,omitempty"`

	Stats []compiler.PassStats `json:"stats"`

	// Run is the record logged to the scenario's run store.
	Run store.Run `json:"run"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		OpCounts: map[string]int{},
		Stats:    []compiler.PassStats{},
		Errors:   []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

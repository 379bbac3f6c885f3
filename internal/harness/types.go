package harness

import (
	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/querysql"
	"github.com/roach88/loadplan/internal/store"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds and the build outcome was expected.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Plan is the built load plan; nil when the build failed.
	Plan *plan.LoadPlan `json:"-"`

	// Aliases are the SQL aliases assigned to Plan's query spaces.
	Aliases querysql.AliasMap `json:"-"`

	// Record is the journal entry written for Plan.
	Record store.BuildRecord `json:"-"`

	// BuildErr is the error returned by the builder, if any.
	BuildErr error `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Built reports whether the build produced a plan.
func (r *Result) Built() bool {
	return r.Plan != nil
}

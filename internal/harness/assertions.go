package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/spaces"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Plan     string // Rendered plan for debugging context; empty if the build failed
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Plan != "" {
		fmt.Fprintf(&buf, "\nPlan:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Plan, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

func failure(result *Result, typ, expected, actual string) *AssertionError {
	e := &AssertionError{Type: typ, Expected: expected, Actual: actual}
	if result.Plan != nil {
		e.Plan = result.Plan.String()
	}
	return e
}

// requirePlan returns an error when there is no plan to check.
func requirePlan(result *Result, typ string) error {
	if result.Plan != nil {
		return nil
	}
	return failure(result, typ, "a built plan", fmt.Sprintf("build failed: %v", result.BuildErr))
}

// assertSpaceCount checks the number of query spaces in the plan.
func assertSpaceCount(result *Result, assertion Assertion) error {
	if err := requirePlan(result, AssertSpaceCount); err != nil {
		return err
	}
	got := len(result.Plan.QuerySpaces())
	if got != assertion.Count {
		return failure(result, AssertSpaceCount,
			fmt.Sprintf("%d query spaces", assertion.Count),
			fmt.Sprintf("%d query spaces", got))
	}
	return nil
}

// assertJoin checks that a join edge exists between spaces of the given
// descriptors, optionally with the given role and fetch style.
func assertJoin(result *Result, assertion Assertion) error {
	if err := requirePlan(result, AssertJoin); err != nil {
		return err
	}
	p := result.Plan

	for _, j := range p.Joins() {
		left, err := p.QuerySpaceByUID(j.Left)
		if err != nil {
			return err
		}
		right, err := p.QuerySpaceByUID(j.Right)
		if err != nil {
			return err
		}
		if left.Descriptor().Key != assertion.From || right.Descriptor().Key != assertion.To {
			continue
		}
		if assertion.Role != "" && j.Role != assertion.Role {
			continue
		}
		if assertion.Fetch != "" && j.Fetch.String() != assertion.Fetch {
			continue
		}
		return nil
	}

	return failure(result, AssertJoin, describeJoinAssertion(assertion), "no matching join")
}

func describeJoinAssertion(a Assertion) string {
	desc := fmt.Sprintf("join %s -> %s", a.From, a.To)
	if a.Role != "" {
		desc += " role=" + a.Role
	}
	if a.Fetch != "" {
		desc += " fetch=" + a.Fetch
	}
	return desc
}

// assertFetch checks the strategy and reuse flag of the fetch at a path.
func assertFetch(result *Result, assertion Assertion) error {
	if err := requirePlan(result, AssertFetch); err != nil {
		return err
	}

	var found plan.Fetch
	for _, f := range result.Plan.Fetches() {
		if f.PropertyPath().String() == assertion.Path {
			found = f
			break
		}
	}
	if found == nil {
		return failure(result, AssertFetch,
			fmt.Sprintf("a fetch at %q", assertion.Path), "no fetch at that path")
	}

	if assertion.Fetch != "" && found.Strategy().String() != assertion.Fetch {
		return failure(result, AssertFetch,
			fmt.Sprintf("fetch=%s at %q", assertion.Fetch, assertion.Path),
			fmt.Sprintf("fetch=%s", found.Strategy()))
	}
	if assertion.Reused != nil && found.Reused() != *assertion.Reused {
		return failure(result, AssertFetch,
			fmt.Sprintf("reused=%t at %q", *assertion.Reused, assertion.Path),
			fmt.Sprintf("reused=%t", found.Reused()))
	}
	return nil
}

// referenceAt returns the reference whose property path renders as path.
// The empty path addresses the root.
func referenceAt(p *plan.LoadPlan, path string) plan.Reference {
	var found plan.Reference
	p.Walk(func(ref plan.Reference, _ int) bool {
		if found != nil {
			return false
		}
		if ref.PropertyPath().String() == path {
			found = ref
			return false
		}
		return true
	})
	return found
}

// assertPath checks which descriptor, if any, is loaded at a path.
func assertPath(result *Result, assertion Assertion) error {
	if err := requirePlan(result, AssertPath); err != nil {
		return err
	}

	ref := referenceAt(result.Plan, assertion.Path)
	if assertion.Absent {
		if ref != nil {
			return failure(result, AssertPath,
				fmt.Sprintf("nothing at %q", assertion.Path),
				fmt.Sprintf("%s %s", plan.ReferenceKind(ref), ref.QuerySpace().Descriptor().Key))
		}
		return nil
	}

	if ref == nil {
		return failure(result, AssertPath,
			fmt.Sprintf("%s at %q", assertion.Descriptor, assertion.Path), "no reference at that path")
	}
	if got := ref.QuerySpace().Descriptor().Key; got != assertion.Descriptor {
		return failure(result, AssertPath,
			fmt.Sprintf("%s at %q", assertion.Descriptor, assertion.Path), got)
	}
	return nil
}

// assertAlias checks the SQL alias of the space loaded at a path.
func assertAlias(result *Result, assertion Assertion) error {
	if err := requirePlan(result, AssertAlias); err != nil {
		return err
	}

	ref := referenceAt(result.Plan, assertion.Path)
	if ref == nil {
		return failure(result, AssertAlias,
			fmt.Sprintf("alias %s at %q", assertion.Alias, assertion.Path), "no reference at that path")
	}
	alias, err := result.Aliases.Alias(ref.QuerySpace().UID())
	if err != nil {
		return failure(result, AssertAlias,
			fmt.Sprintf("alias %s at %q", assertion.Alias, assertion.Path), err.Error())
	}
	if alias != assertion.Alias {
		return failure(result, AssertAlias,
			fmt.Sprintf("alias %s at %q", assertion.Alias, assertion.Path), alias)
	}
	return nil
}

// assertError checks that the build failed as expected.
func assertError(result *Result, assertion Assertion) error {
	if result.BuildErr == nil {
		return failure(result, AssertError, describeErrorAssertion(assertion), "build succeeded")
	}

	msg := result.BuildErr.Error()
	if assertion.Contains != "" && !strings.Contains(msg, assertion.Contains) {
		return failure(result, AssertError, describeErrorAssertion(assertion), msg)
	}
	if assertion.Kind != "" && errorKind(result.BuildErr) != assertion.Kind {
		return failure(result, AssertError, describeErrorAssertion(assertion),
			fmt.Sprintf("%s error: %s", errorKindOrUnknown(result.BuildErr), msg))
	}
	return nil
}

func describeErrorAssertion(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, a.Kind+" error")
	} else {
		parts = append(parts, "build error")
	}
	if a.Contains != "" {
		parts = append(parts, fmt.Sprintf("containing %q", a.Contains))
	}
	return strings.Join(parts, " ")
}

// errorKind classifies a build error for error assertions.
func errorKind(err error) string {
	switch {
	case plan.IsUnresolvableAssociation(err):
		return ErrorKindUnresolvable
	case errors.Is(err, plan.ErrUnknownRoot):
		return ErrorKindUnknownRoot
	case spaces.IsDuplicateUID(err):
		return ErrorKindDuplicateUID
	default:
		return ""
	}
}

func errorKindOrUnknown(err error) string {
	if kind := errorKind(err); kind != "" {
		return kind
	}
	return "unclassified"
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSpaceCount:
			err = assertSpaceCount(result, assertion)
		case AssertJoin:
			err = assertJoin(result, assertion)
		case AssertFetch:
			err = assertFetch(result, assertion)
		case AssertPath:
			err = assertPath(result, assertion)
		case AssertAlias:
			err = assertAlias(result, assertion)
		case AssertError:
			err = assertError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

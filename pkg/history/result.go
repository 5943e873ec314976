package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownResult is returned when a result name does not match any Result
var ErrUnknownResult = errors.New("unknown build result")

// Result is the outcome of a finished build.
type Result string

// Build results, ordered from best to worst except ABORTED
const (
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultNotBuilt Result = "NOT_BUILT"
	ResultAborted  Result = "ABORTED"
)

// Results lists every valid Result
func Results() []Result {
	return []Result{ResultSuccess, ResultUnstable, ResultFailure, ResultNotBuilt, ResultAborted}
}

// ParseResult matches a result name case-insensitively. Unlike a lenient
// lookup it never falls back to FAILURE for unrecognised input.
func ParseResult(name string) (Result, error) {
	candidate := Result(strings.ToUpper(strings.TrimSpace(name)))
	for _, r := range Results() {
		if r == candidate {
			return r, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownResult, name)
}

// Ptr returns a pointer to a copy of r, for populating CompletedEntry.Result.
func (r Result) Ptr() *Result {
	return &r
}

// UnmarshalJSON rejects names that are not a valid Result.
func (r *Result) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	parsed, err := ParseResult(name)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

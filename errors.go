package redlock

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// ResourceLockedError reports that a store's script applied to fewer
// keys than requested: for acquire, some key was already held; for
// extend or release, some key did not hold this lock's value.
type ResourceLockedError struct {
	// Granted is the number of keys the script actually applied to.
	Granted int
	// Requested is the number of keys in the operation.
	Requested int
}

func (e *ResourceLockedError) Error() string {
	return fmt.Sprintf("redlock: the operation was applied to: %d of the %d requested resources.", e.Granted, e.Requested)
}

// ExecutionError reports that the quorum engine exhausted its retry
// budget without a quorum of "for" votes. Attempts carries every
// attempt's full stats, resolved in order, for diagnostics.
type ExecutionError struct {
	Attempts []*ExecutionStats
}

func (e *ExecutionError) Error() string {
	var merr *multierror.Error
	for _, a := range e.Attempts {
		for store, cause := range a.VotesAgainst {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", store, cause))
		}
	}
	if merr == nil || len(merr.Errors) == 0 {
		return fmt.Sprintf("redlock: quorum not reached after %d attempts", len(e.Attempts))
	}
	return fmt.Sprintf("redlock: quorum not reached after %d attempts: %s", len(e.Attempts), merr.Error())
}

// Unwrap exposes the aggregated per-store causes so callers using
// errors.Is/errors.As can inspect individual failures.
func (e *ExecutionError) Unwrap() []error {
	var out []error
	for _, a := range e.Attempts {
		for _, cause := range a.VotesAgainst {
			out = append(out, cause)
		}
	}
	return out
}

// domainError is a plain programmer-error: non-integer duration, an
// empty store set, an invalid extension threshold, or extending an
// already-expired lock. These are never retried or voted on.
type domainError struct {
	msg string
}

func (e *domainError) Error() string { return e.msg }

func newDomainError(format string, args ...interface{}) error {
	return &domainError{msg: "redlock: " + strings.TrimSpace(fmt.Sprintf(format, args...))}
}

package nvd

import (
	"fmt"
)

// ValidationError reports an identifier field that failed validation.
// Either Bound (with Limit) or Reason is set.
type ValidationError struct {
	Field  string
	Bound  string // "min" or "max" for length violations
	Limit  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Bound != "" {
		return fmt.Sprintf("invalid %s: length must be %s %d", e.Field, boundWord(e.Bound), e.Limit)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func boundWord(bound string) string {
	if bound == BoundMin {
		return "at least"
	}
	return "at most"
}

// Length bound names used in ValidationError.Bound
const (
	BoundMin = "min"
	BoundMax = "max"
)

// Cause classifies why an external lookup failed
type Cause string

const (
	CauseTimeout Cause = "timeout"
	CauseNetwork Cause = "network"
	CauseStatus  Cause = "status"
	CauseParse   Cause = "parse"
)

// LookupError is returned when a call against the vulnerability database fails
type LookupError struct {
	Op         string // "resolve" or "detail"
	Cause      Cause
	StatusCode int // set when Cause is CauseStatus
	Err        error
}

func (e *LookupError) Error() string {
	if e.Cause == CauseStatus {
		return fmt.Sprintf("nvd %s lookup failed (%s %d): %v", e.Op, e.Cause, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("nvd %s lookup failed (%s): %v", e.Op, e.Cause, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Stage names the aggregation step that failed
type Stage string

const (
	StageResolve Stage = "resolve"
	StageDetail  Stage = "detail"
)

// AggregationError wraps the lookup failure that aborted an aggregation
type AggregationError struct {
	Stage Stage
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed at %s stage: %v", e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

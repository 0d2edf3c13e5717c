package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxDeliveries bounds the deliveries of a single run.
const DefaultMaxDeliveries = 10000

// QuotaEnforcer counts the deliveries of one run and fails once the
// limit is passed.
//
// Monotone calculators over a finite network always settle, so hitting
// the quota means either a very large network or a resolver that keeps
// producing new values.
type QuotaEnforcer struct {
	limit   int
	current int
}

// NewQuotaEnforcer creates an enforcer allowing limit deliveries.
func NewQuotaEnforcer(limit int) *QuotaEnforcer {
	return &QuotaEnforcer{limit: limit}
}

// Check counts one delivery. It returns *StepsExceededError when the
// count passes the limit.
func (q *QuotaEnforcer) Check(runToken string) error {
	q.current++
	if q.current > q.limit {
		return &StepsExceededError{
			RunToken: runToken,
			Steps:    q.current,
			Limit:    q.limit,
		}
	}
	return nil
}

// Current returns the number of deliveries counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the configured limit.
func (q *QuotaEnforcer) Limit() int {
	return q.limit
}

// StepsExceededError is returned when a run exceeds its delivery quota.
// Reactions not yet delivered stay queued; a later Run resumes them.
type StepsExceededError struct {
	RunToken string
	Steps    int
	Limit    int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded delivery quota: %d deliveries > %d limit",
		e.RunToken, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is, or wraps, a
// StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

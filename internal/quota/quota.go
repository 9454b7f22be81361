// Package quota limits how many images an anonymous visitor may generate.
package quota

import "errors"

// ErrQuotaExceeded is returned when a guest has used up their free generations.
var ErrQuotaExceeded = errors.New("guest generation limit reached")

// GuestState is the per-session guest counter. It lives in the visitor's
// session and is never persisted to the database.
type GuestState struct {
	Generations int
}

// Tracker admits or rejects generation requests.
//
// Concurrent requests from the same session each work on their own copy of
// the state, so two of them may both be admitted. That race is accepted.
type Tracker struct {
	limit int
}

// New creates a tracker allowing limit generations per guest session.
func New(limit int) *Tracker {
	if limit < 0 {
		limit = 0
	}
	return &Tracker{limit: limit}
}

// Limit returns the configured guest limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// CheckAndConsume admits authenticated callers unconditionally. Guests are
// admitted while their counter is below the limit and the counter is
// incremented. A rejected call leaves the state untouched.
func (t *Tracker) CheckAndConsume(authenticated bool, state *GuestState) error {
	if authenticated {
		return nil
	}
	if state == nil {
		return ErrQuotaExceeded
	}
	if state.Generations >= t.limit {
		return ErrQuotaExceeded
	}
	state.Generations++
	return nil
}

// Remaining returns how many generations the guest has left.
func (t *Tracker) Remaining(state GuestState) int {
	if state.Generations >= t.limit {
		return 0
	}
	return t.limit - state.Generations
}

// Reset clears the counter, used when a session becomes authenticated.
func (t *Tracker) Reset(state *GuestState) {
	if state != nil {
		state.Generations = 0
	}
}

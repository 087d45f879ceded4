package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoDatePicked means WithTime was called before a date was fixed.
var ErrNoDatePicked = errors.New("pick a date before a time")

type draftState int

const (
	awaitingDate draftState = iota
	awaitingTime
	complete
)

// DueDraft threads the two-step date-then-time composition through a
// single edit session: first the calendar date is pinned with its
// time-of-day zeroed, then an hour and minute are applied onto that
// date. A DueDraft is an immutable value owned by the edit that created
// it; two concurrent edits can never leak an in-progress date into each
// other.
type DueDraft struct {
	state draftState
	date  time.Time // pinned local midnight
	due   time.Time
}

// NewDueDraft starts an edit session awaiting a date.
func NewDueDraft() DueDraft {
	return DueDraft{state: awaitingDate}
}

// WithDate pins the calendar day of t, dropping any previously applied
// time-of-day. Picking the same date twice yields the same draft.
func (d DueDraft) WithDate(t time.Time) DueDraft {
	day, _ := DayRange(t)
	return DueDraft{state: awaitingTime, date: day}
}

// WithTime applies an hour and minute onto the pinned date, completing
// the draft. Re-applying a time replaces the previous one.
func (d DueDraft) WithTime(hour, minute int) (DueDraft, error) {
	if d.state == awaitingDate {
		return d, ErrNoDatePicked
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return d, fmt.Errorf("invalid time %02d:%02d", hour, minute)
	}
	due := time.Date(d.date.Year(), d.date.Month(), d.date.Day(), hour, minute, 0, 0, d.date.Location())
	return DueDraft{state: complete, date: d.date, due: due}, nil
}

// Due returns the composed timestamp once both steps are done.
func (d DueDraft) Due() (time.Time, bool) {
	if d.state != complete {
		return time.Time{}, false
	}
	return d.due, true
}

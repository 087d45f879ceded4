package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/fumio65/tick/internal/model"
)

// ErrInvalidTimeBlock marks a time-block whose start does not precede
// its end, or one missing either endpoint.
var ErrInvalidTimeBlock = errors.New("invalid time-block")

// TimeBlockSource yields the incomplete time-blocked tasks a candidate
// interval is checked against.
type TimeBlockSource interface {
	ActiveTimeBlocked(ctx context.Context) ([]model.Task, error)
}

// Engine validates time-block placement before a time-blocked task is
// written. It only reports conflicts; whether a conflicting save is
// blocked or merely warned about is the caller's policy.
type Engine struct {
	source TimeBlockSource
}

func NewEngine(source TimeBlockSource) *Engine {
	return &Engine{source: source}
}

// CheckConflicts returns every active time-blocked task whose interval
// overlaps the candidate [start, end). Intervals are half-open: an
// existing block ending exactly at the candidate start (or starting at
// its end) does not conflict. The task identified by excludeID is
// skipped so edits do not collide with their own previous version.
func (e *Engine) CheckConflicts(ctx context.Context, start, end time.Time, excludeID uint) ([]model.Task, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeBlock
	}

	blocked, err := e.source.ActiveTimeBlocked(ctx)
	if err != nil {
		return nil, err
	}

	var conflicts []model.Task
	for _, t := range blocked {
		if t.ID == excludeID || t.StartTime == nil || t.EndTime == nil {
			continue
		}
		if t.StartTime.Before(end) && t.EndTime.After(start) {
			conflicts = append(conflicts, t)
		}
	}
	return conflicts, nil
}

// ValidateTimeBlock rejects a time-blocked task without both endpoints
// or with start at or after end. Tasks that are not time-blocked pass.
func ValidateTimeBlock(task *model.Task) error {
	if !task.IsTimeBlocked {
		return nil
	}
	if task.StartTime == nil || task.EndTime == nil {
		return ErrInvalidTimeBlock
	}
	if !task.StartTime.Before(*task.EndTime) {
		return ErrInvalidTimeBlock
	}
	return nil
}

// DayRange returns the half-open [midnight, next midnight) interval of
// the calendar day containing t, in t's location. Day-bounded queries
// use this instead of raw timestamp arithmetic so DST transitions keep
// the right boundaries.
func DayRange(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}

package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	delivered []uint
	fired     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{fired: make(chan struct{}, 16)}
}

func (s *recordingSink) Deliver(taskID uint, title string, firesAt time.Time) {
	s.mu.Lock()
	s.delivered = append(s.delivered, taskID)
	s.mu.Unlock()
	s.fired <- struct{}{}
}

func TestCronDispatcher_PastReminderFiresImmediately(t *testing.T) {
	sink := newRecordingSink()
	d := NewCronDispatcher(time.UTC, sink)

	d.ScheduleReminder(1, "already due", time.Now().Add(-time.Minute))

	select {
	case <-sink.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past reminder was not delivered")
	}
	require.Zero(t, d.Pending())
}

func TestCronDispatcher_ReplaceAndCancelBookkeeping(t *testing.T) {
	d := NewCronDispatcher(time.UTC, newRecordingSink())
	future := time.Now().Add(time.Hour)

	d.ScheduleReminder(1, "first", future)
	d.ScheduleReminder(2, "second", future.Add(time.Hour))
	require.Equal(t, 2, d.Pending())

	// Re-scheduling the same task replaces, not duplicates.
	d.ScheduleReminder(1, "first moved", future.Add(30*time.Minute))
	require.Equal(t, 2, d.Pending())

	d.CancelReminder(1)
	require.Equal(t, 1, d.Pending())

	// Cancelling twice is harmless.
	d.CancelReminder(1)
	require.Equal(t, 1, d.Pending())
}

func TestCronDispatcher_FiresAtInstantInForeignZone(t *testing.T) {
	sink := newRecordingSink()
	d := NewCronDispatcher(time.UTC, sink)
	d.Start()
	defer d.Stop()

	// The instant is what matters, not the wall-clock fields of the
	// zone the caller happened to express it in.
	firesAt := time.Now().Add(2 * time.Second).In(time.FixedZone("UTC+5", 5*3600))
	d.ScheduleReminder(3, "zoned", firesAt)
	require.Equal(t, 1, d.Pending())

	select {
	case <-sink.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("reminder did not fire at its instant")
	}
	require.Eventually(t, func() bool { return d.Pending() == 0 },
		2*time.Second, 10*time.Millisecond, "fired entry was not retired")
}

func TestCronDispatcher_PrematureYearlyMatchStaysArmed(t *testing.T) {
	sink := newRecordingSink()
	d := NewCronDispatcher(time.UTC, sink)

	farOut := time.Now().Add(400 * 24 * time.Hour)
	d.ScheduleReminder(9, "next year", farOut)
	require.Equal(t, 1, d.Pending())

	// The yearly spec matches the calendar once before the reminder is
	// due; that run must neither deliver nor drop the entry.
	d.fire(9, "next year", farOut)
	select {
	case <-sink.fired:
		t.Fatal("premature match delivered the reminder")
	default:
	}
	require.Equal(t, 1, d.Pending())

	// A due run delivers and retires.
	d.fire(9, "next year", time.Now())
	select {
	case <-sink.fired:
	case <-time.After(time.Second):
		t.Fatal("due run did not deliver")
	}
	require.Zero(t, d.Pending())
}

func TestCronDispatcher_StartStop(t *testing.T) {
	d := NewCronDispatcher(time.UTC, newRecordingSink())
	d.Start()
	d.ScheduleReminder(5, "pending", time.Now().Add(time.Hour))
	d.Stop()
	require.Equal(t, 1, d.Pending())
}

package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Dispatcher arranges future reminder delivery for tasks. It is a
// fire-and-forget collaborator: failures are logged here, never
// surfaced to the caller, and delivery is best-effort.
type Dispatcher interface {
	ScheduleReminder(taskID uint, title string, firesAt time.Time)
	CancelReminder(taskID uint)
}

// Sink receives a reminder when it fires.
type Sink interface {
	Deliver(taskID uint, title string, firesAt time.Time)
}

// LogSink writes reminders to the process log; the default delivery
// channel when no other is configured.
type LogSink struct{}

func (LogSink) Deliver(taskID uint, title string, firesAt time.Time) {
	log.Printf("[info] reminder for task %d: %s (due %s)", taskID, title, firesAt.Format("2006-01-02 15:04"))
}

// CronDispatcher wraps cron-based one-shot reminder jobs, one entry per
// task. Scheduling a task that already has a reminder replaces it.
type CronDispatcher struct {
	cron *cron.Cron
	sink Sink
	loc  *time.Location

	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

func NewCronDispatcher(loc *time.Location, sink Sink) *CronDispatcher {
	return &CronDispatcher{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		sink:    sink,
		loc:     loc,
		entries: make(map[uint]cron.EntryID),
	}
}

func (d *CronDispatcher) Start() {
	d.cron.Start()
}

func (d *CronDispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// ScheduleReminder arranges delivery at firesAt. A reminder already in
// the past is delivered immediately.
func (d *CronDispatcher) ScheduleReminder(taskID uint, title string, firesAt time.Time) {
	d.CancelReminder(taskID)

	if !firesAt.After(time.Now()) {
		go d.sink.Deliver(taskID, title, firesAt)
		return
	}

	// The cron runner matches wall-clock fields in its own location, so
	// the spec must be built from firesAt expressed there.
	spec := oneShotSpec(firesAt.In(d.loc))

	// The map write happens under mu before the entry can complete a
	// run: a job firing right away blocks in fire's CancelReminder until
	// the entry is recorded, so it always cleans up after itself.
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.cron.AddFunc(spec, func() {
		d.fire(taskID, title, firesAt)
	})
	if err != nil {
		log.Printf("[warn] schedule reminder for task %d: %v", taskID, err)
		return
	}
	d.entries[taskID] = id
}

// fire delivers a due reminder and retires its entry. A one-shot spec
// still recurs yearly, so a reminder scheduled more than a year ahead
// matches the calendar once before it is due; those premature runs are
// skipped and the entry stays armed.
func (d *CronDispatcher) fire(taskID uint, title string, firesAt time.Time) {
	if time.Until(firesAt) > time.Minute {
		return
	}
	d.sink.Deliver(taskID, title, firesAt)
	d.CancelReminder(taskID)
}

// CancelReminder drops the pending reminder, if any.
func (d *CronDispatcher) CancelReminder(taskID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.entries[taskID]; ok {
		d.cron.Remove(id)
		delete(d.entries, taskID)
	}
}

// Pending reports how many reminders are currently scheduled.
func (d *CronDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// oneShotSpec pins the fire time down to the second; fire retires the
// entry on its first due run.
func oneShotSpec(t time.Time) string {
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("%d %d %d %d %d *", t.Second(), t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}

package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/crystaldolphin/tickerbot/internal/scheduler"
)

// Callback is the user-level function a job runs on every tick.
type Callback func(ctx context.Context, c *CallbackContext) error

// CallbackContext is handed to a Callback when its job fires.
type CallbackContext struct {
	Sender Sender
	Queue  *Queue
	Job    *Job
}

// Job is the chat-facing wrapper around a scheduler entry. It carries the
// addressing context (chat and user) and the payload the callback works on.
type Job struct {
	entry *scheduler.Job
	queue *Queue

	// stateMu orders enable changes and hydration against Snapshot, so the
	// enabled flag and the entry's next run time are always read together.
	// Taken before mu and before any scheduler lock.
	stateMu sync.Mutex

	mu       sync.Mutex
	callback Callback
	data     any
	name     string
	chatID   int64
	userID   int64
	enabled  bool
	removed  bool
}

func (j *Job) Entry() *scheduler.Job { return j.entry }
func (j *Job) ID() string            { return j.entry.ID() }

func (j *Job) Callback() Callback {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.callback
}

func (j *Job) Data() any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data
}

func (j *Job) Name() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.name
}

func (j *Job) ChatID() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.chatID
}

func (j *Job) UserID() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.userID
}

func (j *Job) Enabled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enabled
}

func (j *Job) Removed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.removed
}

// NextRunTime is the next tick, nil while disabled.
func (j *Job) NextRunTime() *time.Time { return j.entry.NextRunTime() }

// Snapshot is a consistent copy of a job: wrapper fields and entry state
// read at the same instant.
type Snapshot struct {
	Callback Callback
	Data     any
	Name     string
	ChatID   int64
	UserID   int64
	Enabled  bool
	Removed  bool
	State    scheduler.State
}

// Snapshot copies the job. It must not be called from a scheduler listener
// reacting to this job's SetEnabled.
func (j *Job) Snapshot() Snapshot {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()

	st := j.entry.State()
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		Callback: j.callback,
		Data:     j.data,
		Name:     j.name,
		ChatID:   j.chatID,
		UserID:   j.userID,
		Enabled:  j.enabled,
		Removed:  j.removed,
		State:    st,
	}
}

// SetEnabled pauses or resumes the underlying entry.
func (j *Job) SetEnabled(enabled bool) error {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()

	var err error
	if enabled {
		err = j.queue.scheduler.ResumeJob(j.entry.ID())
	} else {
		err = j.queue.scheduler.PauseJob(j.entry.ID())
	}
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.enabled = enabled
	j.mu.Unlock()
	return nil
}

// ScheduleRemoval marks the job removed and drops it from the scheduler.
func (j *Job) ScheduleRemoval() error {
	j.mu.Lock()
	j.removed = true
	j.mu.Unlock()
	if err := j.queue.scheduler.RemoveJob(j.entry.ID()); err != nil {
		return err
	}
	j.queue.untrack(j.entry)
	return nil
}

// Run fires the job's callback once, outside its schedule.
func (j *Job) Run(ctx context.Context) error {
	return j.queue.invoke(ctx, j)
}

package scheduler

import (
	"context"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// Func is the dispatch entrypoint of a job. args is the argument tuple bound
// with the job; the engine never inspects it.
type Func func(ctx context.Context, args ...any) error

// Job is a live entry owned by a Scheduler.
type Job struct {
	s   *Scheduler
	key string // map key in s.jobs; guarded by s.mu

	entryID robfigcron.EntryID // guarded by s.mu
	armed   bool               // guarded by mu; false until robfig asked for the first fire time

	mu    sync.Mutex
	state State
	fn    Func
	args  []any
}

// ID returns the identity recorded in the job's state.
func (j *Job) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.ID
}

// State returns a deep copy of the job's internal state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.clone()
}

// NextRunTime returns the next scheduled fire time, nil while paused.
func (j *Job) NextRunTime() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return copyTime(j.state.NextRunTime)
}

// Args returns a copy of the bound argument tuple.
func (j *Job) Args() []any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]any(nil), j.args...)
}

// SetState overwrites the whole internal state, identity included. Callers
// restoring a snapshot into a fresh job must re-pin the identity afterwards
// with SetID. The job is re-armed when the scheduler runs.
func (j *Job) SetState(st State) {
	j.mu.Lock()
	j.state = st.clone()
	j.mu.Unlock()

	j.s.reschedule(j)
	j.s.dispatch(Event{Kind: EventJobModified, JobID: j.s.keyOf(j)})
}

// SetID re-keys the job under id.
func (j *Job) SetID(id string) error {
	return j.s.rekey(j, id)
}

// Bind replaces the dispatch entrypoint and argument tuple.
func (j *Job) Bind(fn Func, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fn = fn
	j.args = append([]any(nil), args...)
}

// advance is called by robfig whenever it needs the entry's next fire time:
// once when the entry is armed, then after every fire.
func (j *Job) advance(now time.Time) time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.NextRunTime == nil {
		return time.Time{}
	}
	due := *j.state.NextRunTime
	if due.After(now) {
		j.armed = true
		return due
	}
	if !j.armed {
		j.armed = true
		// An overdue one-shot still fires once; periodic jobs skip the slots
		// missed while the process was down.
		if j.state.Trigger.Kind == TriggerDate && j.state.Runs == 0 {
			return due
		}
	}
	next := j.state.Trigger.Next(due, now)
	if next.IsZero() {
		j.state.NextRunTime = nil
	} else {
		j.state.NextRunTime = &next
	}
	return next
}

// schedule adapts a Job to robfig's Schedule interface.
type schedule struct{ j *Job }

func (s schedule) Next(now time.Time) time.Time { return s.j.advance(now) }

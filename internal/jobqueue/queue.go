// Package jobqueue is the bot-facing layer over the scheduler. Every job it
// creates dispatches through Queue.dispatch with the argument tuple
// (queue, job), so callbacks receive a CallbackContext carrying the chat
// sender and their own job.
//
// Jobs are normally created in one step (RunRepeating, RunDaily, RunOnce,
// RunCustom). Restoring a persisted job uses a documented two-phase
// construction instead: CreateShell allocates a paused job with a fresh
// identity, and Hydrate overwrites its scheduler state from a snapshot and
// rebinds dispatch.
package jobqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/crystaldolphin/tickerbot/internal/scheduler"
)

// Sender delivers text to a chat. Implemented by the Telegram bot.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// ErrBadDispatchArgs is returned when an entry is dispatched with an
// argument tuple that is not (queue, job).
var ErrBadDispatchArgs = errors.New("dispatch expects (queue, job) arguments")

// Options addresses a new job.
type Options struct {
	Name   string
	ChatID int64
	UserID int64
	Data   any
}

// Queue creates and tracks chat jobs on top of a scheduler.
type Queue struct {
	scheduler *scheduler.Scheduler
	sender    Sender

	mu   sync.Mutex
	jobs map[*scheduler.Job]*Job
}

// New creates a Queue. sender may be nil until the transport is ready; see
// SetSender.
func New(s *scheduler.Scheduler, sender Sender) *Queue {
	q := &Queue{
		scheduler: s,
		sender:    sender,
		jobs:      make(map[*scheduler.Job]*Job),
	}
	s.AddListener(q.forget, scheduler.EventJobRemoved)
	return q
}

// SetSender replaces the transport used by callbacks.
func (q *Queue) SetSender(sender Sender) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sender = sender
}

// Scheduler exposes the underlying engine.
func (q *Queue) Scheduler() *scheduler.Scheduler { return q.scheduler }

// RunRepeating schedules cb every interval, first one interval from now.
func (q *Queue) RunRepeating(cb Callback, interval time.Duration, opts Options) (*Job, error) {
	return q.RunCustom(cb, scheduler.Interval(interval, time.Now().Add(interval)), opts)
}

// RunDaily schedules cb on a cron expression such as "0 9 * * *".
func (q *Queue) RunDaily(cb Callback, expr, tz string, opts Options) (*Job, error) {
	return q.RunCustom(cb, scheduler.Cron(expr, tz), opts)
}

// RunOnce schedules cb a single time.
func (q *Queue) RunOnce(cb Callback, at time.Time, opts Options) (*Job, error) {
	return q.RunCustom(cb, scheduler.Date(at), opts)
}

// RunCustom schedules cb with an arbitrary trigger.
func (q *Queue) RunCustom(cb Callback, trigger scheduler.Trigger, opts Options) (*Job, error) {
	return q.create(cb, trigger, opts, false)
}

// CreateShell is the first construction phase used by restore: it creates a
// paused job through the normal creation path so the scheduler allocates a
// fresh identity and default state. The shell never fires until Hydrate.
func (q *Queue) CreateShell(cb Callback, opts Options) (*Job, error) {
	// The trigger is a placeholder; Hydrate replaces it.
	return q.create(cb, scheduler.Interval(time.Hour, time.Time{}), opts, true)
}

// Hydrate is the second construction phase. It overwrites the shell's
// scheduler state with st, re-pins the identity the scheduler allocated for
// the shell so a stale id inside st cannot leak in, then rebinds dispatch to
// (q.dispatch, q, job). The order matters: identity after state, dispatch
// last.
func (q *Queue) Hydrate(job *Job, st scheduler.State, enabled, removed bool) error {
	job.stateMu.Lock()
	defer job.stateMu.Unlock()

	entry := job.entry
	id := entry.ID()

	entry.SetState(st)
	if err := entry.SetID(id); err != nil {
		return errors.Wrapf(err, "hydrate %s", job.Name())
	}
	entry.Bind(q.dispatch, q, job)

	job.mu.Lock()
	job.enabled = enabled
	job.removed = removed
	job.mu.Unlock()
	return nil
}

func (q *Queue) create(cb Callback, trigger scheduler.Trigger, opts Options, paused bool) (*Job, error) {
	if cb == nil {
		return nil, errors.New("jobqueue: nil callback")
	}
	job := &Job{
		queue:    q,
		callback: cb,
		data:     opts.Data,
		name:     opts.Name,
		chatID:   opts.ChatID,
		userID:   opts.UserID,
		enabled:  !paused,
	}
	// The wrapper must be known to the queue before AddJob returns: a running
	// scheduler announces the job to listeners from inside AddJob, and they
	// enumerate jobs through Jobs.
	_, err := q.scheduler.AddJob(scheduler.JobSpec{
		Func:    q.dispatch,
		Args:    []any{q, job},
		Trigger: trigger,
		Name:    opts.Name,
		Paused:  paused,
		OnCreate: func(e *scheduler.Job) {
			job.entry = e
			q.track(e, job)
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (q *Queue) track(e *scheduler.Job, job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[e] = job
}

func (q *Queue) untrack(e *scheduler.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, e)
}

// Jobs returns the wrappers of all live scheduler entries, in creation order.
func (q *Queue) Jobs() []*Job {
	entries := q.scheduler.Jobs()
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Job, 0, len(entries))
	for _, e := range entries {
		if j, ok := q.jobs[e]; ok {
			out = append(out, j)
		}
	}
	return out
}

// forget drops the wrapper of a removed entry.
func (q *Queue) forget(ev scheduler.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for e := range q.jobs {
		if e.ID() == ev.JobID {
			delete(q.jobs, e)
			return
		}
	}
}

// JobsByName returns live jobs named name.
func (q *Queue) JobsByName(name string) []*Job {
	var out []*Job
	for _, j := range q.Jobs() {
		if j.Name() == name {
			out = append(out, j)
		}
	}
	return out
}

// dispatch is the standard entrypoint bound to every entry created by the
// queue. It unpacks the (queue, job) tuple and invokes the job's callback.
func (q *Queue) dispatch(ctx context.Context, args ...any) error {
	if len(args) != 2 {
		return ErrBadDispatchArgs
	}
	owner, ok := args[0].(*Queue)
	if !ok {
		return ErrBadDispatchArgs
	}
	job, ok := args[1].(*Job)
	if !ok {
		return ErrBadDispatchArgs
	}
	return owner.invoke(ctx, job)
}

func (q *Queue) invoke(ctx context.Context, job *Job) error {
	cb := job.Callback()
	q.mu.Lock()
	sender := q.sender
	q.mu.Unlock()

	if err := cb(ctx, &CallbackContext{Sender: sender, Queue: q, Job: job}); err != nil {
		slog.Error("jobqueue: callback failed", "job", job.Name(), "chat", job.ChatID(), "err", err)
		return errors.Wrapf(err, "job %s", job.Name())
	}
	return nil
}

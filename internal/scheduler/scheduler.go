// Package scheduler is the recurring-job engine behind the bot's job queue.
//
// It drives robfig/cron with one custom Schedule per job so that every job's
// timing lives in a plain State value that can be snapshotted and restored.
// Jobs added before Start are pending: they are armed, and announced to
// listeners as EventJobAdded, when Start runs.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned for operations on an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// ErrDuplicateID is returned when re-keying a job onto an id already in use.
var ErrDuplicateID = errors.New("job id already in use")

// JobSpec describes a job to add.
type JobSpec struct {
	Func    Func
	Args    []any
	Trigger Trigger
	Name    string
	Paused  bool // create without a next run time

	// OnCreate, if set, sees the entry before it is registered or announced.
	OnCreate func(*Job)
}

// Scheduler owns all live jobs.
type Scheduler struct {
	mu        sync.Mutex
	cron      *robfigcron.Cron
	jobs      map[string]*Job
	order     []string
	listeners []listenerEntry
	running   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped Scheduler. loc is the time zone robfig uses for its
// clock; nil means local time.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		cron: robfigcron.New(
			robfigcron.WithLocation(loc),
			robfigcron.WithLogger(logger),
			robfigcron.WithChain(robfigcron.Recover(logger)),
		),
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a new job with a fresh identity.
func (s *Scheduler) AddJob(spec JobSpec) (*Job, error) {
	if err := spec.Trigger.Validate(); err != nil {
		return nil, errors.Wrap(err, "add job")
	}
	id := uuid.NewString()
	st := State{ID: id, Name: spec.Name, Trigger: spec.Trigger}
	if !spec.Paused {
		next := spec.Trigger.Next(time.Time{}, time.Now())
		if !next.IsZero() {
			st.NextRunTime = &next
		}
	}
	j := &Job{
		s:     s,
		key:   id,
		state: st,
		fn:    spec.Func,
		args:  append([]any(nil), spec.Args...),
	}
	if spec.OnCreate != nil {
		spec.OnCreate(j)
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.order = append(s.order, id)
	if s.running {
		s.armLocked(j)
	}
	s.mu.Unlock()

	slog.Debug("scheduler: added job", "id", id, "name", spec.Name, "trigger", spec.Trigger.String())
	s.dispatch(Event{Kind: EventJobAdded, JobID: id})
	return j, nil
}

// RemoveJob deletes a job; its robfig entry stops firing immediately.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrJobNotFound, "remove %s", id)
	}
	delete(s.jobs, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if j.entryID != 0 {
		s.cron.Remove(j.entryID)
		j.entryID = 0
	}
	s.mu.Unlock()

	slog.Debug("scheduler: removed job", "id", id)
	s.dispatch(Event{Kind: EventJobRemoved, JobID: id})
	return nil
}

// Job returns the job registered under id.
func (s *Scheduler) Job(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Jobs returns all live jobs in creation order.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// PauseJob clears the job's next run time.
func (s *Scheduler) PauseJob(id string) error {
	j, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "pause %s", id)
	}
	j.mu.Lock()
	j.state.NextRunTime = nil
	j.mu.Unlock()

	s.reschedule(j)
	s.dispatch(Event{Kind: EventJobModified, JobID: id})
	return nil
}

// ResumeJob recomputes the next run time of a paused job.
func (s *Scheduler) ResumeJob(id string) error {
	j, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "resume %s", id)
	}
	j.mu.Lock()
	var prev time.Time
	if j.state.LastRunTime != nil {
		prev = *j.state.LastRunTime
	}
	next := j.state.Trigger.Next(prev, time.Now())
	if next.IsZero() {
		j.state.NextRunTime = nil
	} else {
		j.state.NextRunTime = &next
	}
	j.mu.Unlock()

	s.reschedule(j)
	s.dispatch(Event{Kind: EventJobModified, JobID: id})
	return nil
}

// Start arms every pending job, starts the robfig loop and announces the
// pending jobs to listeners.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	for _, id := range s.order {
		j := s.jobs[id]
		if j.entryID != 0 {
			s.cron.Remove(j.entryID)
		}
		s.armLocked(j)
	}
	pending := append([]string(nil), s.order...)
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	slog.Info("scheduler: started", "jobs", len(pending))

	for _, id := range pending {
		s.dispatch(Event{Kind: EventJobAdded, JobID: id})
	}
}

// Stop halts firing. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.cancel()
	return s.cron.Stop()
}

// Running reports whether Start has been called and Stop has not.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// armLocked hands j to robfig. s.mu must be held and j.mu must not be.
func (s *Scheduler) armLocked(j *Job) {
	j.mu.Lock()
	j.armed = false
	j.mu.Unlock()
	j.entryID = s.cron.Schedule(schedule{j: j}, robfigcron.FuncJob(func() { s.fire(j) }))
}

func (s *Scheduler) reschedule(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.jobs[j.key] != j {
		return
	}
	if j.entryID != 0 {
		s.cron.Remove(j.entryID)
	}
	s.armLocked(j)
}

func (s *Scheduler) rekey(j *Job, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other, ok := s.jobs[id]; ok && other != j {
		return errors.Wrapf(ErrDuplicateID, "rekey to %s", id)
	}
	if cur, ok := s.jobs[j.key]; ok && cur == j {
		delete(s.jobs, j.key)
		s.jobs[id] = j
		for i, k := range s.order {
			if k == j.key {
				s.order[i] = id
				break
			}
		}
	}
	j.key = id
	j.mu.Lock()
	j.state.ID = id
	j.mu.Unlock()
	return nil
}

func (s *Scheduler) keyOf(j *Job) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return j.key
}

// fire runs on a robfig goroutine.
func (s *Scheduler) fire(j *Job) {
	j.mu.Lock()
	now := time.Now()
	j.state.LastRunTime = &now
	j.state.Runs++
	fn := j.fn
	args := append([]any(nil), j.args...)
	trigger := j.state.Trigger
	j.mu.Unlock()

	id := s.keyOf(j)
	var err error
	if fn != nil {
		err = fn(s.ctx, args...)
	}
	if err != nil {
		slog.Error("scheduler: job failed", "id", id, "err", err)
		s.dispatch(Event{Kind: EventJobError, JobID: id, Err: err})
	} else {
		s.dispatch(Event{Kind: EventJobExecuted, JobID: id})
	}

	if trigger.Next(now, now).IsZero() {
		if err := s.RemoveJob(id); err != nil && !errors.Is(err, ErrJobNotFound) {
			slog.Warn("scheduler: remove finished job failed", "id", id, "err", err)
		}
	}
}

// cronLogger routes robfig's own logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("scheduler: robfig "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("scheduler: robfig "+msg, append(keysAndValues, "err", err)...)
}

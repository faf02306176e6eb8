package persist

import (
	"log/slog"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
	"github.com/crystaldolphin/tickerbot/internal/scheduler"
)

// Saver persists a full snapshot of the jobs listed by jobs, listing and
// writing as one step. Implemented by Store.
type Saver interface {
	SaveFrom(jobs func() []*jobqueue.Job)
}

// Listener re-saves every job whenever one is added or removed.
type Listener struct {
	store Saver
	jobs  func() []*jobqueue.Job
}

// NewListener creates a Listener. jobs enumerates the live jobs at event
// time; it may be nil while the process is still wiring itself up.
func NewListener(store Saver, jobs func() []*jobqueue.Job) *Listener {
	return &Listener{store: store, jobs: jobs}
}

// Handle saves the full job set for add and remove events.
func (l *Listener) Handle(ev scheduler.Event) {
	if ev.Kind&(scheduler.EventJobAdded|scheduler.EventJobRemoved) == 0 {
		return
	}
	slog.Debug("persist: scheduler event", "event", ev.Kind, "job", ev.JobID)
	if l.jobs == nil {
		slog.Warn("persist: job queue not ready, skipping save", "event", ev.Kind, "job", ev.JobID)
		return
	}
	l.store.SaveFrom(l.jobs)
}

// Attach subscribes the listener to s.
func (l *Listener) Attach(s *scheduler.Scheduler) {
	s.AddListener(l.Handle, scheduler.EventJobAdded|scheduler.EventJobRemoved)
}

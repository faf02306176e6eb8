package scheduler

import "log/slog"

// EventKind is a bit mask of scheduler lifecycle notifications.
type EventKind int

const (
	EventJobAdded EventKind = 1 << iota
	EventJobRemoved
	EventJobModified
	EventJobExecuted
	EventJobError

	EventAll = EventJobAdded | EventJobRemoved | EventJobModified | EventJobExecuted | EventJobError
)

func (k EventKind) String() string {
	switch k {
	case EventJobAdded:
		return "job_added"
	case EventJobRemoved:
		return "job_removed"
	case EventJobModified:
		return "job_modified"
	case EventJobExecuted:
		return "job_executed"
	case EventJobError:
		return "job_error"
	}
	return "mixed"
}

// Event describes one lifecycle change of a job.
type Event struct {
	Kind  EventKind
	JobID string
	Err   error // set for EventJobError
}

// Listener receives events synchronously on the goroutine that caused them.
// It must return quickly: a slow listener delays the scheduler.
type Listener func(Event)

type listenerEntry struct {
	fn   Listener
	mask EventKind
}

// AddListener subscribes fn to every event kind in mask.
func (s *Scheduler) AddListener(fn Listener, mask EventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listenerEntry{fn: fn, mask: mask})
}

// dispatch delivers ev to matching listeners. Events are only delivered while
// the scheduler runs; jobs added earlier are announced by Start.
func (s *Scheduler) dispatch(ev Event) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ls := make([]listenerEntry, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		if l.mask&ev.Kind == 0 {
			continue
		}
		s.callListener(l.fn, ev)
	}
}

func (s *Scheduler) callListener(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: listener panicked", "event", ev.Kind, "job", ev.JobID, "panic", r)
		}
	}()
	fn(ev)
}

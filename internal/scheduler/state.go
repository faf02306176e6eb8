package scheduler

import "time"

// State is the engine-internal snapshot of a job: identity, trigger, timing
// and counters. It is a plain value and gob-encodable; callers outside this
// package should treat it as opaque.
type State struct {
	ID          string
	Name        string
	Trigger     Trigger
	NextRunTime *time.Time // nil while paused
	LastRunTime *time.Time
	Runs        int
}

func (st State) clone() State {
	out := st
	out.NextRunTime = copyTime(st.NextRunTime)
	out.LastRunTime = copyTime(st.LastRunTime)
	out.Trigger.EndDate = copyTime(st.Trigger.EndDate)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

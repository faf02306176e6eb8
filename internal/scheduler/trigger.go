package scheduler

import (
	"time"

	"github.com/cockroachdb/errors"
	robfigcron "github.com/robfig/cron/v3"
)

// TriggerKind selects how a job's fire times are computed.
type TriggerKind string

const (
	TriggerInterval TriggerKind = "interval" // every Interval, anchored at StartDate
	TriggerCron     TriggerKind = "cron"     // 5-field cron expression in Location
	TriggerDate     TriggerKind = "date"     // once, at RunAt
)

// Trigger is a plain, copyable description of a job's cadence.
type Trigger struct {
	Kind      TriggerKind
	Interval  time.Duration
	StartDate time.Time
	EndDate   *time.Time
	Expr      string
	Location  string // IANA name; empty = local time
	RunAt     time.Time
}

// Interval returns a trigger firing every d, first at start.
// A zero start means "one interval from now".
func Interval(d time.Duration, start time.Time) Trigger {
	if start.IsZero() {
		start = time.Now().Add(d)
	}
	return Trigger{Kind: TriggerInterval, Interval: d, StartDate: start}
}

// Cron returns a trigger for a standard 5-field cron expression.
func Cron(expr, tz string) Trigger {
	return Trigger{Kind: TriggerCron, Expr: expr, Location: tz}
}

// Date returns a one-shot trigger.
func Date(at time.Time) Trigger {
	return Trigger{Kind: TriggerDate, RunAt: at}
}

var cronParser = robfigcron.NewParser(
	robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
)

// Validate reports whether the trigger can produce fire times.
func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerInterval:
		if t.Interval <= 0 {
			return errors.Newf("interval must be positive, got %s", t.Interval)
		}
	case TriggerCron:
		if _, err := cronParser.Parse(t.Expr); err != nil {
			return errors.Wrapf(err, "invalid cron expression %q", t.Expr)
		}
		if _, err := t.location(); err != nil {
			return err
		}
	case TriggerDate:
		if t.RunAt.IsZero() {
			return errors.New("date trigger needs a run time")
		}
	default:
		return errors.Newf("unknown trigger kind %q", t.Kind)
	}
	return nil
}

// Next returns the first fire time strictly after now. prev is the previous
// fire time, zero if the job never fired. A zero result means the trigger is
// exhausted.
func (t Trigger) Next(prev, now time.Time) time.Time {
	var next time.Time
	switch t.Kind {
	case TriggerInterval:
		if t.Interval <= 0 {
			return time.Time{}
		}
		if now.Before(t.StartDate) {
			next = t.StartDate
		} else {
			k := now.Sub(t.StartDate)/t.Interval + 1
			next = t.StartDate.Add(k * t.Interval)
		}
	case TriggerCron:
		sched, err := cronParser.Parse(t.Expr)
		if err != nil {
			return time.Time{}
		}
		loc, err := t.location()
		if err != nil {
			return time.Time{}
		}
		next = sched.Next(now.In(loc))
	case TriggerDate:
		if !prev.IsZero() {
			return time.Time{}
		}
		return t.RunAt
	}
	if t.EndDate != nil && next.After(*t.EndDate) {
		return time.Time{}
	}
	return next
}

func (t Trigger) location() (*time.Location, error) {
	if t.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Location)
	if err != nil {
		return nil, errors.Wrapf(err, "load location %q", t.Location)
	}
	return loc, nil
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerInterval:
		return "every " + t.Interval.String()
	case TriggerCron:
		if t.Location != "" {
			return t.Expr + " (" + t.Location + ")"
		}
		return t.Expr
	case TriggerDate:
		return "once at " + t.RunAt.Format(time.RFC3339)
	}
	return string(t.Kind)
}

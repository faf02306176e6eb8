package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog collects events delivered to a listener.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	s.Start()
	t.Cleanup(func() { <-s.Stop().Done() })
}

func counter(n *atomic.Int32) Func {
	return func(_ context.Context, _ ...any) error {
		n.Add(1)
		return nil
	}
}

// ─── Triggers ──────────────────────────────────────────────────────────────

func TestIntervalTrigger_AnchoredAtStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := Interval(10*time.Second, start)

	assert.Equal(t, start, tr.Next(time.Time{}, start.Add(-time.Minute)))
	assert.Equal(t, start.Add(10*time.Second), tr.Next(time.Time{}, start))
	assert.Equal(t, start.Add(40*time.Second), tr.Next(time.Time{}, start.Add(33*time.Second)))
}

func TestIntervalTrigger_EndDate(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Second)
	tr := Interval(10*time.Second, start)
	tr.EndDate = &end

	assert.Equal(t, start.Add(10*time.Second), tr.Next(time.Time{}, start.Add(time.Second)))
	assert.True(t, tr.Next(time.Time{}, start.Add(11*time.Second)).IsZero())
}

func TestCronTrigger_UTC(t *testing.T) {
	tr := Cron("0 9 * * *", "UTC")
	require.NoError(t, tr.Validate())

	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	next := tr.Next(time.Time{}, now)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), next.UTC())
}

func TestDateTrigger_FiresOnce(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	tr := Date(at)

	assert.Equal(t, at, tr.Next(time.Time{}, at.Add(-time.Hour)))
	assert.True(t, tr.Next(at, at).IsZero())
}

func TestTrigger_Validate(t *testing.T) {
	assert.Error(t, Interval(0, time.Now()).Validate())
	assert.Error(t, Cron("not a cron", "").Validate())
	assert.Error(t, Cron("* * * * *", "Mars/Olympus").Validate())
	assert.Error(t, Date(time.Time{}).Validate())
	assert.Error(t, Trigger{Kind: "weekly"}.Validate())
	assert.NoError(t, Interval(time.Second, time.Time{}).Validate())
}

// ─── Jobs ──────────────────────────────────────────────────────────────────

func TestAddJob_AssignsFreshIdentity(t *testing.T) {
	s := New(time.UTC)
	a, err := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{}), Name: "a"})
	require.NoError(t, err)
	b, err := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{}), Name: "b"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, []*Job{a, b}, s.Jobs())
	require.NotNil(t, a.NextRunTime())
}

func TestAddJob_InvalidTrigger(t *testing.T) {
	s := New(time.UTC)
	_, err := s.AddJob(JobSpec{Trigger: Interval(-time.Second, time.Time{})})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestAddJob_Paused(t *testing.T) {
	s := New(time.UTC)
	j, err := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{}), Paused: true})
	require.NoError(t, err)
	assert.Nil(t, j.NextRunTime())
}

func TestRemoveJob_NotFound(t *testing.T) {
	s := New(time.UTC)
	err := s.RemoveJob("ghost")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestState_IsACopy(t *testing.T) {
	s := New(time.UTC)
	j, err := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{})})
	require.NoError(t, err)

	st := j.State()
	*st.NextRunTime = time.Time{}
	st.Runs = 99

	assert.False(t, j.NextRunTime().IsZero())
	assert.Equal(t, 0, j.State().Runs)
}

func TestSetStateThenSetID_KeepsFreshIdentity(t *testing.T) {
	s := New(time.UTC)
	j, err := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{})})
	require.NoError(t, err)
	fresh := j.ID()

	next := time.Now().Add(42 * time.Second)
	j.SetState(State{ID: "stale-id", Name: "old", Trigger: Interval(time.Hour, next), NextRunTime: &next, Runs: 7})
	assert.Equal(t, "stale-id", j.ID())

	require.NoError(t, j.SetID(fresh))
	assert.Equal(t, fresh, j.ID())
	got, ok := s.Job(fresh)
	require.True(t, ok)
	assert.Same(t, j, got)
	assert.Equal(t, 7, j.State().Runs)
	assert.True(t, next.Equal(*j.NextRunTime()))
}

func TestSetID_Duplicate(t *testing.T) {
	s := New(time.UTC)
	a, _ := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{})})
	b, _ := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{})})

	err := b.SetID(a.ID())
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestBind_ReplacesDispatch(t *testing.T) {
	s := New(time.UTC)
	j, _ := s.AddJob(JobSpec{Trigger: Interval(time.Minute, time.Time{}), Args: []any{"old"}})

	j.Bind(func(context.Context, ...any) error { return nil }, "queue", 42)
	assert.Equal(t, []any{"queue", 42}, j.Args())
}

// ─── Events ────────────────────────────────────────────────────────────────

func TestEvents_PendingJobsAnnouncedOnStart(t *testing.T) {
	s := New(time.UTC)
	var log eventLog
	s.AddListener(log.listen, EventJobAdded|EventJobRemoved)

	_, err := s.AddJob(JobSpec{Trigger: Interval(time.Hour, time.Time{})})
	require.NoError(t, err)
	assert.Empty(t, log.kinds(), "no events before start")

	startScheduler(t, s)
	assert.Equal(t, []EventKind{EventJobAdded}, log.kinds())

	j, err := s.AddJob(JobSpec{Trigger: Interval(time.Hour, time.Time{})})
	require.NoError(t, err)
	require.NoError(t, s.RemoveJob(j.ID()))
	assert.Equal(t, []EventKind{EventJobAdded, EventJobAdded, EventJobRemoved}, log.kinds())
}

func TestEvents_MaskFilters(t *testing.T) {
	s := New(time.UTC)
	var log eventLog
	s.AddListener(log.listen, EventJobRemoved)
	startScheduler(t, s)

	j, _ := s.AddJob(JobSpec{Trigger: Interval(time.Hour, time.Time{})})
	require.NoError(t, s.PauseJob(j.ID()))
	require.NoError(t, s.RemoveJob(j.ID()))
	assert.Equal(t, []EventKind{EventJobRemoved}, log.kinds())
}

func TestEvents_ListenerPanicIsContained(t *testing.T) {
	s := New(time.UTC)
	s.AddListener(func(Event) { panic("boom") }, EventAll)
	startScheduler(t, s)

	assert.NotPanics(t, func() {
		_, err := s.AddJob(JobSpec{Trigger: Interval(time.Hour, time.Time{})})
		require.NoError(t, err)
	})
}

func TestEvents_ListenerMayReadJobs(t *testing.T) {
	s := New(time.UTC)
	var seen atomic.Int32
	s.AddListener(func(Event) { seen.Store(int32(len(s.Jobs()))) }, EventJobAdded)
	startScheduler(t, s)

	_, err := s.AddJob(JobSpec{Trigger: Interval(time.Hour, time.Time{})})
	require.NoError(t, err)
	assert.Equal(t, int32(1), seen.Load())
}

// ─── Firing ────────────────────────────────────────────────────────────────

func TestIntervalJob_FiresRepeatedly(t *testing.T) {
	s := New(time.UTC)
	var n atomic.Int32
	_, err := s.AddJob(JobSpec{Func: counter(&n), Trigger: Interval(40*time.Millisecond, time.Time{})})
	require.NoError(t, err)
	startScheduler(t, s)

	require.Eventually(t, func() bool { return n.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestDateJob_FiresOnceAndIsRemoved(t *testing.T) {
	s := New(time.UTC)
	var log eventLog
	s.AddListener(log.listen, EventJobRemoved)
	startScheduler(t, s)

	var n atomic.Int32
	j, err := s.AddJob(JobSpec{Func: counter(&n), Trigger: Date(time.Now().Add(30 * time.Millisecond))})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := s.Job(j.ID())
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
	assert.Equal(t, []EventKind{EventJobRemoved}, log.kinds())
}

func TestPausedJob_DoesNotFire(t *testing.T) {
	s := New(time.UTC)
	var n atomic.Int32
	j, err := s.AddJob(JobSpec{Func: counter(&n), Trigger: Interval(30*time.Millisecond, time.Time{})})
	require.NoError(t, err)
	require.NoError(t, s.PauseJob(j.ID()))
	startScheduler(t, s)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())

	require.NoError(t, s.ResumeJob(j.ID()))
	require.Eventually(t, func() bool { return n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestFire_UpdatesCounters(t *testing.T) {
	s := New(time.UTC)
	var n atomic.Int32
	j, err := s.AddJob(JobSpec{Func: counter(&n), Trigger: Interval(30*time.Millisecond, time.Time{})})
	require.NoError(t, err)
	startScheduler(t, s)

	require.Eventually(t, func() bool { return j.State().Runs >= 1 }, 2*time.Second, 10*time.Millisecond)
	st := j.State()
	assert.NotNil(t, st.LastRunTime)
	assert.NotNil(t, st.NextRunTime)
}

func TestFire_ErrorEvent(t *testing.T) {
	s := New(time.UTC)
	var log eventLog
	s.AddListener(log.listen, EventJobError)
	startScheduler(t, s)

	_, err := s.AddJob(JobSpec{
		Func:    func(context.Context, ...any) error { return errors.New("send failed") },
		Trigger: Date(time.Now()),
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(log.kinds()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSetState_WhileRunningRearms(t *testing.T) {
	s := New(time.UTC)
	var n atomic.Int32
	j, err := s.AddJob(JobSpec{Func: counter(&n), Trigger: Interval(time.Hour, time.Time{})})
	require.NoError(t, err)
	startScheduler(t, s)

	st := j.State()
	soon := time.Now().Add(30 * time.Millisecond)
	st.Trigger = Interval(time.Hour, soon)
	st.NextRunTime = &soon
	j.SetState(st)

	require.Eventually(t, func() bool { return n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

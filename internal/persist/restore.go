package persist

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
)

// Restore rebuilds one live job from rec. Records of another kind or version
// are logged and skipped: Restore returns (nil, nil) for them.
//
// The job is created through the queue's normal path, so it gets a fresh
// identity; the stored state then overwrites the default one, the fresh
// identity is pinned again and dispatch is rebound to the queue.
func Restore(rec Record, q *jobqueue.Queue, refs *Refs) (*jobqueue.Job, error) {
	if err := Check(rec); err != nil {
		slog.Warn("persist: skipping record", "name", rec.Name, "kind", rec.Kind, "version", rec.Version, "err", err)
		return nil, nil
	}
	slog.Debug("persist: restoring job", "name", rec.Name)

	cb, err := refs.Resolve(rec.Callback)
	if err != nil {
		return nil, errors.Wrapf(err, "restore %s", rec.Name)
	}
	job, err := q.CreateShell(cb, jobqueue.Options{
		Name:   rec.Name,
		ChatID: rec.ChatID,
		UserID: rec.UserID,
		Data:   rec.Data,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "restore %s", rec.Name)
	}
	if err := q.Hydrate(job, rec.State, rec.Enabled, rec.Removed); err != nil {
		return nil, errors.Wrapf(err, "restore %s", rec.Name)
	}
	slog.Debug("persist: restored job", "name", rec.Name, "id", job.ID(), "trigger", rec.State.Trigger.String())
	return job, nil
}

// RestoreReport summarizes a RestoreAll pass.
type RestoreReport struct {
	Restored []*jobqueue.Job
	Skipped  int
	Failed   []error
}

// RestoreAll restores every record independently. A record that fails does
// not stop the others.
func RestoreAll(records []Record, q *jobqueue.Queue, refs *Refs) RestoreReport {
	var report RestoreReport
	for _, rec := range records {
		job, err := Restore(rec, q, refs)
		switch {
		case err != nil:
			slog.Error("persist: restore failed", "name", rec.Name, "err", err)
			report.Failed = append(report.Failed, err)
		case job == nil:
			report.Skipped++
		default:
			report.Restored = append(report.Restored, job)
		}
	}
	return report
}

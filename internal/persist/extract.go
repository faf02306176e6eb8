package persist

import (
	"github.com/cockroachdb/errors"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
)

// Extract flattens a live job into a Record from one consistent snapshot.
// It only reads the job. The dispatch binding of the entry is not part of
// its State and therefore never reaches the record.
func Extract(job *jobqueue.Job, refs *Refs) (Record, error) {
	snap := job.Snapshot()
	ref, err := refs.Reference(snap.Callback)
	if err != nil {
		return Record{}, errors.Wrapf(err, "extract %s", snap.Name)
	}
	return Record{
		Kind:     KindBotJob,
		Version:  SchemaVersion,
		Deleted:  false,
		Callback: ref,
		Data:     snap.Data,
		Name:     snap.Name,
		Removed:  snap.Removed,
		Enabled:  snap.Enabled,
		ChatID:   snap.ChatID,
		UserID:   snap.UserID,
		State:    snap.State,
	}, nil
}

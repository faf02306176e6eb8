// Package persist keeps the bot's scheduled jobs on disk so they survive a
// restart.
//
// A live job is flattened into a Record by Extract, the whole set of records
// is written by Store.Save whenever a job is added or removed (see Listener),
// and Restore rebuilds live jobs from the records at startup. Callbacks are
// stored by reference name and resolved through a symref registry; the
// dispatch binding is never stored and is re-derived on restore.
package persist

import (
	"encoding/gob"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
	"github.com/crystaldolphin/tickerbot/internal/scheduler"
	"github.com/crystaldolphin/tickerbot/internal/symref"
)

const (
	// KindBotJob is the only record kind this package writes or restores.
	KindBotJob = "PTB job"

	// SchemaVersion is the record layout version.
	SchemaVersion = 1
)

// Refs resolves job callbacks to reference names and back.
type Refs = symref.Registry[jobqueue.Callback]

// Record is the persisted form of one job.
type Record struct {
	Kind     string
	Version  int
	Deleted  bool // always false when written
	Callback string
	Data     any
	Name     string
	Removed  bool
	Enabled  bool
	ChatID   int64
	UserID   int64
	State    scheduler.State
}

// Check reports why rec cannot be restored by this build, or nil.
func Check(rec Record) error {
	if rec.Kind != KindBotJob {
		return ErrUnsupportedKind
	}
	if rec.Version != SchemaVersion {
		return ErrUnsupportedVersion
	}
	return nil
}

// RegisterPayload makes a concrete type usable as job Data. Builtin scalars,
// []any and string-keyed maps are registered already.
func RegisterPayload(v any) {
	gob.Register(v)
}

func init() {
	gob.Register(map[string]any{})
	gob.Register(map[string]string{})
	gob.Register([]any{})
	gob.Register([]string{})
}

package persist

import (
	"bytes"
	"encoding/gob"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/crystaldolphin/tickerbot/internal/jobqueue"
)

// Store reads and writes the job file. Every Save replaces the whole file.
type Store struct {
	path string
	refs *Refs
	mu   sync.Mutex
}

// NewStore creates a Store for path. refs resolves callbacks at save time.
func NewStore(path string, refs *Refs) *Store {
	return &Store{path: path, refs: refs}
}

func (s *Store) Path() string { return s.path }

// Save writes a snapshot of jobs. Jobs that cannot be extracted or encoded
// are left out. Failures are logged, never returned: the next add or remove
// event saves everything again.
func (s *Store) Save(jobs []*jobqueue.Job) {
	s.SaveFrom(func() []*jobqueue.Job { return jobs })
}

// SaveFrom lists the jobs with jobs and writes them, all under the store
// lock, so the last save to finish always reflects the latest job set.
func (s *Store) SaveFrom(jobs func() []*jobqueue.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := jobs()
	records := make([]Record, 0, len(list))
	for _, j := range list {
		rec, err := Extract(j, s.refs)
		if err == nil {
			err = checkEncodable(rec)
		}
		if err != nil {
			slog.Error("persist: cannot save job", "name", j.Name(), "err", err)
			continue
		}
		records = append(records, rec)
	}

	slog.Debug("persist: saving jobs", "count", len(records), "path", s.path)
	if err := s.write(records); err != nil {
		slog.Error("persist: save failed", "path", s.path, "err", err)
		return
	}
	slog.Debug("persist: saved jobs", "count", len(records), "path", s.path)
}

// checkEncodable catches payloads gob cannot carry, typically a Data type
// that was never passed to RegisterPayload.
func checkEncodable(rec Record) error {
	if err := gob.NewEncoder(io.Discard).Encode(rec); err != nil {
		return errors.Wrapf(err, "encode %s", rec.Name)
	}
	return nil
}

func (s *Store) write(records []Record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return errors.Wrap(err, "encode records")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create job dir")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replace job file")
}

// Load reads all records. A missing or empty file yields no records and no
// error.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("persist: no job file yet", "path", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	if len(data) == 0 {
		slog.Warn("persist: job file is empty, nothing to restore", "path", s.path)
		return nil, nil
	}

	var records []Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode %s", s.path), ErrStorageCorrupt)
	}
	slog.Info("persist: read jobs", "count", len(records), "path", s.path)
	return records, nil
}

// Clear deletes the job file. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", s.path)
	}
	return nil
}

package persist

import "github.com/cockroachdb/errors"

var (
	// ErrUnsupportedKind marks a stored record written for a different job
	// shape. Such records are skipped.
	ErrUnsupportedKind = errors.New("unsupported job kind")

	// ErrUnsupportedVersion marks a record written with another schema
	// version. Such records are skipped.
	ErrUnsupportedVersion = errors.New("unsupported job schema version")

	// ErrStorageCorrupt is returned by Load when the file exists but cannot
	// be decoded.
	ErrStorageCorrupt = errors.New("job storage is corrupt")
)

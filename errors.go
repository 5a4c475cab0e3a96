package kvs

import (
	"errors"
	"fmt"

	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/snapshot"
)

var (
	// ErrKeyNotFound is returned when a key has neither an override nor a
	// default.
	ErrKeyNotFound = errors.New("kvs: key not found")

	// ErrNoDefault is wrapped together with ErrKeyNotFound by
	// GetDefaultValue and HasDefaultValue for keys without a default.
	ErrNoDefault = errors.New("kvs: key has no default value")

	// ErrInvalidKey is returned for the empty key.
	ErrInvalidKey = errors.New("kvs: invalid key")

	// ErrInvalidValue is returned for values that are not a valid variant.
	ErrInvalidValue = errors.New("kvs: invalid value")

	// ErrNotFound is returned for snapshot slots beyond the configured
	// maximum or not present in storage.
	ErrNotFound = layout.ErrNotFound

	// ErrInvalidSnapshotID is returned by SnapshotRestore for the current
	// slot, which cannot be restored from.
	ErrInvalidSnapshotID = errors.New("kvs: invalid snapshot id")

	// ErrFileRead is returned by Open when a required file is missing.
	ErrFileRead = errors.New("kvs: required file missing")

	// ErrIO is wrapped by every *IOError.
	ErrIO = errors.New("kvs: storage I/O error")

	// ErrInvalidConfig is wrapped by configuration validation failures.
	ErrInvalidConfig = errors.New("kvs: invalid config")

	// ErrDecode and ErrCorruption are re-exported from the snapshot package.
	ErrDecode     = snapshot.ErrDecode
	ErrCorruption = snapshot.ErrCorruption

	// ErrUnsupportedHashFormat is returned when a hash file was written in
	// a format this version cannot read. It is not corruption.
	ErrUnsupportedHashFormat = snapshot.ErrUnsupportedHashFormat
)

// IOError reports a storage failure while reading or writing a file.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op    string
	Path  string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("kvs: %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrIO) hold for every IOError.
func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, cause: err}
}

// IsNotFound reports whether err means a file or blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound)
}

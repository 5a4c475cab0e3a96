package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is wrapped by every DecodeError.
	ErrDecode = errors.New("snapshot: decode error")

	// ErrCorruption is wrapped by every CorruptionError.
	ErrCorruption = errors.New("snapshot: corruption detected")

	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrUnknownFormat      = errors.New("unknown payload format")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrReservedBits       = errors.New("reserved header byte set")
	ErrTruncated          = errors.New("truncated data")
	ErrTrailingData       = errors.New("trailing data after payload")
	ErrEmptyKey           = errors.New("empty key")
	ErrDuplicateKey       = errors.New("duplicate key")

	// ErrUnsupportedHashFormat is returned for hash files written by an
	// unknown hash file version or with an unknown algorithm. It is distinct
	// from a digest mismatch.
	ErrUnsupportedHashFormat = errors.New("snapshot: unsupported hash file format")

	// ErrMalformedHash is returned for hash files that do not parse.
	ErrMalformedHash = errors.New("snapshot: malformed hash file")
)

// DecodeError reports persisted bytes that do not form a valid override
// mapping.
//
// The original underlying error can be accessed via errors.Unwrap.
type DecodeError struct {
	Section string
	cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snapshot: decode %s: %v", e.Section, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrDecode) hold for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func decodeErr(section string, cause error) error {
	return &DecodeError{Section: section, cause: cause}
}

// CorruptionError is returned when a data file does not match its hash file.
type CorruptionError struct {
	Path     string
	Expected Digest
	Actual   Digest
	// Reason is set instead of Actual when no comparison was possible,
	// e.g. when the hash file is missing.
	Reason string
	cause  error
}

func (e *CorruptionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("snapshot: corruption detected in %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("snapshot: corruption detected in %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *CorruptionError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrCorruption) hold for every CorruptionError.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorruption }

// IsCorruption returns true if err is or wraps a CorruptionError.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruption)
}

package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// Algorithm names a digest function used for hash files.
type Algorithm string

const (
	// SHA256 is the default digest algorithm.
	SHA256 Algorithm = "sha256"
	// CRC32C is a cheaper non-cryptographic alternative. It detects
	// accidental corruption only.
	CRC32C Algorithm = "crc32c"
)

// hashFileVersion is the current hash file version.
const hashFileVersion = "kvs-hash/1"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// ParseAlgorithm maps a configuration name to an Algorithm. The empty string
// selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return SHA256, nil
	case SHA256, CRC32C:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("%w: algorithm %q", ErrUnsupportedHashFormat, name)
	}
}

func (a Algorithm) size() int {
	switch a {
	case SHA256:
		return sha256.Size
	case CRC32C:
		return crc32.Size
	default:
		return 0
	}
}

// Digest is the output of an Algorithm over a data file's bytes.
type Digest struct {
	Algorithm Algorithm
	Sum       []byte
}

// Hash computes the digest of data. An unknown algorithm falls back to SHA256.
func Hash(alg Algorithm, data []byte) Digest {
	switch alg {
	case CRC32C:
		sum := make([]byte, crc32.Size)
		binary.BigEndian.PutUint32(sum, crc32.Checksum(data, crc32cTable))
		return Digest{Algorithm: CRC32C, Sum: sum}
	default:
		sum := sha256.Sum256(data)
		return Digest{Algorithm: SHA256, Sum: sum[:]}
	}
}

// Equal reports whether d and other were produced by the same algorithm over
// the same bytes.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && bytes.Equal(d.Sum, other.Sum)
}

// Hex returns the lowercase hex encoding of the sum.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Sum)
}

func (d Digest) String() string {
	if d.Algorithm == "" {
		return "<none>"
	}
	return string(d.Algorithm) + ":" + d.Hex()
}

// Verify reports whether data hashes to d.
func Verify(data []byte, d Digest) bool {
	switch d.Algorithm {
	case SHA256, CRC32C:
		return Hash(d.Algorithm, data).Equal(d)
	default:
		return false
	}
}

// FormatDigest encodes d as hash file contents:
//
//	kvs-hash/1 <algorithm> <lowercase hex>\n
func FormatDigest(d Digest) []byte {
	var sb strings.Builder
	sb.Grow(len(hashFileVersion) + len(d.Algorithm) + 2*len(d.Sum) + 3)
	sb.WriteString(hashFileVersion)
	sb.WriteByte(' ')
	sb.WriteString(string(d.Algorithm))
	sb.WriteByte(' ')
	sb.WriteString(d.Hex())
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// ParseDigest decodes hash file contents written by FormatDigest.
//
// An unknown version or algorithm yields ErrUnsupportedHashFormat; bad
// structure, hex or digest length yields ErrMalformedHash.
func ParseDigest(data []byte) (Digest, error) {
	line, ok := bytes.CutSuffix(data, []byte{'\n'})
	if !ok {
		return Digest{}, fmt.Errorf("%w: missing trailing newline", ErrMalformedHash)
	}
	fields := strings.Split(string(line), " ")
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "kvs-hash/") {
		return Digest{}, fmt.Errorf("%w: missing header", ErrMalformedHash)
	}
	if fields[0] != hashFileVersion {
		return Digest{}, fmt.Errorf("%w: version %q", ErrUnsupportedHashFormat, fields[0])
	}
	if len(fields) != 3 {
		return Digest{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedHash, len(fields))
	}

	alg := Algorithm(fields[1])
	if alg.size() == 0 {
		return Digest{}, fmt.Errorf("%w: algorithm %q", ErrUnsupportedHashFormat, fields[1])
	}

	hexSum := fields[2]
	if strings.ToLower(hexSum) != hexSum {
		return Digest{}, fmt.Errorf("%w: digest must be lowercase hex", ErrMalformedHash)
	}
	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
	if len(sum) != alg.size() {
		return Digest{}, fmt.Errorf("%w: %s digest has %d bytes, want %d", ErrMalformedHash, alg, len(sum), alg.size())
	}
	return Digest{Algorithm: alg, Sum: sum}, nil
}

// Check verifies that data matches the hash file contents hashFile. path is
// only used for error reporting.
//
// A digest mismatch or a malformed hash file yields a *CorruptionError. A
// hash file written in an unknown version or with an unknown algorithm
// yields ErrUnsupportedHashFormat, which is not corruption: the pair may be
// intact and only unreadable by this version.
func Check(path string, data, hashFile []byte) error {
	want, err := ParseDigest(hashFile)
	if errors.Is(err, ErrUnsupportedHashFormat) {
		return fmt.Errorf("snapshot: %s: %w", path, err)
	}
	if err != nil {
		return &CorruptionError{Path: path, Reason: err.Error(), cause: err}
	}
	got := Hash(want.Algorithm, data)
	if !got.Equal(want) {
		return &CorruptionError{Path: path, Expected: want, Actual: got}
	}
	return nil
}

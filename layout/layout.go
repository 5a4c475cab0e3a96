// Package layout derives the file names used by kvs instances inside a
// working directory.
//
// For instance 3 the directory contains:
//
//	kvs_3_0.kvs, kvs_3_0.hash        current snapshot
//	kvs_3_1.kvs, kvs_3_1.hash        previous snapshot
//	...
//	kvs_3_default.json               defaults (typed JSON)
//	kvs_3_default.hash               hash of the defaults file, optional
//	kvs_3_default.yaml               defaults (YAML), used when no JSON file exists
//
// Resolution is pure string manipulation and never touches the filesystem.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotFound is returned for a snapshot slot beyond the configured maximum.
var ErrNotFound = errors.New("layout: snapshot not found")

// ErrUnknownName is returned by Parse for names not produced by this package.
var ErrUnknownName = errors.New("layout: not a kvs file name")

// InstanceID identifies one logical store inside a directory.
type InstanceID uint32

// SnapshotID identifies a snapshot slot. 0 is the current state, 1 the most
// recent previous flush, and so on.
type SnapshotID uint32

const (
	// Current is the slot read on open and written on flush.
	Current SnapshotID = 0

	dataExt     = ".kvs"
	hashExt     = ".hash"
	jsonExt     = ".json"
	yamlExt     = ".yaml"
	defaultSlot = "default"
	prefix      = "kvs_"
)

// Paths is the (data, hash) file pair of one slot.
type Paths struct {
	Data string
	Hash string
}

// Resolver maps (instance, snapshot) to paths below Dir.
type Resolver struct {
	// Dir is the working directory. An empty Dir yields bare names.
	Dir string
	// SnapshotMaxCount is the number of history slots kept besides Current.
	SnapshotMaxCount int
}

// Resolve returns the file pair for snapshot of instance. Snapshots above
// SnapshotMaxCount yield ErrNotFound.
func (r Resolver) Resolve(instance InstanceID, snapshot SnapshotID) (Paths, error) {
	if r.SnapshotMaxCount < 0 || uint64(snapshot) > uint64(r.SnapshotMaxCount) {
		return Paths{}, fmt.Errorf("%w: instance %d snapshot %d (max %d)", ErrNotFound, instance, snapshot, r.SnapshotMaxCount)
	}
	base := SnapshotBase(instance, snapshot)
	return Paths{
		Data: r.join(base + dataExt),
		Hash: r.join(base + hashExt),
	}, nil
}

// DefaultsPaths returns the typed JSON defaults file and its optional hash.
func (r Resolver) DefaultsPaths(instance InstanceID) Paths {
	base := DefaultsBase(instance)
	return Paths{
		Data: r.join(base + jsonExt),
		Hash: r.join(base + hashExt),
	}
}

// DefaultsYAMLPath returns the YAML defaults file.
func (r Resolver) DefaultsYAMLPath(instance InstanceID) string {
	return r.join(DefaultsBase(instance) + yamlExt)
}

func (r Resolver) join(name string) string {
	if r.Dir == "" {
		return name
	}
	return filepath.Join(r.Dir, name)
}

// SnapshotBase is the extension-less name of a snapshot slot.
func SnapshotBase(instance InstanceID, snapshot SnapshotID) string {
	return prefix + strconv.FormatUint(uint64(instance), 10) + "_" + strconv.FormatUint(uint64(snapshot), 10)
}

// DefaultsBase is the extension-less name of the defaults files.
func DefaultsBase(instance InstanceID) string {
	return prefix + strconv.FormatUint(uint64(instance), 10) + "_" + defaultSlot
}

// InstancePrefix is the name prefix shared by every file of instance.
func InstancePrefix(instance InstanceID) string {
	return prefix + strconv.FormatUint(uint64(instance), 10) + "_"
}

// FileKind tells what a parsed file name refers to.
type FileKind int

const (
	SnapshotData FileKind = iota + 1
	SnapshotHash
	DefaultsJSON
	DefaultsYAML
	DefaultsHash
)

func (k FileKind) String() string {
	switch k {
	case SnapshotData:
		return "snapshot-data"
	case SnapshotHash:
		return "snapshot-hash"
	case DefaultsJSON:
		return "defaults-json"
	case DefaultsYAML:
		return "defaults-yaml"
	case DefaultsHash:
		return "defaults-hash"
	default:
		return "unknown"
	}
}

// Entry is the result of Parse.
type Entry struct {
	Instance InstanceID
	// Snapshot is only meaningful for SnapshotData and SnapshotHash.
	Snapshot SnapshotID
	Kind     FileKind
}

// Parse is the inverse of the naming functions. Directory components are
// ignored.
func Parse(name string) (Entry, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	rest, ok := strings.CutPrefix(stem, prefix)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	instPart, slotPart, ok := strings.Cut(rest, "_")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	inst, err := parseID(instPart)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	e := Entry{Instance: InstanceID(inst)}

	if slotPart == defaultSlot {
		switch ext {
		case jsonExt:
			e.Kind = DefaultsJSON
		case yamlExt:
			e.Kind = DefaultsYAML
		case hashExt:
			e.Kind = DefaultsHash
		default:
			return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
		}
		return e, nil
	}

	snap, err := parseID(slotPart)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	e.Snapshot = SnapshotID(snap)
	switch ext {
	case dataExt:
		e.Kind = SnapshotData
	case hashExt:
		e.Kind = SnapshotHash
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return e, nil
}

// parseID accepts canonical decimal uint32 only, so Parse(name) inverts the
// naming functions exactly.
func parseID(s string) (uint32, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

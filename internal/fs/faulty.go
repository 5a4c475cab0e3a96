package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is returned by a FaultyFS when a Fault has no Err of its own.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes how operations on matching files fail.
type Fault struct {
	FailOnWrite    bool
	FailAfterBytes int64 // With FailOnWrite: bytes accepted per file before writes fail.
	FailOnOpen     bool
	FailOnSync     bool
	FailOnClose    bool
	FailOnRename   bool // Matches against the rename target.
	FailOnRemove   bool
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
	// remaining is the number of times the rule still fires, -1 for always.
	remaining int
}

// FaultyFS is a FileSystem wrapper that can inject errors.
//
// Rules match by substring of the file name; the most recently added
// matching rule wins.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules []rule
	ops   []string
}

// NewFaultyFS creates a new FaultyFS wrapping fs (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{FS: fs}
}

// AddRule injects fault for every file whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.addRule(pattern, fault, -1)
}

// AddRuleOnce is like AddRule but the fault fires only for the next matching
// operation.
func (f *FaultyFS) AddRuleOnce(pattern string, fault Fault) {
	f.addRule(pattern, fault, 1)
}

func (f *FaultyFS) addRule(pattern string, fault Fault, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault, remaining: n})
}

// Reset removes all rules.
func (f *FaultyFS) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
}

// Ops returns the mutating operations seen so far, e.g. "rename a -> b".
func (f *FaultyFS) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// match returns the fault for name. Only rules for which want reports true
// are considered; a matching one-shot rule is consumed.
func (f *FaultyFS) match(name string, want func(Fault) bool) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		r := &f.rules[i]
		if r.remaining == 0 || !strings.Contains(name, r.pattern) || !want(r.fault) {
			continue
		}
		if r.remaining > 0 {
			r.remaining--
		}
		return r.fault, true
	}
	return Fault{}, false
}

func (f *FaultyFS) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	if fault, ok := f.match(name, func(x Fault) bool { return x.FailOnOpen }); ok {
		return nil, fault.err()
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		f.record("open " + name)
	}
	fault, _ := f.match(name, func(x Fault) bool {
		return x.FailOnWrite || x.FailOnSync || x.FailOnClose
	})
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) ReadFile(name string) ([]byte, error) {
	return f.FS.ReadFile(name)
}

func (f *FaultyFS) Remove(name string) error {
	if fault, ok := f.match(name, func(x Fault) bool { return x.FailOnRemove }); ok {
		return fault.err()
	}
	f.record("remove " + name)
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault, ok := f.match(newpath, func(x Fault) bool { return x.FailOnRename }); ok {
		return fault.err()
	}
	f.record("rename " + oldpath + " -> " + newpath)
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (n int, err error) {
	if ff.fault.FailOnWrite && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		// Write the allowed prefix so the file is left torn.
		allowed := ff.fault.FailAfterBytes - ff.written
		if allowed > 0 {
			n, _ = ff.File.Write(p[:allowed])
			ff.written += int64(n)
		}
		return n, ff.fault.err()
	}
	n, err = ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.err()
	}
	return ff.File.Close()
}

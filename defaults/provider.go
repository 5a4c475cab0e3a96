// Package defaults provides the read-only default values consulted by a kvs
// store when a key has no override.
//
// A Provider never changes after construction, so one provider may be shared
// by any number of stores.
package defaults

import (
	"github.com/hupe1980/kvs/value"
)

// Provider is a read-only mapping from key to default Value.
//
// A missing key is reported as ok=false; it is not an error.
type Provider interface {
	Lookup(key string) (value.Value, bool)
	Contains(key string) bool
}

// MapProvider is an immutable Provider backed by a private copy of a Map.
// It is safe for concurrent use.
type MapProvider struct {
	values value.Map
}

// NewMapProvider copies m into a new MapProvider. Later changes to m are not
// observed.
func NewMapProvider(m value.Map) *MapProvider {
	return &MapProvider{values: m.Clone()}
}

// Lookup returns a copy of the default for key.
func (p *MapProvider) Lookup(key string) (value.Value, bool) {
	v, ok := p.values[key]
	if !ok {
		return value.Value{}, false
	}
	return v.Clone(), true
}

// Contains reports whether key has a default.
func (p *MapProvider) Contains(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the keys with defaults, sorted.
func (p *MapProvider) Keys() []string {
	return p.values.Keys()
}

// Len returns the number of defaults.
func (p *MapProvider) Len() int {
	return len(p.values)
}

// Snapshot returns a deep copy of all defaults.
func (p *MapProvider) Snapshot() value.Map {
	return p.values.Clone()
}

type empty struct{}

func (empty) Lookup(string) (value.Value, bool) { return value.Value{}, false }
func (empty) Contains(string) bool              { return false }

// Empty is a Provider without any defaults.
var Empty Provider = empty{}

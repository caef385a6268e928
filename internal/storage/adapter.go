// Package storage implements the content-addressed repository abstraction
// (spec.md §4.7): save/get/delete/query over a pluggable Adapter, with the
// file adapter maintaining secondary indices for filtered queries.
// Grounded on original_source/core/domains/storage/models.py's
// StorageAdapter/FileAdapter (the registration side-table, the per-entity
// JSON file layout, the dotted-path filter matching) generalized to Go.
package storage

import (
	"fmt"
	"sync"
)

// Adapter is the pluggable storage backend a Repository delegates to
// (spec §4.7: "delegates to a named adapter chosen at construction").
type Adapter interface {
	Save(id string, data map[string]any) error
	Get(id string) (map[string]any, bool, error)
	Delete(id string) error
	Query(filter map[string]any) ([]map[string]any, error)
}

// AdapterFactory constructs an Adapter bound to one collection.
type AdapterFactory func(collection string) (Adapter, error)

var (
	mu       sync.RWMutex
	adapters = map[string]AdapterFactory{}
)

// RegisterAdapter adds an adapter factory to the side-table, keyed by name
// (spec §4.7: "adapters register themselves with a side-table").
func RegisterAdapter(name string, factory AdapterFactory) {
	mu.Lock()
	defer mu.Unlock()
	adapters[name] = factory
}

func lookupAdapter(name, collection string) (Adapter, error) {
	mu.RLock()
	factory, ok := adapters[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: adapter not registered: %s", name)
	}
	return factory(collection)
}

// matchesCriteria implements the filter semantics of spec §4.7: dotted-path
// keys, `_contains`-suffixed keys match by case-insensitive substring, all
// others by equality.
func matchesCriteria(entity map[string]any, criteria map[string]any) bool {
	for key, want := range criteria {
		got, ok := lookupDotted(entity, strippedKey(key))
		if !ok {
			return false
		}
		if isContainsKey(key) {
			if !containsMatch(got, want) {
				return false
			}
			continue
		}
		if !equalMatch(got, want) {
			return false
		}
	}
	return true
}

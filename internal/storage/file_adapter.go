package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

func init() {
	RegisterAdapter("file", func(collection string) (Adapter, error) {
		return newFileAdapter(defaultBaseDir, collection)
	})
}

// defaultBaseDir is the base directory of the registered "file" factory,
// overridden via SetDefaultBaseDir; NewFileAdapter takes its base directory
// directly. The package-level default keeps RegisterAdapter's factory
// signature uniform.
var defaultBaseDir = "./.recipeforge/storage"

// SetDefaultBaseDir changes the base directory the "file" adapter factory
// uses when constructed through the registry (as opposed to directly via
// NewFileAdapter).
func SetDefaultBaseDir(dir string) {
	defaultBaseDir = dir
}

// FileAdapter is the built-in adapter: one JSON file per entity, plus
// secondary indices, both written atomically (spec §4.7).
type FileAdapter struct {
	baseDir    string
	collection string
	mu         sync.Mutex
}

func NewFileAdapter(baseDir, collection string) (*FileAdapter, error) {
	return newFileAdapter(baseDir, collection)
}

func newFileAdapter(baseDir, collection string) (*FileAdapter, error) {
	return &FileAdapter{baseDir: baseDir, collection: collection}, nil
}

func (a *FileAdapter) entityPath(id string) string {
	return filepath.Join(a.baseDir, a.collection, id+".json")
}

func (a *FileAdapter) indexPath(field string) string {
	return filepath.Join(a.baseDir, a.collection, "indices", "by_"+field+".json")
}

func (a *FileAdapter) Save(id string, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := atomicWriteJSON(a.entityPath(id), data); err != nil {
		return err
	}
	return a.reindex(id, data)
}

func (a *FileAdapter) Get(id string) (map[string]any, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(id)
}

func (a *FileAdapter) load(id string) (map[string]any, bool, error) {
	data, err := os.ReadFile(a.entityPath(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entity map[string]any
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

func (a *FileAdapter) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entity, ok, err := a.load(id)
	if err != nil {
		return err
	}
	if err := os.Remove(a.entityPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if ok {
		return a.unindex(id, entity)
	}
	return nil
}

func (a *FileAdapter) Query(filter map[string]any) ([]map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids, indexed, err := a.candidateIDs(filter)
	if err != nil {
		return nil, err
	}

	results := []map[string]any{}
	if indexed {
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		for _, id := range sorted {
			entity, ok, err := a.load(id)
			if err != nil {
				return nil, err
			}
			if ok && matchesCriteria(entity, filter) {
				results = append(results, entity)
			}
		}
		return results, nil
	}

	collectionDir := filepath.Join(a.baseDir, a.collection)
	entries, err := os.ReadDir(collectionDir)
	if os.IsNotExist(err) {
		return results, nil
	}
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		entity, ok, err := a.load(id)
		if err != nil {
			return nil, err
		}
		if ok && matchesCriteria(entity, filter) {
			results = append(results, entity)
		}
	}
	return results, nil
}

// candidateIDs intersects per-predicate index sets; degrades to a full
// scan (indexed=false) if any predicate's field has no index (spec §4.7:
// "if any predicate has no index, it degrades to a scan").
func (a *FileAdapter) candidateIDs(filter map[string]any) (map[string]bool, bool, error) {
	if len(filter) == 0 {
		return nil, false, nil
	}

	var intersection map[string]bool
	for key, want := range filter {
		if isContainsKey(key) {
			return nil, false, nil
		}
		field := strippedKey(key)
		idx, err := a.loadIndex(field)
		if err != nil {
			return nil, false, err
		}
		if idx == nil {
			return nil, false, nil
		}
		ids := idx[strings.ToLower(stringify(want))]
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		if intersection == nil {
			intersection = set
		} else {
			for id := range intersection {
				if !set[id] {
					delete(intersection, id)
				}
			}
		}
	}
	return intersection, true, nil
}

type fieldIndex map[string][]string

func (a *FileAdapter) loadIndex(field string) (fieldIndex, error) {
	data, err := os.ReadFile(a.indexPath(field))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var idx fieldIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (a *FileAdapter) reindex(id string, data map[string]any) error {
	fields := map[string]string{}
	indexKeys("", data, fields)

	for field, value := range fields {
		idx, err := a.loadIndex(field)
		if err != nil {
			return err
		}
		if idx == nil {
			idx = fieldIndex{}
		}
		removeID(idx, id)
		idx[value] = append(idx[value], id)
		if err := atomicWriteJSON(a.indexPath(field), idx); err != nil {
			return err
		}
	}
	return nil
}

func (a *FileAdapter) unindex(id string, entity map[string]any) error {
	fields := map[string]string{}
	indexKeys("", entity, fields)

	for field := range fields {
		idx, err := a.loadIndex(field)
		if err != nil {
			return err
		}
		if idx == nil {
			continue
		}
		removeID(idx, id)
		if err := atomicWriteJSON(a.indexPath(field), idx); err != nil {
			return err
		}
	}
	return nil
}

func removeID(idx fieldIndex, id string) {
	for value, ids := range idx {
		filtered := ids[:0]
		for _, existing := range ids {
			if existing != id {
				filtered = append(filtered, existing)
			}
		}
		if len(filtered) == 0 {
			delete(idx, value)
		} else {
			idx[value] = filtered
		}
	}
}

// atomicWriteJSON writes data to path by writing a sibling temp file and
// renaming over the target, so a reader never observes a partial write
// (spec §4.7: "atomic write (write-to-temp-then-rename)").
func atomicWriteJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

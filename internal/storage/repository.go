package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// Repository is the collection-scoped facade the storage.* link handlers
// call into (spec §4.7), delegating to a named Adapter chosen by the
// caller (spec: "delegates to a named adapter chosen at construction").
// Grounded on original_source/core/domains/storage/functions.py's
// Repository class.
type Repository struct {
	collection string
	adapter    Adapter
}

// NewRepository resolves adapterName from the registration side-table and
// binds it to collection.
func NewRepository(collection, adapterName string) (*Repository, error) {
	adapter, err := lookupAdapter(adapterName, collection)
	if err != nil {
		return nil, err
	}
	return &Repository{collection: collection, adapter: adapter}, nil
}

// GenerateID produces an entity id of the form "<collection>-<8-hex>"
// (original_source/core/domains/storage/links.py:generate_id, and
// internal/campaign/decomposer.go's uuid.New().String()[:8] convention).
func GenerateID(collection string) string {
	return fmt.Sprintf("%s-%s", collection, uuid.NewString()[:8])
}

func (r *Repository) Save(id string, data map[string]any) error {
	return r.adapter.Save(id, data)
}

func (r *Repository) Get(id string) (map[string]any, bool, error) {
	return r.adapter.Get(id)
}

func (r *Repository) Delete(id string) error {
	return r.adapter.Delete(id)
}

func (r *Repository) Query(filter map[string]any) ([]map[string]any, error) {
	return r.adapter.Query(filter)
}

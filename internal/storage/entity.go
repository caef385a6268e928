package storage

import "time"

// Entity is the persisted envelope every storage.* link handler builds
// around caller data (spec.md §3.5: "{id, collection, data, metadata,
// created_at, updated_at}", timestamps as ISO-8601 strings). Version is
// reserved for a future schema migrator (SPEC_FULL.md's deferred Open
// Question decision); no migration runner reads it yet.
type Entity struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	Version    int            `json:"version"`
}

// ToMap renders the entity the way adapters persist and repo.Get returns
// it: a plain map[string]any.
func (e Entity) ToMap() map[string]any {
	return map[string]any{
		"id":         e.ID,
		"collection": e.Collection,
		"data":       e.Data,
		"metadata":   e.Metadata,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
		"version":    e.Version,
	}
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SaveEntity stamps collection/created_at/updated_at onto data+metadata
// and persists the result, preserving the original created_at on update
// (original_source/storage/repository.py's add_entry/update_entry: a
// re-save of an existing id keeps its created_at and only refreshes
// updated_at).
func (r *Repository) SaveEntity(id string, data, metadata map[string]any) (Entity, error) {
	createdAt := nowISO8601()
	if existing, ok, err := r.adapter.Get(id); err == nil && ok {
		if ts, ok := existing["created_at"].(string); ok && ts != "" {
			createdAt = ts
		}
	}

	entity := Entity{
		ID:         id,
		Collection: r.collection,
		Data:       data,
		Metadata:   metadata,
		CreatedAt:  createdAt,
		UpdatedAt:  nowISO8601(),
	}
	if err := r.adapter.Save(id, entity.ToMap()); err != nil {
		return Entity{}, err
	}
	return entity, nil
}

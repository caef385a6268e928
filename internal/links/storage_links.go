package links

import (
	"context"
	"fmt"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
	"recipeforge/internal/storage"
)

// Adapter name defaults match config.StorageConfig.Adapter when a link
// doesn't override it.
const defaultAdapterName = "file"

func adapterName(cfg map[string]any, fallback string) string {
	if a, ok := cfg["adapter"].(string); ok && a != "" {
		return a
	}
	return fallback
}

// StorageSaveHandler implements `storage.save` (spec §4.4, §4.7): auto-
// generates an id when absent (original_source/core/domains/storage/
// links.py:generate_id).
type StorageSaveHandler struct{ DefaultAdapter string }

func NewStorageSaveHandler() *StorageSaveHandler { return &StorageSaveHandler{DefaultAdapter: defaultAdapterName} }

func (h *StorageSaveHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"data":       map[string]any{"type": "object"},
			"id":         map[string]any{"type": "string"},
			"metadata":   map[string]any{"type": "object"},
		},
		"required": []any{"collection", "data"},
	}
}

func (h *StorageSaveHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	collection, _ := cfg["collection"].(string)
	if collection == "" {
		return recipe.Output{}, fmt.Errorf("%w: 'collection'", ErrMissingField)
	}
	data, _ := cfg["data"].(map[string]any)
	if data == nil {
		return recipe.Output{}, fmt.Errorf("%w: 'data'", ErrMissingField)
	}
	metadata, _ := cfg["metadata"].(map[string]any)

	id, _ := cfg["id"].(string)
	if id == "" {
		id = storage.GenerateID(collection)
	}

	repo, err := storage.NewRepository(collection, adapterName(cfg, h.DefaultAdapter))
	if err != nil {
		return recipe.Output{}, err
	}

	entity, err := repo.SaveEntity(id, data, metadata)
	if err != nil {
		return recipe.Output{}, err
	}

	result := recipe.NewValue(map[string]any{"success": true, "data": entity.ToMap()})
	return recipe.Output{Raw: result.String(), Data: result}, nil
}

// StorageGetHandler implements `storage.get`.
type StorageGetHandler struct{ DefaultAdapter string }

func NewStorageGetHandler() *StorageGetHandler { return &StorageGetHandler{DefaultAdapter: defaultAdapterName} }

func (h *StorageGetHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"id":         map[string]any{"type": "string"},
		},
		"required": []any{"collection", "id"},
	}
}

func (h *StorageGetHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	collection, _ := cfg["collection"].(string)
	id, _ := cfg["id"].(string)
	if collection == "" || id == "" {
		return recipe.Output{}, fmt.Errorf("%w: 'collection' and 'id'", ErrMissingField)
	}

	repo, err := storage.NewRepository(collection, adapterName(cfg, h.DefaultAdapter))
	if err != nil {
		return recipe.Output{}, err
	}

	entity, ok, err := repo.Get(id)
	if err != nil {
		return recipe.Output{}, err
	}
	if !ok {
		result := recipe.NewValue(map[string]any{"success": false, "error": "entity not found"})
		return recipe.Output{Raw: result.String(), Data: result}, nil
	}

	result := recipe.NewValue(map[string]any{"success": true, "data": entity})
	return recipe.Output{Raw: result.String(), Data: result}, nil
}

// StorageQueryHandler implements `storage.query`.
type StorageQueryHandler struct{ DefaultAdapter string }

func NewStorageQueryHandler() *StorageQueryHandler {
	return &StorageQueryHandler{DefaultAdapter: defaultAdapterName}
}

func (h *StorageQueryHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"filter":     map[string]any{"type": "object"},
			"limit":      map[string]any{"type": "integer"},
			"skip":       map[string]any{"type": "integer"},
		},
		"required": []any{"collection"},
	}
}

func (h *StorageQueryHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	collection, _ := cfg["collection"].(string)
	if collection == "" {
		return recipe.Output{}, fmt.Errorf("%w: 'collection'", ErrMissingField)
	}
	filter, _ := cfg["filter"].(map[string]any)

	repo, err := storage.NewRepository(collection, adapterName(cfg, h.DefaultAdapter))
	if err != nil {
		return recipe.Output{}, err
	}

	results, err := repo.Query(filter)
	if err != nil {
		return recipe.Output{}, err
	}

	results = applySkipLimit(results, cfg)

	items := make([]any, len(results))
	for i, r := range results {
		items[i] = r
	}
	result := recipe.NewValue(map[string]any{"success": true, "data": items, "count": len(items)})
	return recipe.Output{Raw: result.String(), Data: result}, nil
}

func applySkipLimit(results []map[string]any, cfg map[string]any) []map[string]any {
	if skip, ok := intField(cfg, "skip"); ok && skip > 0 {
		if skip >= len(results) {
			return nil
		}
		results = results[skip:]
	}
	if limit, ok := intField(cfg, "limit"); ok && limit >= 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

func intField(cfg map[string]any, key string) (int, bool) {
	v, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

// StorageDeleteHandler implements `storage.delete`.
type StorageDeleteHandler struct{ DefaultAdapter string }

func NewStorageDeleteHandler() *StorageDeleteHandler {
	return &StorageDeleteHandler{DefaultAdapter: defaultAdapterName}
}

func (h *StorageDeleteHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{"type": "string"},
			"id":         map[string]any{"type": "string"},
		},
		"required": []any{"collection", "id"},
	}
}

func (h *StorageDeleteHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	collection, _ := cfg["collection"].(string)
	id, _ := cfg["id"].(string)
	if collection == "" || id == "" {
		return recipe.Output{}, fmt.Errorf("%w: 'collection' and 'id'", ErrMissingField)
	}

	repo, err := storage.NewRepository(collection, adapterName(cfg, h.DefaultAdapter))
	if err != nil {
		return recipe.Output{}, err
	}

	if err := repo.Delete(id); err != nil {
		return recipe.Output{}, err
	}

	result := recipe.NewValue(map[string]any{"success": true})
	return recipe.Output{Raw: result.String(), Data: result}, nil
}

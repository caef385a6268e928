package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir, err := os.MkdirTemp("", "recipeforge-storage-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	adapter, err := NewFileAdapter(dir, "widgets")
	require.NoError(t, err)
	return &Repository{collection: "widgets", adapter: adapter}
}

func TestRepositorySaveGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save("widgets-1", map[string]any{"k": float64(1)}))

	entity, ok, err := repo.Get("widgets-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), entity["k"])
}

func TestRepositoryGetMissingReturnsNotOK(t *testing.T) {
	repo := newTestRepo(t)

	_, ok, err := repo.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryDeleteThenGetMisses(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save("widgets-1", map[string]any{"k": float64(1)}))
	require.NoError(t, repo.Delete("widgets-1"))

	_, ok, err := repo.Get("widgets-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryQueryEquality(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save("widgets-1", map[string]any{"data": map[string]any{"k": float64(1)}}))
	require.NoError(t, repo.Save("widgets-2", map[string]any{"data": map[string]any{"k": float64(2)}}))

	results, err := repo.Query(map[string]any{"data.k": float64(1)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float64(1), results[0]["data"].(map[string]any)["k"])
}

func TestRepositoryQueryContainsSuffix(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save("widgets-1", map[string]any{"name": "O'Brien"}))
	require.NoError(t, repo.Save("widgets-2", map[string]any{"name": "Smith"}))

	results, err := repo.Query(map[string]any{"name_contains": "brien"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "O'Brien", results[0]["name"])
}

func TestRepositoryQueryEmptyCollectionReturnsEmptyList(t *testing.T) {
	repo := newTestRepo(t)

	results, err := repo.Query(map[string]any{"anything": "value"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSaveEntityStampsCollectionAndTimestamps(t *testing.T) {
	repo := newTestRepo(t)

	entity, err := repo.SaveEntity("widgets-1", map[string]any{"k": float64(1)}, nil)
	require.NoError(t, err)

	assert.Equal(t, "widgets", entity.Collection)
	assert.NotEmpty(t, entity.CreatedAt)
	assert.NotEmpty(t, entity.UpdatedAt)

	stored, ok, err := repo.Get("widgets-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "widgets", stored["collection"])
	assert.Equal(t, entity.CreatedAt, stored["created_at"])
	assert.Equal(t, entity.UpdatedAt, stored["updated_at"])
}

func TestSaveEntityPreservesCreatedAtAcrossResave(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.SaveEntity("widgets-1", map[string]any{"k": float64(1)}, nil)
	require.NoError(t, err)

	second, err := repo.SaveEntity("widgets-1", map[string]any{"k": float64(2)}, nil)
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestGenerateIDFormat(t *testing.T) {
	id := GenerateID("widgets")
	assert.Regexp(t, `^widgets-[0-9a-f]{8}$`, id)
}

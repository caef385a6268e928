package links

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
)

func setupTestDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people (id, name) VALUES (1, "O'Brien"), (2, "Smith")`)
	require.NoError(t, err)

	return path, db
}

func TestSQLHandlerParameterizesPlaceholderNoInjection(t *testing.T) {
	path, _ := setupTestDB(t)

	h := &SQLHandler{Opener: func(url string) (*sql.DB, string, error) {
		db, err := sql.Open("sqlite3", path)
		return db, path, err
	}}

	ec := execctx.New()
	ec.Set("prev_output", recipe.Output{
		Data: recipe.NewValue(map[string]any{"n": "O'Brien"}),
	})

	link := recipe.Link{Raw: map[string]any{
		"query": "SELECT id FROM people WHERE name = {{ prev_output.data.n }}",
	}}
	cfg := map[string]any{"database_url": "file://" + path}

	out, err := h.Execute(context.Background(), link, cfg, ec)
	require.NoError(t, err)

	rows, ok := out.Data.Get("rows")
	require.True(t, ok)
	list, _ := rows.List()
	require.Len(t, list, 1)

	idVal, _ := list[0].Get("id")
	assert.EqualValues(t, int64(1), idVal.Raw())

	metadata, _ := out.Data.Get("metadata")
	queryVal, _ := metadata.Get("query")
	assert.Contains(t, queryVal.String(), "?")
	assert.NotContains(t, queryVal.String(), "O'Brien")
}

func TestSQLHandlerMissingQuery(t *testing.T) {
	h := NewSQLHandler()
	_, err := h.Execute(context.Background(), recipe.Link{Raw: map[string]any{}}, map[string]any{}, execctx.New())
	assert.Error(t, err)
}

func TestSQLHandlerInsertReturnsRowCount(t *testing.T) {
	path, _ := setupTestDB(t)

	h := &SQLHandler{Opener: func(url string) (*sql.DB, string, error) {
		db, err := sql.Open("sqlite3", path)
		return db, path, err
	}}

	link := recipe.Link{Raw: map[string]any{
		"query": "INSERT INTO people (id, name) VALUES (3, 'Lee')",
	}}
	cfg := map[string]any{"database_url": "file://" + path}

	out, err := h.Execute(context.Background(), link, cfg, execctx.New())
	require.NoError(t, err)

	metadata, _ := out.Data.Get("metadata")
	queryType, _ := metadata.Get("query_type")
	assert.Equal(t, "insert", queryType.String())
}

func TestClassifyQuery(t *testing.T) {
	assert.Equal(t, "select", classifyQuery("  SELECT 1"))
	assert.Equal(t, "insert", classifyQuery("insert into t values (1)"))
	assert.Equal(t, "update", classifyQuery("UPDATE t SET a=1"))
	assert.Equal(t, "delete", classifyQuery("delete from t"))
	assert.Equal(t, "other", classifyQuery("PRAGMA table_info(t)"))
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"recipeforge/internal/logging"
)

func init() {
	RegisterAdapter("sqlite", func(collection string) (Adapter, error) {
		return NewSQLiteAdapter(defaultSQLitePath, collection)
	})
}

var defaultSQLitePath = "./.recipeforge/storage/recipeforge.db"

// SetDefaultSQLitePath changes the path the "sqlite" adapter factory opens
// when constructed through the registry.
func SetDefaultSQLitePath(path string) {
	defaultSQLitePath = path
}

// SQLiteAdapter is the alternate adapter named in spec §4.7 ("Other
// adapters (e.g. SQLite, document store) implement the same interface"),
// grounded on internal/store/local_core.go's sql.Open + PRAGMA setup.
// One table per collection, entity data stored as JSON and filtered in Go
// (matchesCriteria) rather than translated to SQL predicates — the
// dotted-path/`_contains` filter language has no direct SQL equivalent.
type SQLiteAdapter struct {
	db         *sql.DB
	collection string
	mu         sync.Mutex
}

func NewSQLiteAdapter(path, collection string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("sqlite journal_mode=WAL: %v", err)
	}

	a := &SQLiteAdapter{db: db, collection: collection}
	if err := a.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *SQLiteAdapter) tableName() string {
	return "entities_" + a.collection
}

func (a *SQLiteAdapter) ensureTable() error {
	_, err := a.db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		a.tableName(),
	))
	return err
}

func (a *SQLiteAdapter) Save(id string, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = a.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data`, a.tableName()),
		id, string(encoded),
	)
	return err
}

func (a *SQLiteAdapter) Get(id string) (map[string]any, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var raw string
	row := a.db.QueryRow(fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, a.tableName()), id)
	if err := row.Scan(&raw); err == sql.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var entity map[string]any
	if err := json.Unmarshal([]byte(raw), &entity); err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

func (a *SQLiteAdapter) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, a.tableName()), id)
	return err
}

func (a *SQLiteAdapter) Query(filter map[string]any) ([]map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(fmt.Sprintf(`SELECT data FROM %s`, a.tableName()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var entity map[string]any
		if err := json.Unmarshal([]byte(raw), &entity); err != nil {
			return nil, err
		}
		if matchesCriteria(entity, filter) {
			results = append(results, entity)
		}
	}
	return results, rows.Err()
}

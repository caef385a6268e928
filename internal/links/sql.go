package links

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
	"recipeforge/internal/template"
)

// SQLHandler implements the `sql` built-in (spec §4.4 sql). Unlike every
// other field, `query` is deliberately read from the link's *unrendered*
// declaration: its placeholders are parameterized (bound as driver
// arguments) rather than substituted into the query text, so a value like
// O'Brien can never inject SQL (spec §8 scenario 3).
type SQLHandler struct {
	// Opener resolves a database_url to an *sql.DB. Defaults to a sqlite
	// "file://" opener; tests inject a fake.
	Opener func(databaseURL string) (*sql.DB, string, error)
}

func NewSQLHandler() *SQLHandler {
	return &SQLHandler{Opener: openSQLite}
}

func (h *SQLHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":        map[string]any{"type": "string"},
			"database_url": map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	}
}

func openSQLite(databaseURL string) (*sql.DB, string, error) {
	path := strings.TrimPrefix(databaseURL, "file://")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, "", fmt.Errorf("links: open database %s: %w", databaseURL, err)
	}
	return db, path, nil
}

var sqlPlaceholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

func (h *SQLHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	rawQuery, _ := link.Raw["query"].(string)
	if rawQuery == "" {
		return recipe.Output{}, fmt.Errorf("%w: 'query'", ErrMissingField)
	}
	if data, err := os.ReadFile(rawQuery); err == nil {
		rawQuery = string(data)
	}

	dbURL, _ := cfg["database_url"].(string)
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		dbURL = "file://./data.db"
	}

	engine := template.New()
	ctxValue := ec.AsValue()

	var args []any
	parameterized := sqlPlaceholderRe.ReplaceAllStringFunc(rawQuery, func(match string) string {
		path := sqlPlaceholderRe.FindStringSubmatch(match)[1]
		val := engine.RenderValue("{{ "+path+" }}", ctxValue)
		args = append(args, val.Raw())
		return "?"
	})

	db, _, err := h.Opener(dbURL)
	if err != nil {
		return recipe.Output{}, err
	}
	defer db.Close()

	queryType := classifyQuery(parameterized)

	if queryType != "select" {
		result, err := db.ExecContext(ctx, parameterized, args...)
		if err != nil {
			return recipe.Output{}, err
		}
		affected, _ := result.RowsAffected()
		data := recipe.NewValue(map[string]any{
			"metadata": map[string]any{
				"query":      parameterized,
				"row_count":  affected,
				"query_type": queryType,
			},
		})
		return recipe.Output{Raw: data.String(), Data: data}, nil
	}

	rows, err := db.QueryContext(ctx, parameterized, args...)
	if err != nil {
		return recipe.Output{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return recipe.Output{}, err
	}

	var resultRows []any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return recipe.Output{}, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeSQLValue(values[i])
		}
		resultRows = append(resultRows, row)
	}

	data := recipe.NewValue(map[string]any{
		"rows": resultRows,
		"metadata": map[string]any{
			"query":      parameterized,
			"row_count":  len(resultRows),
			"columns":    columns,
			"query_type": queryType,
		},
	})
	return recipe.Output{Raw: data.String(), Data: data}, nil
}

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func classifyQuery(q string) string {
	trimmed := strings.ToLower(strings.TrimSpace(q))
	switch {
	case strings.HasPrefix(trimmed, "select"):
		return "select"
	case strings.HasPrefix(trimmed, "insert"):
		return "insert"
	case strings.HasPrefix(trimmed, "update"):
		return "update"
	case strings.HasPrefix(trimmed, "delete"):
		return "delete"
	default:
		return "other"
	}
}

package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/registry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverBuiltinDomainsRegistersSchemas(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "weather", "forecast.schema.json"), `{"type": "object", "properties": {"temp": {"type": "number"}}}`)

	reg := registry.New()
	report := Run(reg, Options{BuiltinDomainDir: dir})

	assert.Equal(t, 1, report.SchemasLoaded)
	assert.Empty(t, report.Errors)

	s, ok := reg.Schema("weather.forecast")
	require.True(t, ok)
	assert.Equal(t, "object", s["type"])
}

func TestDiscoverBuiltinDomainsSkipsNonSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "weather", "README.md"), "not a schema")

	reg := registry.New()
	report := Run(reg, Options{BuiltinDomainDir: dir})
	assert.Equal(t, 0, report.SchemasLoaded)
}

func TestDiscoverBuiltinDomainsLogsAndSkipsMalformedSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "weather", "broken.schema.json"), `{not valid json`)
	writeFile(t, filepath.Join(dir, "weather", "forecast.schema.json"), `{"type": "object"}`)

	reg := registry.New()
	report := Run(reg, Options{BuiltinDomainDir: dir})

	assert.Equal(t, 1, report.SchemasLoaded)
	require.Len(t, report.Errors, 1)
}

func TestDiscoverPluginsRegistersFunctionAndSchema(t *testing.T) {
	root := t.TempDir()
	pluginDir := filepath.Join(root, "tripler")
	writeFile(t, filepath.Join(pluginDir, "manifest.yaml"), `
name: tripler
version: "1.0"
entry_points:
  functions:
    - functions/triple.go
  schemas:
    - schemas/result.schema.json
`)
	writeFile(t, filepath.Join(pluginDir, "functions", "triple.go"), `
func Run(inputs map[string]interface{}) (map[string]interface{}, error) {
	n, _ := inputs["n"].(float64)
	return map[string]interface{}{"value": n * 3}, nil
}
`)
	writeFile(t, filepath.Join(pluginDir, "schemas", "result.schema.json"), `{"type": "object", "required": ["value"]}`)

	reg := registry.New()
	report := Run(reg, Options{PluginDir: root})

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.FunctionsLoaded)
	assert.Equal(t, 1, report.SchemasLoaded)
	assert.Equal(t, []string{"tripler"}, report.PluginsLoaded)

	entry, ok := reg.Function("tripler", "triple")
	require.True(t, ok)
	result, err := entry.Fn(context.Background(), map[string]any{"n": float64(4)})
	require.NoError(t, err)
	value, _ := result.Get("value")
	assert.Equal(t, float64(12), value.Raw())

	_, ok = reg.Schema("tripler.result")
	assert.True(t, ok)
}

func TestDiscoverPluginsSkipsDirectoryWithoutManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-plugin"), 0o755))

	reg := registry.New()
	report := Run(reg, Options{PluginDir: root})
	assert.Empty(t, report.PluginsLoaded)
	assert.Empty(t, report.Errors)
}

func TestDiscoverPluginsMissingDirIsNotAnError(t *testing.T) {
	reg := registry.New()
	report := Run(reg, Options{PluginDir: filepath.Join(t.TempDir(), "does-not-exist")})
	assert.Empty(t, report.Errors)
}

func TestDiscoverPluginsLogsAndSkipsBadEntryPoint(t *testing.T) {
	root := t.TempDir()
	pluginDir := filepath.Join(root, "broken")
	writeFile(t, filepath.Join(pluginDir, "manifest.yaml"), `
name: broken
version: "1.0"
entry_points:
  functions:
    - functions/missing.go
`)

	reg := registry.New()
	report := Run(reg, Options{PluginDir: root})
	require.Len(t, report.Errors, 1)
	assert.Empty(t, report.PluginsLoaded)
}

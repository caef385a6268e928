// Package discovery implements startup enumeration of built-in domains and
// plugin directories (spec.md §4.8, C8), registering their contributions
// with the registry substrate. Grounded on
// internal/core/mangle_watcher.go's directory-watching discipline
// (generalized here to plugin hot-reload) and
// original_source/core/registration/domains.py's manifest-driven loading.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes one plugin directory (spec §6.6).
type Manifest struct {
	Name        string      `yaml:"name" json:"name"`
	Version     string      `yaml:"version" json:"version"`
	EntryPoints EntryPoints `yaml:"entry_points" json:"entry_points"`
}

// EntryPoints lists the module files a plugin contributes (spec §6.6:
// "module files that, when loaded, register link handlers, schemas, and
// domain functions with C1").
type EntryPoints struct {
	LinkHandlers []string `yaml:"link_handlers" json:"link_handlers"`
	Schemas      []string `yaml:"schemas" json:"schemas"`
	Functions    []string `yaml:"functions" json:"functions"`
}

// manifestFilenames is the search order spec §6.6 names: "manifest.{yaml,json}".
var manifestFilenames = []string{"manifest.yaml", "manifest.yml", "manifest.json"}

// ReadManifest finds and parses a plugin manifest inside dir, if present.
func ReadManifest(dir string) (*Manifest, bool, error) {
	for _, name := range manifestFilenames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("discovery: read manifest %s: %w", path, err)
		}

		var m Manifest
		if filepath.Ext(path) == ".json" {
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, false, fmt.Errorf("discovery: parse manifest %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(data, &m); err != nil {
				return nil, false, fmt.Errorf("discovery: parse manifest %s: %w", path, err)
			}
		}
		return &m, true, nil
	}
	return nil, false, nil
}

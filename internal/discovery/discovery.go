package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"recipeforge/internal/logging"
	"recipeforge/internal/registry"
)

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Options configures one discovery pass (spec §4.8).
type Options struct {
	// BuiltinDomainDir is walked for *.schema.{yaml,json} files, each
	// registered as "<domain>.<name>" where domain is the file's immediate
	// parent directory name.
	BuiltinDomainDir string
	// PluginDir is walked one level deep: each subdirectory containing a
	// manifest is loaded as a plugin (spec §6.6).
	PluginDir string
}

// Report summarizes one discovery pass: what loaded and what was skipped.
// Discovery failures are logged and skipped, never fatal (spec §4.8:
// "Discovery failures are logged and skipped; they never abort startup").
type Report struct {
	SchemasLoaded   int
	FunctionsLoaded int
	HandlersLoaded  int
	PluginsLoaded   []string
	Errors          []error
}

// Run performs one discovery pass: built-in domain schemas, then plugin
// manifests, registering every contribution into reg.
func Run(reg *registry.Registry, opts Options) Report {
	var report Report

	if opts.BuiltinDomainDir != "" {
		discoverBuiltinDomains(reg, opts.BuiltinDomainDir, &report)
	}
	if opts.PluginDir != "" {
		discoverPlugins(reg, opts.PluginDir, &report)
	}

	for _, err := range report.Errors {
		logging.Get(logging.CategoryDiscovery).Warn("discovery: %v", err)
	}
	return report
}

// discoverBuiltinDomains walks dir for *.schema.yaml / *.schema.yml /
// *.schema.json files (spec §4.8: "walk the built-in domain directory and
// import each").
func discoverBuiltinDomains(reg *registry.Registry, dir string, report *Report) {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			report.Errors = append(report.Errors, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !isSchemaFile(path) {
			return nil
		}
		domain := filepath.Base(filepath.Dir(path))
		if loadErr := loadSchemaFile(reg, domain, path); loadErr != nil {
			report.Errors = append(report.Errors, loadErr)
			return nil
		}
		report.SchemasLoaded++
		return nil
	})
	if err != nil {
		report.Errors = append(report.Errors, err)
	}
}

func isSchemaFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".schema.yaml", ".schema.yml", ".schema.json"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// discoverPlugins walks pluginDir one level deep: each subdirectory with a
// manifest is loaded as a plugin (spec §6.6).
func discoverPlugins(reg *registry.Registry, pluginDir string, report *Report) {
	entries, err := os.ReadDir(pluginDir)
	if err != nil {
		if !os.IsNotExist(err) {
			report.Errors = append(report.Errors, err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(pluginDir, entry.Name())
		manifest, found, err := ReadManifest(dir)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		if !found {
			continue
		}
		loadPlugin(reg, dir, manifest, report)
	}
}

func loadPlugin(reg *registry.Registry, dir string, manifest *Manifest, report *Report) {
	domain := manifest.Name
	loaded := true

	for _, rel := range manifest.EntryPoints.Schemas {
		if err := loadSchemaFile(reg, domain, filepath.Join(dir, rel)); err != nil {
			report.Errors = append(report.Errors, err)
			loaded = false
			continue
		}
		report.SchemasLoaded++
	}

	for _, rel := range manifest.EntryPoints.Functions {
		if err := loadFunctionFile(reg, domain, filepath.Join(dir, rel)); err != nil {
			report.Errors = append(report.Errors, err)
			loaded = false
			continue
		}
		report.FunctionsLoaded++
	}

	for _, rel := range manifest.EntryPoints.LinkHandlers {
		typeName := domain + "." + baseName(rel)
		if err := loadLinkHandlerFile(reg, typeName, filepath.Join(dir, rel)); err != nil {
			report.Errors = append(report.Errors, err)
			loaded = false
			continue
		}
		report.HandlersLoaded++
	}

	reg.RegisterDomain(registry.DomainInterface{
		Domain:    domain,
		Version:   manifest.Version,
		Schemas:   manifest.EntryPoints.Schemas,
		Functions: manifest.EntryPoints.Functions,
	})

	if loaded {
		report.PluginsLoaded = append(report.PluginsLoaded, domain)
	}
}

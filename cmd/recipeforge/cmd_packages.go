package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"recipeforge/internal/discovery"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List, install, uninstall, and scaffold plugin packages",
}

var packagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugin packages",
	RunE:  runPackagesList,
}

var installDev bool

var packagesInstallCmd = &cobra.Command{
	Use:   "install <path>",
	Short: "Install a plugin package from a local directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackagesInstall,
}

var packagesUninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Remove an installed plugin package",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackagesUninstall,
}

var (
	packageDomain string
	packagePlugin string
)

var packagesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Scaffold a new plugin package template",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackagesCreate,
}

func init() {
	packagesInstallCmd.Flags().BoolVar(&installDev, "dev", false, "Symlink instead of copying, for local development")
	packagesCreateCmd.Flags().StringVar(&packageDomain, "domain", "", "Include a domain template named after this value")
	packagesCreateCmd.Flags().StringVar(&packagePlugin, "plugin", "", "Include a function stub file functions/<value>.go")
}

// runPackagesList enumerates pluginDir's subdirectories and reports each
// one's manifest, the Go equivalent of core/cli/commands/packages.py's
// PackageRegistry.list_packages() (grounded on that file; there is no pip
// registry to query here, only manifests already on disk).
func runPackagesList(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(cfg.PluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no packages installed")
			return nil
		}
		return fmt.Errorf("packages list: %w", err)
	}

	var names []string
	manifests := map[string]*discovery.Manifest{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.PluginDir, entry.Name())
		manifest, found, err := discovery.ReadManifest(dir)
		if err != nil || !found {
			continue
		}
		names = append(names, entry.Name())
		manifests[entry.Name()] = manifest
	}

	if len(names) == 0 {
		fmt.Println("no packages installed")
		return nil
	}

	sort.Strings(names)
	fmt.Printf("Installed packages (%d):\n", len(names))
	for _, name := range names {
		m := manifests[name]
		version := m.Version
		if version == "" {
			version = "0.1.0"
		}
		fmt.Printf("  - %s (v%s)\n", m.Name, version)
	}
	return nil
}

// runPackagesInstall copies a local plugin directory into the configured
// plugin directory (spec §6.6). Only local paths are supported: the
// original's pip-based installer also accepted PyPI names and git URLs,
// but this module has no package-manager dependency to resolve those
// against, so that path is out of scope here.
func runPackagesInstall(cmd *cobra.Command, args []string) error {
	src := args[0]
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("packages install: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("packages install: %s is not a directory", src)
	}

	manifest, found, err := discovery.ReadManifest(src)
	if err != nil {
		return fmt.Errorf("packages install: %w", err)
	}
	if !found {
		return fmt.Errorf("packages install: %s has no manifest.{yaml,json}", src)
	}

	dest := filepath.Join(cfg.PluginDir, manifest.Name)
	if installDev {
		if err := os.MkdirAll(cfg.PluginDir, 0o755); err != nil {
			return fmt.Errorf("packages install: %w", err)
		}
		abs, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("packages install: %w", err)
		}
		if err := os.Symlink(abs, dest); err != nil {
			return fmt.Errorf("packages install: %w", err)
		}
	} else if err := copyDir(src, dest); err != nil {
		return fmt.Errorf("packages install: %w", err)
	}

	fmt.Printf("installed %s (v%s) to %s\n", manifest.Name, manifest.Version, dest)
	fmt.Println("restart to pick up the new package, or rely on the watcher if running")
	return nil
}

func runPackagesUninstall(cmd *cobra.Command, args []string) error {
	dest := filepath.Join(cfg.PluginDir, args[0])
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("packages uninstall: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("packages uninstall: %w", err)
	}
	fmt.Printf("uninstalled %s\n", args[0])
	return nil
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// runPackagesCreate scaffolds a new plugin directory containing a manifest
// and stub entry-point files (spec §6.6), generalized from
// utils/package_template.py's TEMPLATES/DOMAIN_TEMPLATE/PLUGIN_TEMPLATE
// string scaffolding.
func runPackagesCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	dir := filepath.Join(workspace, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("packages create: %w", err)
	}

	manifest := fmt.Sprintf(`name: %s
version: "0.1.0"
entry_points:
  functions: []
  schemas: []
  link_handlers: []
`, name)
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		return fmt.Errorf("packages create: %w", err)
	}

	if packageDomain != "" {
		schemaDir := filepath.Join(dir, "schemas")
		if err := os.MkdirAll(schemaDir, 0o755); err != nil {
			return fmt.Errorf("packages create: %w", err)
		}
		schema := fmt.Sprintf(`{
  "type": "object",
  "description": "entries for the %s domain",
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"}
  },
  "required": ["name"]
}
`, packageDomain)
		schemaPath := filepath.Join(schemaDir, packageDomain+".schema.json")
		if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
			return fmt.Errorf("packages create: %w", err)
		}
		fmt.Printf("  added domain schema stub: %s\n", schemaPath)
	}

	if packagePlugin != "" {
		fnDir := filepath.Join(dir, "functions")
		if err := os.MkdirAll(fnDir, 0o755); err != nil {
			return fmt.Errorf("packages create: %w", err)
		}
		stub := `func Run(inputs map[string]interface{}) (map[string]interface{}, error) {
	return inputs, nil
}
`
		fnPath := filepath.Join(fnDir, packagePlugin+".go")
		if err := os.WriteFile(fnPath, []byte(stub), 0o644); err != nil {
			return fmt.Errorf("packages create: %w", err)
		}
		fmt.Printf("  added function stub: %s\n", fnPath)
	}

	fmt.Printf("created package template at %s\n", dir)
	fmt.Println("next: edit manifest.yaml, fill in entry_points, then `packages install` it")
	return nil
}

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
)

// loadSchemaFile loads one schemas entry-point file (spec §6.6) as a plain
// JSON-schema-shaped map and registers it under "<domain>.<base>", where
// <base> is the file name without its extension and any ".schema" suffix.
func loadSchemaFile(reg *registry.Registry, domain, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("discovery: read schema %s: %w", path, err)
	}

	var decoded map[string]any
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &decoded)
	} else {
		err = yaml.Unmarshal(data, &decoded)
	}
	if err != nil {
		return fmt.Errorf("discovery: parse schema %s: %w", path, err)
	}

	reg.RegisterSchema(domain+"."+strings.TrimSuffix(baseName(path), ".schema"), decoded)
	return nil
}

// loadFunctionFile loads one functions entry-point file (spec §6.6). A
// functions file is interpreted Go source defining:
//
//	func Run(inputs map[string]interface{}) (map[string]interface{}, error)
//
// the same calling convention as inline `function` link code (spec §4.4),
// generalized here from recipe-authored code to plugin-authored code: the
// plugin loader runs with the full standard library rather than the
// sandbox's whitelist, since plugin directories are operator-installed and
// trusted, unlike recipe-authored inline code.
func loadFunctionFile(reg *registry.Registry, domain, path string) error {
	fn, err := evalRunFunc(path)
	if err != nil {
		return err
	}

	name := baseName(path)
	reg.RegisterFunction(registry.FunctionEntry{
		Domain:      domain,
		Name:        name,
		Description: fmt.Sprintf("plugin function loaded from %s", path),
		Fn: func(ctx context.Context, args map[string]any) (recipe.Value, error) {
			out, err := fn(args)
			if err != nil {
				return recipe.Value{}, err
			}
			return recipe.NewValue(out), nil
		},
	})
	return nil
}

// linkHandlerAdapter exposes a Run-style plugin function as a Handler (spec
// §6.6: link_handlers entry points "register link handlers ... with C1").
// Plugin-authored handlers use the same Run(inputs) convention as functions;
// the adapter supplies the Schema()/Execute() shape the registry expects.
type linkHandlerAdapter struct {
	run func(map[string]interface{}) (map[string]interface{}, error)
}

func (a *linkHandlerAdapter) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func (a *linkHandlerAdapter) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	raw := make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		raw[k] = v
	}
	out, err := a.run(raw)
	if err != nil {
		return recipe.Output{}, err
	}
	data := recipe.NewValue(out)
	return recipe.Output{Raw: data.String(), Data: data}, nil
}

func loadLinkHandlerFile(reg *registry.Registry, typeName, path string) error {
	fn, err := evalRunFunc(path)
	if err != nil {
		return err
	}
	reg.RegisterHandler(typeName, &linkHandlerAdapter{run: fn})
	return nil
}

// evalRunFunc interprets a plugin source file and extracts its exported
// Run(map[string]interface{}) (map[string]interface{}, error) entry point.
func evalRunFunc(path string) (func(map[string]interface{}) (map[string]interface{}, error), error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", path, err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("discovery: load stdlib: %w", err)
	}
	if _, err := i.Eval(wrapPluginSource(string(code))); err != nil {
		return nil, fmt.Errorf("discovery: evaluate %s: %w", path, err)
	}

	fnVal, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("discovery: %s has no Run function: %w", path, err)
	}
	fn, ok := fnVal.Interface().(func(map[string]interface{}) (map[string]interface{}, error))
	if !ok {
		return nil, fmt.Errorf("discovery: %s Run has the wrong signature", path)
	}
	return fn, nil
}

func wrapPluginSource(code string) string {
	trimmed := code
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) >= len("package main") && trimmed[:len("package main")] == "package main" {
		return code
	}
	return "package main\n\n" + code
}

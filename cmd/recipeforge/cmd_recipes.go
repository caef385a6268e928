package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recipeforge/internal/recipe"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Create, validate, and generate recipes",
}

var (
	recipeName        string
	recipeDomain      string
	recipeInteractive bool
)

var recipesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new recipe, interactively or from flags",
	RunE:  runRecipesCreate,
}

var recipesValidateCmd = &cobra.Command{
	Use:   "validate <recipe-file>",
	Short: "Parse and structurally validate a recipe file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipesValidate,
}

var linkTypeFlag string
var generateOutputFlag string

var recipesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a recipe skeleton containing one link of the given type",
	RunE:  runRecipesGenerate,
}

func init() {
	recipesCreateCmd.Flags().StringVar(&recipeName, "name", "", "Recipe name")
	recipesCreateCmd.Flags().StringVar(&recipeDomain, "domain", "", "Primary domain")
	recipesCreateCmd.Flags().BoolVar(&recipeInteractive, "interactive", false, "Use the interactive wizard")

	recipesGenerateCmd.Flags().StringVar(&linkTypeFlag, "link-type", "llm", "Link type to generate a template for")
	recipesGenerateCmd.Flags().StringVar(&generateOutputFlag, "output", "", "Output file path (default: stdout)")
}

func runRecipesCreate(cmd *cobra.Command, args []string) error {
	if recipeInteractive {
		return interactiveRecipeWizard()
	}
	if recipeName == "" {
		return fmt.Errorf("recipes create: --name is required without --interactive")
	}
	r := map[string]any{
		"name":        recipeName,
		"version":     "1.0.0",
		"description": "",
		"domain":      recipeDomain,
		"links":       []any{},
	}
	return writeRecipeFile(recipeName, r)
}

// interactiveRecipeWizard collects recipe metadata and a run of links via
// terminal forms, the same huh-based collection style the user_input
// handler uses at recipe-run time (blackcoderx-falcon/pkg/core/init.go),
// generalized here from gathering recipe inputs to gathering recipe
// structure.
func interactiveRecipeWizard() error {
	var name, description, version, domain string
	version = "1.0.0"
	domain = "generic"

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Recipe name").Value(&name),
		huh.NewInput().Title("Description").Value(&description),
		huh.NewInput().Title("Version").Value(&version),
		huh.NewInput().Title("Primary domain").Value(&domain),
	)).Run()
	if err != nil {
		return fmt.Errorf("recipes create: %w", err)
	}

	var links []any
	for {
		var addLink bool
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Add a link to the recipe?").Value(&addLink),
		)).Run()
		if err != nil {
			return fmt.Errorf("recipes create: %w", err)
		}
		if !addLink {
			break
		}

		var linkName, linkType string
		err = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Link name").Value(&linkName),
			huh.NewSelect[string]().Title("Link type").
				Options(
					huh.NewOption("llm", "llm"),
					huh.NewOption("user_input", "user_input"),
					huh.NewOption("function", "function"),
					huh.NewOption("sql", "sql"),
					huh.NewOption("storage.save", "storage.save"),
					huh.NewOption("storage.get", "storage.get"),
					huh.NewOption("storage.query", "storage.query"),
					huh.NewOption("storage.delete", "storage.delete"),
				).
				Value(&linkType),
		)).Run()
		if err != nil {
			return fmt.Errorf("recipes create: %w", err)
		}

		links = append(links, map[string]any{"name": linkName, "type": linkType})
	}

	r := map[string]any{
		"name":        name,
		"description": description,
		"version":     version,
		"domain":      domain,
		"links":       links,
	}
	return writeRecipeFile(name, r)
}

func writeRecipeFile(name string, r map[string]any) error {
	encoded, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("recipes create: encode: %w", err)
	}

	filename := strings.ToLower(strings.ReplaceAll(name, " ", "_")) + ".yaml"
	dir := filepath.Join(workspace, "templates", "recipes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recipes create: %w", err)
	}
	outputPath := filepath.Join(dir, filename)
	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return fmt.Errorf("recipes create: %w", err)
	}

	fmt.Printf("recipe created at %s\n", outputPath)
	return nil
}

func runRecipesValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("recipes validate: %w", err)
	}
	r, err := recipe.Parse(data)
	if err != nil {
		fmt.Printf("invalid: %v\n", err)
		return err
	}
	fmt.Printf("valid: %q (%d links)\n", r.Name, len(r.Links))
	return nil
}

// linkTypeTemplates provides a starting skeleton per built-in link type,
// mirroring the shape cmd_run's discovery-populated registry would expect.
var linkTypeTemplates = map[string]map[string]any{
	"llm": {
		"prompt": "describe what you want the model to do",
	},
	"user_input": {
		"inputs": map[string]any{
			"example_field": map[string]any{"type": "string", "required": true},
		},
	},
	"function": {
		"function": map[string]any{"name": "core.random_number"},
	},
	"sql": {
		"query": "SELECT 1",
	},
	"storage.save": {
		"collection": "example",
		"data":       map[string]any{},
	},
}

func runRecipesGenerate(cmd *cobra.Command, args []string) error {
	fields, ok := linkTypeTemplates[linkTypeFlag]
	if !ok {
		return fmt.Errorf("recipes generate: unknown link type %q", linkTypeFlag)
	}

	link := map[string]any{
		"name": "NewLink",
		"type": linkTypeFlag,
	}
	for k, v := range fields {
		link[k] = v
	}

	r := map[string]any{
		"name":    "generated_recipe",
		"version": "1.0.0",
		"links":   []any{link},
	}
	encoded, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("recipes generate: %w", err)
	}

	if generateOutputFlag == "" {
		fmt.Print(string(encoded))
		return nil
	}
	if err := os.WriteFile(generateOutputFlag, encoded, 0o644); err != nil {
		return fmt.Errorf("recipes generate: %w", err)
	}
	fmt.Printf("recipe template written to %s\n", generateOutputFlag)
	return nil
}

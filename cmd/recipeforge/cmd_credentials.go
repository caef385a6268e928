package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Check, list, and set up language-model and database credentials",
}

// credentialSpec names one known environment variable this module's
// built-in handlers read, grounded on
// original_source/core/security/credentials.py's register_domain_credentials
// registry, flattened here to the fixed set recipeforge's own handlers
// consult (spec §6.4).
type credentialSpec struct {
	Name        string
	Description string
	Required    bool
}

var knownCredentials = []credentialSpec{
	{Name: "GEMINI_API_KEY", Description: "Google Gemini API key used by llm links", Required: true},
	{Name: "OPENAI_API_KEY", Description: "OpenAI API key, alternate llm provider", Required: false},
	{Name: "DATABASE_URL", Description: "sql link connection string when the link sets no database_url (default file://./data.db)", Required: false},
}

var credentialDomain string

var credentialsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which known credentials are currently set",
	RunE:  runCredentialsCheck,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials recipeforge's built-in handlers look for",
	RunE:  runCredentialsList,
}

var globalEnv bool

var credentialsSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively set every known credential",
	RunE:  runCredentialsSetup,
}

var credentialsUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a single credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsUpdate,
}

func init() {
	credentialsCheckCmd.Flags().StringVar(&credentialDomain, "domain", "", "unused placeholder matching the upstream CLI surface; recipeforge's credentials are not domain-scoped")
	credentialsSetupCmd.Flags().BoolVar(&globalEnv, "global", false, "Accepted for compatibility; credentials are always written to <workspace>/.env")
	credentialsUpdateCmd.Flags().BoolVar(&globalEnv, "global", false, "Accepted for compatibility; credentials are always written to <workspace>/.env")
}

func envPath() string {
	return filepath.Join(workspace, ".env")
}

func runCredentialsCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Credentials ===")
	for _, c := range knownCredentials {
		status := "not set"
		if os.Getenv(c.Name) != "" {
			status = "set"
		}
		marker := "  "
		if status == "set" {
			marker = "OK"
		} else if c.Required {
			marker = "!!"
		}
		fmt.Printf("[%s] %-20s %s\n", marker, c.Name, status)
	}
	return nil
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	for _, c := range knownCredentials {
		required := "optional"
		if c.Required {
			required = "required"
		}
		fmt.Printf("%s (%s): %s\n", c.Name, required, c.Description)
	}
	return nil
}

func runCredentialsSetup(cmd *cobra.Command, args []string) error {
	path := envPath()
	if globalEnv {
		path = filepath.Join(workspace, ".env")
	}
	existing, _ := godotenv.Read(path)
	if existing == nil {
		existing = map[string]string{}
	}

	fmt.Println("Setting up credentials. Leave blank to keep the current value.")
	for _, c := range knownCredentials {
		current := existing[c.Name]
		if current == "" {
			current = os.Getenv(c.Name)
		}
		masked := "(not set)"
		if current != "" {
			masked = strings.Repeat("*", len(current))
		}

		var value string
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s (%s)", c.Name, c.Description)).
				Description("current: "+masked).
				Value(&value).
				Password(true),
		)).Run()
		if err != nil {
			return fmt.Errorf("credentials setup: %w", err)
		}

		if value != "" {
			existing[c.Name] = value
		} else if current == "" && c.Required {
			fmt.Printf("warning: %s is required but was left unset\n", c.Name)
		}
	}

	if err := writeEnvFile(path, existing); err != nil {
		return fmt.Errorf("credentials setup: %w", err)
	}
	fmt.Printf("credentials saved to %s\n", path)
	return nil
}

func runCredentialsUpdate(cmd *cobra.Command, args []string) error {
	name := args[0]
	var spec *credentialSpec
	for i := range knownCredentials {
		if knownCredentials[i].Name == name {
			spec = &knownCredentials[i]
			break
		}
	}
	if spec == nil {
		return fmt.Errorf("credentials update: unknown credential %q", name)
	}

	path := envPath()
	existing, _ := godotenv.Read(path)
	if existing == nil {
		existing = map[string]string{}
	}
	current := existing[name]
	if current == "" {
		current = os.Getenv(name)
	}
	masked := "(not set)"
	if current != "" {
		masked = strings.Repeat("*", len(current))
	}

	var value string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("New value for %s", name)).
			Description("current: "+masked).
			Value(&value).
			Password(true),
	)).Run()
	if err != nil {
		return fmt.Errorf("credentials update: %w", err)
	}

	if value == "" {
		fmt.Println("no value provided, keeping current value")
		return nil
	}
	existing[name] = value
	if err := writeEnvFile(path, existing); err != nil {
		return fmt.Errorf("credentials update: %w", err)
	}
	fmt.Printf("updated %s in %s\n", name, path)
	return nil
}

// writeEnvFile serializes vars as KEY=VALUE lines, grounded on
// original_source/core/cli/commands/credentials.py's _write_env_file
// (that version preserves comments in the existing file; godotenv.Write
// has no such concept, so this rewrites the file from the merged map).
func writeEnvFile(path string, vars map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return godotenv.Write(vars, path)
}

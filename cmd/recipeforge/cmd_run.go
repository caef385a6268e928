package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/internal/config"
	"recipeforge/internal/discovery"
	"recipeforge/internal/executor"
	"recipeforge/internal/links"
	"recipeforge/internal/logging"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
	"recipeforge/internal/schema"
	"recipeforge/internal/storage"
)

var strictFlag bool

var runCmd = &cobra.Command{
	Use:   "run <recipe>",
	Short: "Execute a recipe and print its resulting context as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipe,
}

func init() {
	runCmd.Flags().BoolVar(&strictFlag, "strict", false, "Abort on the first handler error instead of recording it and continuing")
}

func runRecipe(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recipe: %w", err)
	}

	r, err := recipe.Parse(data)
	if err != nil {
		return fmt.Errorf("parse recipe: %w", err)
	}

	domainDir := ""
	if r.Domain != "" {
		domainDir = filepath.Join(cfg.DomainDir, r.Domain)
	}
	coreDir := filepath.Join(cfg.DomainDir, "core")
	if err := config.LoadEnvHierarchy(domainDir, coreDir, workspace); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	storage.SetDefaultBaseDir(cfg.Storage.BaseDir)
	storage.SetDefaultSQLitePath(strings.TrimPrefix(cfg.DatabaseURL, "file://"))

	reg := registry.New()
	schemaReg := schema.New(reg)

	report := discovery.Run(reg, discovery.Options{
		BuiltinDomainDir: cfg.DomainDir,
		PluginDir:        cfg.PluginDir,
	})
	for _, derr := range report.Errors {
		logging.Get(logging.CategoryDiscovery).Warn("discovery error: %v", derr)
	}

	if cfg.PluginDir != "" {
		if watcher, werr := discovery.NewWatcher(reg, cfg.PluginDir); werr != nil {
			logging.Get(logging.CategoryDiscovery).Warn("plugin watcher: %v (continuing without hot-reload)", werr)
		} else if err := watcher.Start(cmd.Context()); err != nil {
			logging.Get(logging.CategoryDiscovery).Warn("plugin watcher: %v (continuing without hot-reload)", err)
		} else {
			defer watcher.Stop()
		}
	}

	links.RegisterBuiltins(reg, schemaReg, newLazyLLMClient(cfg.LLM.Model), cfg.Execution.ConversationHistoryLimit)

	exec := executor.New(reg, schemaReg)
	ec, err := exec.Execute(cmd.Context(), r, executor.Options{Strict: strictFlag || cfg.Execution.Strict})

	result := make(map[string]any, len(ec.Keys()))
	for _, key := range ec.Keys() {
		out, _ := ec.Get(key)
		result[key] = out.OrRaw().Raw()
	}

	encoded, marshalErr := json.MarshalIndent(result, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("encode result: %w", marshalErr)
	}
	fmt.Println(string(encoded))

	if err != nil {
		return err
	}
	return nil
}

// lazyLLMClient defers credential resolution and client construction to the
// first Chat call: spec §6.4 requires missing credentials to "fail loudly
// at the first link that requires them, not at startup".
type lazyLLMClient struct {
	model  string
	client links.LLMClient
}

func newLazyLLMClient(model string) *lazyLLMClient {
	return &lazyLLMClient{model: model}
}

func (l *lazyLLMClient) Chat(ctx context.Context, messages []links.Message) (string, error) {
	if l.client == nil {
		apiKey, err := config.RequireEnv("GEMINI_API_KEY")
		if err != nil {
			return "", err
		}
		client, err := links.NewGenAIClient(ctx, apiKey, l.model)
		if err != nil {
			return "", err
		}
		l.client = client
	}
	return l.client.Chat(ctx, messages)
}

// Package main implements the recipeforge CLI: run, recipes, packages, and
// credentials subcommands (spec.md §6.3). Grounded on cmd/nerd/main.go's
// cobra root command and zap console logger split between human-facing
// stderr diagnostics and structured stdout results.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"recipeforge/internal/config"
	"recipeforge/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "recipeforge",
	Short: "recipeforge - declarative recipe execution engine",
	Long: `recipeforge runs YAML-authored recipes: ordered links (llm, user_input,
function, sql, storage.*) executed in sequence, each reading prior links'
output through {{ path }} template placeholders.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, absErr := filepath.Abs(ws); absErr == nil {
			ws = abs
		}
		workspace = ws

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logging.Initialize(workspace, logging.Settings{
			DebugMode:  cfg.Logging.DebugMode || verbose,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "recipeforge.yaml", "Path to config file")

	recipesCmd.AddCommand(recipesCreateCmd, recipesValidateCmd, recipesGenerateCmd)
	packagesCmd.AddCommand(packagesListCmd, packagesInstallCmd, packagesUninstallCmd, packagesCreateCmd)
	credentialsCmd.AddCommand(credentialsCheckCmd, credentialsListCmd, credentialsSetupCmd, credentialsUpdateCmd)

	rootCmd.AddCommand(runCmd, recipesCmd, packagesCmd, credentialsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

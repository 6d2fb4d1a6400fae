package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/config"
	"github.com/abhisek/quizgen/internal/logger"
	"github.com/abhisek/quizgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "quizgen",
	Short:         "Generate quiz questions from course material with an LLM",
	Long:          "quizgen turns free-text course material into short answer, true/false or multiple choice questions and commits them to a course question bank.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZGEN_DB env var)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config named by --config, falling back to defaults
// and environment variables.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command's logger from config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then db.path from config, then QUIZGEN_DB env var and the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB.Path != "" {
		return cfg.DB.Path, store.EnsureDir(cfg.DB.Path)
	}
	return store.DefaultDBPath()
}

// openStore resolves the database path and opens it.
func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/ai"
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/storage"
	"github.com/siftlabs/sift/internal/storage/sqlite"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Failure pattern analysis for AI test suites",
	Long: `sift ingests AI test results, clusters the failures into patterns,
and consolidates per-pattern fixes into an impact-ranked plan.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the run database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "skip API calls, use heuristic analysis only")
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then environment overrides, then flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// openStorage opens the run database named by the configuration, falling
// back to ~/.sift/sift.db when none is configured.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	path := cfg.DatabasePath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("no database path configured and no home directory: %w", err)
		}
		path = filepath.Join(home, ".sift", "sift.db")
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	return store, nil
}

// newCollaborator picks the analysis backend: the API analyst when a key is
// available, the deterministic heuristic otherwise.
func newCollaborator() ai.Collaborator {
	if offline {
		return ai.NewHeuristic()
	}
	analyst, err := ai.NewAnalyst(ai.Config{})
	if err != nil {
		slog.Warn("API analyst unavailable, falling back to heuristic analysis", "reason", err)
		return ai.NewHeuristic()
	}
	return analyst
}

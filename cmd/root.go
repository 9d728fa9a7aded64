package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hurou927/fd-discover/internal/config"
)

var (
	cfgPath        string
	cfg            *config.Config
	verbose        bool
	checkpointPath string
	logger         = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "fd-discover",
	Short: "Discover functional dependencies in a table",
	Long: `fd-discover reads a relation from PostgreSQL, SQLite or CSV and finds every
minimal functional dependency X -> A that holds on it, exactly or within a g3 error
threshold. Runs can be checkpointed to SQLite and resumed level by level.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		if cfgPath == "" {
			return nil
		}
		cfg, err = config.Load(cfgPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&checkpointPath, "checkpoint", "", "SQLite checkpoint database (overrides checkpoint.path)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveCheckpointPath returns the checkpoint database from the flag or the config.
func resolveCheckpointPath() string {
	if checkpointPath != "" {
		return checkpointPath
	}
	if cfg != nil {
		return cfg.Checkpoint.Path
	}
	return ""
}

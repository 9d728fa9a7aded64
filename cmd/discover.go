package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/checkpoint"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/output"
	"github.com/hurou927/fd-discover/internal/tane"
)

var (
	outputPath   string
	outputFormat string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover the minimal functional dependencies of a table",
	Long: `Loads the configured relation, runs a level-wise search for minimal functional
dependencies and writes them in the selected format. With a checkpoint database the
search state is saved before every level so an interrupted run can be resumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("--config is required")
		}
		format, path := resolveOutput()
		if err := checkFormat(format); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rel, err := loadRelation(ctx, &cfg.Source, logger)
		if err != nil {
			return err
		}
		names := rel.AttributeNames()

		w, closeOutput, err := openOutput(path)
		if err != nil {
			return err
		}
		defer closeOutput()

		collector := &fd.Collector{}
		sinks := []fd.Sink{collector}
		if format == formatJSON {
			sinks = append(sinks, output.NewJSONSink(w, rel.Name, names))
		}
		opts := []tane.Option{tane.WithLogger(logger)}

		var (
			store *checkpoint.Store
			run   *checkpoint.Run
		)
		if dbPath := resolveCheckpointPath(); dbPath != "" {
			store, err = checkpoint.Open(ctx, dbPath, logger)
			if err != nil {
				return fmt.Errorf("opening checkpoint store: %w", err)
			}
			defer store.Close()

			run, err = store.NewRun(ctx, checkpoint.Run{
				Relation:           rel.Name,
				Attributes:         names,
				Tuples:             rel.NumTuples(),
				ErrorThreshold:     cfg.Discovery.ErrorThreshold,
				MaxDeterminantSize: cfg.Discovery.MaxDeterminantSize,
			})
			if err != nil {
				return err
			}
			rec, err := store.Recorder(ctx, run.ID)
			if err != nil {
				return err
			}
			sinks = append(sinks, rec)
			opts = append(opts, tane.WithCheckpointer(store.Checkpointer(run.ID)))
			logger.Info("checkpointing run", zap.Stringer("run", run.ID), zap.String("path", dbPath))
		}

		engine, err := tane.New(engineConfig(cfg.Discovery.ErrorThreshold, cfg.Discovery.MaxDeterminantSize), opts...)
		if err != nil {
			return err
		}
		stats, searchErr := engine.Discover(ctx, rel, fd.Tee(sinks...))
		if store != nil {
			finishRun(store, run, searchErr)
		}
		if searchErr != nil {
			return reportPartial(searchErr, stats, run)
		}

		if format == formatJSON {
			return nil
		}
		return writeResults(w, format, rel.Name, names, collector.Dependencies())
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: output.path or stdout)")
	discoverCmd.Flags().StringVar(&outputFormat, "format", "", "output format: text, json, copy, mermaid or graph (default: output.format or text)")
	rootCmd.AddCommand(discoverCmd)
}

// resolveOutput combines the flags with the output section of the config.
func resolveOutput() (format, path string) {
	format, path = outputFormat, outputPath
	if cfg != nil {
		if format == "" {
			format = cfg.Output.Format
		}
		if path == "" {
			path = cfg.Output.Path
		}
	}
	if format == "" {
		format = formatText
	}
	return format, path
}

func engineConfig(threshold float64, maxDeterminantSize int) tane.Config {
	c := tane.Config{ErrorThreshold: threshold, MaxDeterminantSize: maxDeterminantSize}
	if cfg != nil {
		c.Workers = cfg.Discovery.Workers
		c.MaxLevelNodes = cfg.Discovery.MaxLevelNodes
	}
	return c
}

// finishRun records the outcome of a checkpointed run. It uses a fresh context so an
// interrupted search can still be marked.
func finishRun(store *checkpoint.Store, run *checkpoint.Run, searchErr error) {
	status := checkpoint.StatusCompleted
	if searchErr != nil {
		status = checkpoint.StatusFailed
	}
	if err := store.SetStatus(context.Background(), run.ID, status); err != nil {
		logger.Warn("failed to update run status", zap.Stringer("run", run.ID), zap.Error(err))
	}
}

// reportPartial logs what a failed search managed to do and wraps its error.
func reportPartial(err error, stats *tane.Stats, run *checkpoint.Run) error {
	fields := []zap.Field{
		zap.Int("dependencies", stats.Dependencies),
		zap.Ints("level_sizes", stats.LevelSizes),
	}
	if run != nil {
		fields = append(fields, zap.Stringer("run", run.ID))
	}
	logger.Warn("search stopped early", fields...)

	switch {
	case errors.Is(err, tane.ErrLevelTooLarge):
		return fmt.Errorf("%w; raise discovery.max_level_nodes or set discovery.max_determinant_size", err)
	case run != nil && errors.Is(err, context.Canceled):
		return fmt.Errorf("%w; continue with: resume --run %s", err, run.ID)
	default:
		return err
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/checkpoint"
	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/tane"
)

var resumeRunID string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a checkpointed run from its last saved level",
	Long: `Loads the latest checkpoint of a run, continues the search from that level and
writes every dependency of the run, including those found before the interruption.
The relation itself is not read again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := resolveCheckpointPath()
		if dbPath == "" {
			return fmt.Errorf("--checkpoint or checkpoint.path is required")
		}
		id, err := uuid.Parse(resumeRunID)
		if err != nil {
			return fmt.Errorf("parsing --run: %w", err)
		}
		format, path := resolveOutput()
		if err := checkFormat(format); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := checkpoint.Open(ctx, dbPath, logger)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		defer store.Close()

		run, err := store.Run(ctx, id)
		if err != nil {
			return err
		}
		st, err := store.Latest(ctx, id)
		if err != nil {
			return err
		}
		if st.NumAttributes != len(run.Attributes) {
			return fmt.Errorf("run %s: checkpoint has %d attributes, run has %d: %w",
				id, st.NumAttributes, len(run.Attributes), checkpoint.ErrCorrupt)
		}
		kept, err := store.Rewind(ctx, id)
		if err != nil {
			return err
		}
		if err := store.SetStatus(ctx, id, checkpoint.StatusRunning); err != nil {
			return err
		}
		rec, err := store.Recorder(ctx, id)
		if err != nil {
			return err
		}
		logger.Info("resuming run",
			zap.Stringer("run", id),
			zap.String("relation", run.Relation),
			zap.Int("level", st.Current.Height),
			zap.Int("dependencies_kept", kept))

		engine, err := tane.New(engineConfig(run.ErrorThreshold, run.MaxDeterminantSize),
			tane.WithLogger(logger), tane.WithCheckpointer(store.Checkpointer(id)))
		if err != nil {
			return err
		}
		stats, searchErr := engine.Resume(ctx, st, rec)
		finishRun(store, run, searchErr)
		if searchErr != nil {
			return reportPartial(searchErr, stats, run)
		}

		deps, err := store.Dependencies(ctx, id)
		if err != nil {
			return err
		}
		fd.Sort(deps)

		w, closeOutput, err := openOutput(path)
		if err != nil {
			return err
		}
		defer closeOutput()
		return writeResults(w, format, run.Relation, run.Attributes, deps)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeRunID, "run", "", "run ID to resume (see the runs command)")
	resumeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: output.path or stdout)")
	resumeCmd.Flags().StringVar(&outputFormat, "format", "", "output format: text, json, copy, mermaid or graph (default: output.format or text)")
	_ = resumeCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(resumeCmd)
}

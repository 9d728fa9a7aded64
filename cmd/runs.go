package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hurou927/fd-discover/internal/checkpoint"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List checkpointed runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := resolveCheckpointPath()
		if dbPath == "" {
			return fmt.Errorf("--checkpoint or checkpoint.path is required")
		}
		ctx := context.Background()

		store, err := checkpoint.Open(ctx, dbPath, logger)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		defer store.Close()

		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID.String(),
				r.Relation,
				r.Status,
				strconv.Itoa(len(r.Attributes)),
				strconv.Itoa(r.Tuples),
				strconv.FormatFloat(r.ErrorThreshold, 'g', -1, 64),
				strconv.Itoa(r.Level),
				strconv.Itoa(r.Dependencies),
				r.UpdatedAt.Local().Format(time.DateTime),
			})
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"RUN", "RELATION", "STATUS", "ATTRIBUTES", "TUPLES", "THRESHOLD", "LEVEL", "DEPENDENCIES", "UPDATED"})
		table.AppendBulk(rows)
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

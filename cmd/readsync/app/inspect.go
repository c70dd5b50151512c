package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/storage/sqlite"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the local store and print its statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.store.ValidateDataIntegrity(cmd.Context()); err != nil {
				return err
			}
			stats, err := env.store.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, stats)
		},
	}
}

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Print records updated after a cursor",
		Long: `Print one page of records in update order, starting after the cursor given by
--since and --after-id, together with the cursor to resume from.`,
		RunE: runPull,
	}
	cmd.Flags().String("since", "", "Resume after this update time (RFC 3339)")
	cmd.Flags().String("after-id", "", "Resume after this record id at the --since time")
	cmd.Flags().Int("limit", 100, "Maximum number of records to print")
	return cmd
}

func runPull(cmd *cobra.Command, _ []string) error {
	var since sqlite.Cursor
	if v, _ := cmd.Flags().GetString("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		since.UpdatedAt = t
	}
	since.ID, _ = cmd.Flags().GetString("after-id")
	limit, _ := cmd.Flags().GetInt("limit")

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	records, next, err := env.store.Pull(cmd.Context(), since, limit)
	if err != nil {
		return err
	}
	if records == nil {
		records = []record.Record{}
	}
	return writeJSON(cmd, struct {
		Records []record.Record `json:"records"`
		Next    sqlite.Cursor   `json:"next"`
	}{records, next})
}

package cmd

import (
	"fmt"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded price changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")
		id, _ := cmd.Flags().GetString("id")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetString("since")
		runs, _ := cmd.Flags().GetBool("runs")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if runs {
			list, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range list {
				fmt.Printf("#%-5d  %s  %d updates\n", r.ID, r.RanAt.Local().Format("2006-01-02 15:04:05"), r.TotalUpdates)
			}
			return nil
		}

		opts := storage.HistoryOptions{Category: category, ItemID: id, Limit: limit}
		if since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since (want RFC3339): %w", err)
			}
			opts.Since = t
		}

		changes, err := db.ListChanges(cmd.Context(), opts)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-8s  %-40s  %10s -> %-10s  %+6.2f%%\n", ts, c.Category, c.Name,
				utils.FormatINR(c.OldPrice), utils.FormatINR(c.NewPrice), c.ChangePercent)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("category", "", "Only show this category (e.g. gpus)")
	historyCmd.Flags().String("id", "", "Only show this item id")
	historyCmd.Flags().Int("limit", 50, "Number of entries to show")
	historyCmd.Flags().String("since", "", "Only show changes since this RFC3339 timestamp")
	historyCmd.Flags().Bool("runs", false, "List drift runs instead of individual changes")
}

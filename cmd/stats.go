package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints price change statistics per category.",
	Long:  "Prints price change statistics per category from the recorded drift history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No price history in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "CATEGORY\tCHANGES\tUP\tDOWN\tAVG %\tLAST CHANGE\t")

		var total, up, down int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%+.2f\t%s\t\n", s.Category, s.Changes, s.Increases, s.Decreases,
				s.AvgChangePct, s.LastChangedAt.Local().Format("2006-01-02 15:04"))
			total += s.Changes
			up += s.Increases
			down += s.Decreases
		}

		fmt.Fprintln(w, " \t \t \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t\t\t\n", total, up, down)

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

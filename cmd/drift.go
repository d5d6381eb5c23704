package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/drift"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// driftCmd implements: pcsensei drift
//
//	--watch          Keep running and drift on drift.schedule
//	--schedule       Cron spec overriding drift.schedule
//	--run-on-start   With --watch, run once immediately
//	--no-history     Do not record runs to the database
var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Simulate market price movement across the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("catalog.url") != "" {
			utils.Log.Warn("catalog.url is set; drift only rewrites the local catalog at catalog.path")
		}

		noHistory, _ := cmd.Flags().GetBool("no-history")
		var db *storage.DB
		if !noHistory {
			d, err := openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			db = d
		}

		sim, err := newSimulator(db)
		if err != nil {
			return err
		}

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			changes, err := sim.Run(cmd.Context())
			if err != nil {
				return err
			}
			printDriftResult(time.Now(), changes)
			return nil
		}

		spec, _ := cmd.Flags().GetString("schedule")
		if spec == "" {
			spec = viper.GetString("drift.schedule")
		}
		runOnStart, _ := cmd.Flags().GetBool("run-on-start")

		sched := drift.NewScheduler(sim, time.Local, utils.Log)
		if err := sched.Schedule(spec); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runOnStart {
			if _, err := sched.RunNow(ctx); err != nil {
				utils.Log.Errorf("Initial drift run failed: %v", err)
			}
		}
		sched.Start()
		utils.Log.Infof("Next price drift at %s", sched.Next().Format(time.RFC1123))

		<-ctx.Done()
		utils.Log.Info("Stopping price drift scheduler")
		sched.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)
	driftCmd.Flags().Bool("watch", false, "Keep running and drift prices on a schedule")
	driftCmd.Flags().String("schedule", "", "Cron spec or descriptor for --watch (default from drift.schedule, \"@every 24h\")")
	driftCmd.Flags().Bool("run-on-start", false, "With --watch, run once immediately before scheduling")
	driftCmd.Flags().Bool("no-history", false, "Do not record price changes to the database")
}

func printDriftResult(at time.Time, changes []storage.PriceChange) {
	if len(changes) == 0 {
		fmt.Println("No price changes.")
		return
	}
	fmt.Print(drift.Summary(at, changes))
}


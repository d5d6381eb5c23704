package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pcsensei/pcsensei/internal/server"
	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/drift"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation and price admin HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		if listenAddr == "" {
			listenAddr = viper.GetString("server.listen")
		}
		spec, _ := cmd.Flags().GetString("schedule")
		if spec == "" {
			spec = viper.GetString("drift.schedule")
		}
		runOnStart, _ := cmd.Flags().GetBool("run-on-start")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := newService(db)
		if err != nil {
			return err
		}
		sim, err := newSimulator(db)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := drift.NewScheduler(sim, time.Local, utils.Log)
		if spec != "off" {
			if err := sched.Schedule(spec); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}
		if runOnStart {
			go func() {
				if _, err := sched.RunNow(ctx); err != nil {
					utils.Log.Errorf("Initial drift run failed: %v", err)
				}
			}()
		}

		srv := &server.Server{
			Recommender: svc,
			Checker:     sched,
			History:     db,
			LogDir:      viper.GetString("logs.dir"),
			Username:    viper.GetString("server.username"),
			Password:    viper.GetString("server.password"),
		}
		return srv.Run(ctx, listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from server.listen, \":3001\")")
	serveCmd.Flags().String("schedule", "", "Cron spec for the price drift, or \"off\" (default from drift.schedule)")
	serveCmd.Flags().Bool("run-on-start", false, "Run one price drift immediately at startup")
}

package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-crm/internal/tasks"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal research workers",
	Long:  "Runs the start and poll workers. The start queue is throttled server-side to the configured dispatch ceiling, so the limit holds across any number of worker processes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		tc, err := tasks.NewTemporalClient(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			return err
		}
		defer tc.Close()

		svc, err := initService(st, tasks.NewTemporalQueue(tc))
		if err != nil {
			return err
		}

		return tasks.RunWorkers(ctx, tc, &tasks.Activities{Service: svc}, tasks.WorkerConfig{
			StartsPerMinute: cfg.Research.StartsPerMinute,
			PollInterval:    time.Duration(cfg.Research.PollIntervalSecs) * time.Second,
		})
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

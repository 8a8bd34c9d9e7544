package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/api"
	"github.com/sells-group/lead-crm/internal/tasks"
)

var serveLocal bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  "Serves the CRM API. By default jobs are dispatched through Temporal; with --local an in-process queue handles dispatch and polling, which only suits single-instance development.",
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

		pollInterval := time.Duration(cfg.Research.PollIntervalSecs) * time.Second

		if serveLocal {
			svc, err := initService(st, nil)
			if err != nil {
				return err
			}
			local := tasks.NewLocalQueue(
				&tasks.Activities{Service: svc},
				cfg.Research.StartsPerMinute,
				pollInterval,
			)
			svc.SetEnqueuer(local)

			go func() {
				if err := local.Run(ctx); err != nil {
					zap.L().Error("local queue stopped", zap.Error(err))
				}
			}()

			server := api.NewServer(svc, st, st, cfg.Server.Port)
			return server.Run(ctx)
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

		server := api.NewServer(svc, st, st, cfg.Server.Port)
		return server.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveLocal, "local", false, "use an in-process task queue instead of Temporal")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/research"
	"github.com/sells-group/lead-crm/internal/store"
	"github.com/sells-group/lead-crm/internal/tasks"
)

var (
	researchCityID    string
	researchJobStatus string
	researchRunNow    bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Manage research jobs",
}

// withService opens the store, builds the service and hands it to fn. Only
// commands that dispatch jobs need the Temporal connection.
func withService(ctx context.Context, needQueue bool, fn func(context.Context, *research.Service) error) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var enqueuer research.Enqueuer
	if needQueue {
		tc, err := tasks.NewTemporalClient(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			return err
		}
		defer tc.Close()
		enqueuer = tasks.NewTemporalQueue(tc)
	}

	svc, err := initService(st, enqueuer)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var researchQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue a research job for a city",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), true, func(ctx context.Context, svc *research.Service) error {
			job, err := svc.QueueResearch(ctx, researchCityID)
			if err != nil {
				return err
			}
			return printJSON(job)
		})
	},
}

var researchRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Re-queue a not-started or failed job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), !researchRunNow, func(ctx context.Context, svc *research.Service) error {
			job, err := svc.Queue(ctx, args[0])
			if err != nil {
				return err
			}
			if researchRunNow {
				// Bypasses the queue; useful when the dispatch backlog is
				// empty and the operator wants immediate feedback.
				if err := svc.Start(ctx, job.ID); err != nil {
					return err
				}
				job, err = svc.GetJob(ctx, job.ID)
				if err != nil {
					return err
				}
			}
			return printJSON(job)
		})
	},
}

var researchReprocessCmd = &cobra.Command{
	Use:   "reprocess <job-id>",
	Short: "Re-parse a job's stored raw result without calling the agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), false, func(ctx context.Context, svc *research.Service) error {
			job, err := svc.Reprocess(ctx, args[0])
			if err != nil {
				return err
			}
			zap.L().Info("reprocess finished",
				zap.String("job_id", job.ID),
				zap.String("status", string(job.Status)),
				zap.Int("leads_created", job.LeadsCreated),
			)
			return printJSON(job)
		})
	},
}

var researchDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a non-active research job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), false, func(ctx context.Context, svc *research.Service) error {
			return svc.Delete(ctx, args[0])
		})
	},
}

var researchStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show one job, or list jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), false, func(ctx context.Context, svc *research.Service) error {
			if len(args) == 1 {
				job, err := svc.GetJob(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(job)
			}
			jobs, err := svc.ListJobs(ctx, store.JobFilter{
				Status: model.JobStatus(researchJobStatus),
				CityID: researchCityID,
			})
			if err != nil {
				return err
			}
			return printJSON(jobs)
		})
	},
}

var researchPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll sweep over running jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), false, func(ctx context.Context, svc *research.Service) error {
			summary, err := svc.PollRunning(ctx)
			if err != nil {
				return err
			}
			return printJSON(summary)
		})
	},
}

func init() {
	researchQueueCmd.Flags().StringVar(&researchCityID, "city-id", "", "target city ID (required)")
	_ = researchQueueCmd.MarkFlagRequired("city-id")

	researchRunCmd.Flags().BoolVar(&researchRunNow, "now", false, "start immediately instead of waiting for the dispatch queue")

	researchStatusCmd.Flags().StringVar(&researchJobStatus, "status", "", "filter by job status")
	researchStatusCmd.Flags().StringVar(&researchCityID, "city-id", "", "filter by city ID")

	researchCmd.AddCommand(researchQueueCmd, researchRunCmd, researchReprocessCmd,
		researchDeleteCmd, researchStatusCmd, researchPollCmd)
	rootCmd.AddCommand(researchCmd)
}

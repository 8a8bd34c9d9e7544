package tasks

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// StartResearchWorkflow runs the rate-limited start activity for one job.
// The agent call itself is not retried here: an agent failure is recorded on
// the job and recovery goes through an explicit re-queue.
func StartResearchWorkflow(ctx workflow.Context, jobID string) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	return workflow.ExecuteActivity(ctx, "StartResearchJob", jobID).Get(ctx, nil)
}

// PollResearchWorkflow runs one poll sweep over all running jobs. Transient
// infrastructure errors retry with backoff inside the schedule interval.
func PollResearchWorkflow(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	})
	return workflow.ExecuteActivity(ctx, "PollResearchJobs").Get(ctx, nil)
}

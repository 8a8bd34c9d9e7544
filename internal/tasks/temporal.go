// Package tasks runs the research pipeline's background work. The durable
// path uses Temporal: start tasks drain through a task queue whose worker is
// throttled to the agent's dispatch ceiling, and a schedule triggers the poll
// sweep. A channel-based local queue exists for single-process development.
package tasks

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

const (
	// StartTaskQueue carries rate-limited job dispatch tasks.
	StartTaskQueue = "research-start"

	// PollTaskQueue carries poll sweeps; status checks are unmetered so this
	// queue has no rate ceiling.
	PollTaskQueue = "research-poll"

	// pollScheduleID identifies the recurring poll schedule.
	pollScheduleID = "research-poll-schedule"
)

// NewTemporalClient dials the Temporal frontend.
func NewTemporalClient(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, eris.Wrap(err, "tasks: dial temporal")
	}
	return c, nil
}

// TemporalQueue schedules research tasks on Temporal. It implements
// research.Enqueuer.
type TemporalQueue struct {
	client client.Client
}

// NewTemporalQueue wraps a Temporal client.
func NewTemporalQueue(c client.Client) *TemporalQueue {
	return &TemporalQueue{client: c}
}

// EnqueueStart submits a start workflow for the job. The workflow ID embeds
// the job ID so a duplicate enqueue while the first is still in flight is
// rejected by Temporal instead of producing a second agent call.
func (q *TemporalQueue) EnqueueStart(ctx context.Context, jobID string) error {
	_, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "research-start-" + jobID,
		TaskQueue: StartTaskQueue,
	}, StartResearchWorkflow, jobID)
	if err != nil {
		return eris.Wrapf(err, "tasks: enqueue start for job %s", jobID)
	}
	zap.L().Debug("enqueued start workflow", zap.String("job_id", jobID))
	return nil
}

// EnsurePollSchedule creates the recurring poll schedule if it does not
// already exist. Safe to call on every worker boot.
func (q *TemporalQueue) EnsurePollSchedule(ctx context.Context, interval time.Duration) error {
	_, err := q.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: pollScheduleID,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "research-poll-run",
			Workflow:  PollResearchWorkflow,
			TaskQueue: PollTaskQueue,
		},
	})
	if err != nil {
		if eris.Is(err, temporal.ErrScheduleAlreadyRunning) {
			return nil
		}
		return eris.Wrap(err, "tasks: create poll schedule")
	}
	zap.L().Info("created poll schedule", zap.Duration("interval", interval))
	return nil
}

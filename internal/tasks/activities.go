package tasks

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/research"
)

// Activities holds the research service behind Temporal activity methods.
// Job-level failures are an expected, representable outcome and complete the
// activity successfully; only infrastructure errors fail the task so the
// queue's retry policy applies.
type Activities struct {
	Service *research.Service
}

// StartResearchJob dispatches one queued job to the agent.
func (a *Activities) StartResearchJob(ctx context.Context, jobID string) error {
	err := a.Service.Start(ctx, jobID)
	switch {
	case err == nil:
		return nil
	case eris.Is(err, research.ErrAgentCall):
		// Recorded on the job; re-queueing is the retry path.
		zap.L().Warn("agent call failed, job marked failed",
			zap.String("job_id", jobID), zap.Error(err))
		return nil
	case eris.Is(err, research.ErrNotRunnable):
		// At-least-once delivery can replay a start for a job that already
		// moved on.
		zap.L().Info("skipping start for non-runnable job",
			zap.String("job_id", jobID), zap.Error(err))
		return nil
	default:
		return err
	}
}

// PollResearchJobs sweeps all running jobs once.
func (a *Activities) PollResearchJobs(ctx context.Context) (*model.PollSummary, error) {
	return a.Service.PollRunning(ctx)
}

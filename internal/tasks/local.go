package tasks

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LocalQueue is an in-process stand-in for Temporal used in single-binary
// development mode. It preserves the dispatch semantics the pipeline depends
// on: queued starts drain through a global rate limiter and the poll sweep
// fires on a fixed interval. It does not survive a restart.
type LocalQueue struct {
	acts         *Activities
	limiter      *rate.Limiter
	pollInterval time.Duration
	starts       chan string
}

// NewLocalQueue builds a local queue. startsPerMinute caps agent dispatches.
func NewLocalQueue(acts *Activities, startsPerMinute float64, pollInterval time.Duration) *LocalQueue {
	if startsPerMinute <= 0 {
		startsPerMinute = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	interval := time.Duration(float64(time.Minute) / startsPerMinute)
	return &LocalQueue{
		acts:         acts,
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		pollInterval: pollInterval,
		starts:       make(chan string, 256),
	}
}

// EnqueueStart implements research.Enqueuer.
func (q *LocalQueue) EnqueueStart(ctx context.Context, jobID string) error {
	select {
	case q.starts <- jobID:
		return nil
	default:
		return eris.Errorf("tasks: local start queue full, job %s not enqueued", jobID)
	}
}

// Run drains start tasks and fires poll sweeps until ctx is cancelled.
func (q *LocalQueue) Run(ctx context.Context) error {
	zap.L().Info("starting local task queue",
		zap.Duration("poll_interval", q.pollInterval),
	)

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case jobID := <-q.starts:
			if err := q.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := q.acts.StartResearchJob(ctx, jobID); err != nil {
				zap.L().Error("local start task failed",
					zap.String("job_id", jobID), zap.Error(err))
			}

		case <-ticker.C:
			if _, err := q.acts.PollResearchJobs(ctx); err != nil {
				zap.L().Error("local poll sweep failed", zap.Error(err))
			}
		}
	}
}

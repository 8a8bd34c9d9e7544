package tasks

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerConfig tunes the Temporal workers.
type WorkerConfig struct {
	// StartsPerMinute is the system-wide ceiling on agent dispatch calls.
	// Enforced by Temporal's task queue rate limiting, so it holds across
	// any number of worker processes.
	StartsPerMinute float64

	// PollInterval is how often the poll schedule fires.
	PollInterval time.Duration
}

// RunWorkers starts the two research workers and blocks until ctx is
// cancelled. The start queue worker carries the dispatch rate limit; the
// poll queue worker is unthrottled.
func RunWorkers(ctx context.Context, c client.Client, acts *Activities, cfg WorkerConfig) error {
	startsPerMinute := cfg.StartsPerMinute
	if startsPerMinute <= 0 {
		startsPerMinute = 1
	}

	startWorker := worker.New(c, StartTaskQueue, worker.Options{
		TaskQueueActivitiesPerSecond: startsPerMinute / 60.0,
	})
	startWorker.RegisterWorkflow(StartResearchWorkflow)
	startWorker.RegisterActivity(acts.StartResearchJob)

	pollWorker := worker.New(c, PollTaskQueue, worker.Options{})
	pollWorker.RegisterWorkflow(PollResearchWorkflow)
	pollWorker.RegisterActivity(acts.PollResearchJobs)

	queue := NewTemporalQueue(c)
	if err := queue.EnsurePollSchedule(ctx, cfg.PollInterval); err != nil {
		return err
	}

	zap.L().Info("starting research workers",
		zap.Float64("starts_per_minute", startsPerMinute),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eris.Wrap(startWorker.Run(interruptFrom(gctx)), "tasks: start worker")
	})
	g.Go(func() error {
		return eris.Wrap(pollWorker.Run(interruptFrom(gctx)), "tasks: poll worker")
	})
	return g.Wait()
}

// interruptFrom adapts a context to the worker's interrupt channel.
func interruptFrom(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

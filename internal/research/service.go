// Package research implements the research-job pipeline: queueing jobs per
// city, dispatching them to the deep-research agent, polling for results,
// parsing the agent output and reconciling extracted leads into the CRM.
package research

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/store"
	"github.com/sells-group/lead-crm/pkg/agent"
)

// Store is the persistence surface the service needs.
type Store interface {
	store.JobStore
	store.LeadStore
	store.CityStore
}

// Enqueuer schedules the rate-limited start task for a queued job. The
// service only persists the pending state; actually calling the agent happens
// asynchronously on the task queue.
type Enqueuer interface {
	EnqueueStart(ctx context.Context, jobID string) error
}

// action names a state machine entry point.
type action string

const (
	actionQueue     action = "queue"
	actionStart     action = "start"
	actionPoll      action = "poll"
	actionReprocess action = "reprocess"
	actionDelete    action = "delete"
)

// transitions is the single allowed-state table consulted by every entry
// point. A missing entry means the action is rejected in that state.
var transitions = map[action]map[model.JobStatus]bool{
	actionQueue: {
		model.JobStatusNotStarted: true,
		model.JobStatusFailed:     true,
	},
	actionStart: {
		model.JobStatusNotStarted: true,
		model.JobStatusPending:    true,
	},
	actionPoll: {
		model.JobStatusRunning: true,
	},
	actionReprocess: {
		model.JobStatusCompleted: true,
		model.JobStatusFailed:    true,
	},
	actionDelete: {
		model.JobStatusNotStarted: true,
		model.JobStatusCompleted:  true,
		model.JobStatusFailed:     true,
	},
}

func checkTransition(a action, s model.JobStatus) error {
	if !transitions[a][s] {
		return eris.Wrapf(ErrNotRunnable, "research: cannot %s job in status %s", a, s)
	}
	return nil
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Store      Store
	Agent      agent.Client
	Parser     *Parser
	Reconciler *Reconciler
	Prompt     *PromptTemplate

	// Enqueuer is optional; without it queued jobs wait until a start is
	// triggered explicitly.
	Enqueuer Enqueuer

	// DefaultLeadTypes seeds the prompt when no lead types exist yet.
	DefaultLeadTypes []string

	// PollConcurrency bounds parallel agent status checks per poll sweep.
	PollConcurrency int
}

// Service owns the research job lifecycle.
type Service struct {
	store            Store
	agent            agent.Client
	parser           *Parser
	rec              *Reconciler
	prompt           *PromptTemplate
	enqueuer         Enqueuer
	defaultLeadTypes []string
	pollConcurrency  int
}

// NewService creates the research service.
func NewService(p ServiceParams) *Service {
	concurrency := p.PollConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	prompt := p.Prompt
	if prompt == nil {
		prompt = DefaultPromptTemplate()
	}
	return &Service{
		store:            p.Store,
		agent:            p.Agent,
		parser:           p.Parser,
		rec:              p.Reconciler,
		prompt:           prompt,
		enqueuer:         p.Enqueuer,
		defaultLeadTypes: p.DefaultLeadTypes,
		pollConcurrency:  concurrency,
	}
}

// SetEnqueuer installs the task queue after construction. Needed when the
// queue itself wraps the service's activities.
func (s *Service) SetEnqueuer(e Enqueuer) {
	s.enqueuer = e
}

// QueueResearch creates a pending job for the city and schedules its start.
// Returns store.ErrActiveJobExists when the city already has an active job.
func (s *Service) QueueResearch(ctx context.Context, cityID string) (*model.ResearchJob, error) {
	city, err := s.store.GetCity(ctx, cityID)
	if err != nil {
		return nil, err
	}

	job, err := s.store.CreateJob(ctx, city.ID, model.JobStatusPending)
	if err != nil {
		return nil, err
	}

	if err := s.enqueueStart(ctx, job.ID); err != nil {
		return nil, err
	}

	zap.L().Info("queued research job",
		zap.String("job_id", job.ID),
		zap.String("city", city.String()),
	)
	return job, nil
}

// Queue re-queues an existing job. Allowed from not_started and failed; the
// prior interaction handle and error are cleared so the next start issues a
// fresh agent call.
func (s *Service) Queue(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(actionQueue, job.Status); err != nil {
		return nil, err
	}

	job.Status = model.JobStatusPending
	job.InteractionID = ""
	job.Error = ""
	job.CompletedAt = nil
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.enqueueStart(ctx, job.ID); err != nil {
		return nil, err
	}

	zap.L().Info("re-queued research job", zap.String("job_id", job.ID))
	return job, nil
}

func (s *Service) enqueueStart(ctx context.Context, jobID string) error {
	if s.enqueuer == nil {
		return nil
	}
	return s.enqueuer.EnqueueStart(ctx, jobID)
}

// Start dispatches one job to the research agent. Callers are expected to be
// rate limited externally; Start itself never sleeps. A job that already has
// an interaction handle is a safe no-op, so duplicate deliveries of the same
// start task issue at most one agent call.
func (s *Service) Start(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.InteractionID != "" {
		zap.L().Info("job already started, skipping",
			zap.String("job_id", job.ID),
			zap.String("interaction_id", job.InteractionID),
		)
		return nil
	}
	if err := checkTransition(actionStart, job.Status); err != nil {
		return err
	}

	city, err := s.store.GetCity(ctx, job.CityID)
	if err != nil {
		return err
	}
	leadTypes, err := s.leadTypeNames(ctx)
	if err != nil {
		return err
	}

	interaction, err := s.agent.CreateInteraction(ctx, agent.CreateInteractionRequest{
		Input:          s.prompt.Render(*city, leadTypes),
		Background:     true,
		ResponseSchema: json.RawMessage(LeadSchema),
	})
	if err != nil {
		if failErr := s.failJob(ctx, job, err.Error()); failErr != nil {
			return failErr
		}
		return eris.Wrap(ErrAgentCall, err.Error())
	}

	job.Status = model.JobStatusRunning
	job.InteractionID = interaction.ID
	job.Error = ""
	job.CompletedAt = nil
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	zap.L().Info("started research job",
		zap.String("job_id", job.ID),
		zap.String("city", city.String()),
		zap.String("interaction_id", interaction.ID),
	)
	return nil
}

func (s *Service) leadTypeNames(ctx context.Context) ([]string, error) {
	types, err := s.store.ListLeadTypes(ctx)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return s.defaultLeadTypes, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names, nil
}

// Poll checks one running job against the agent.
func (s *Service) Poll(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(actionPoll, job.Status); err != nil {
		return nil, err
	}
	s.pollOne(ctx, job)
	return job, nil
}

// PollRunning sweeps all running jobs. Each job is handled independently;
// one failing job never aborts the sweep.
func (s *Service) PollRunning(ctx context.Context) (*model.PollSummary, error) {
	jobs, err := s.store.ListJobs(ctx, store.JobFilter{
		Status: model.JobStatusRunning,
		Limit:  500,
	})
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		summary model.PollSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pollConcurrency)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			final := s.pollOne(gctx, &job)
			mu.Lock()
			summary.Processed++
			switch final {
			case model.JobStatusCompleted:
				summary.Completed++
			case model.JobStatusFailed:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("poll sweep finished",
		zap.Int("processed", summary.Processed),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
	)
	return &summary, nil
}

// pollOne resolves one running job and returns its resulting status. All
// failures are recorded on the job row rather than propagated.
func (s *Service) pollOne(ctx context.Context, job *model.ResearchJob) model.JobStatus {
	interaction, err := s.agent.GetInteraction(ctx, job.InteractionID)
	if err != nil {
		s.failJobLogged(ctx, job, eris.Wrap(err, "research: poll interaction").Error())
		return job.Status
	}

	switch interaction.Status {
	case agent.StatusCompleted:
		// Persist the raw text first so a parse failure still leaves it
		// available for reprocess.
		job.RawResult = interaction.Text()
		if err := s.store.UpdateJob(ctx, job); err != nil {
			s.failJobLogged(ctx, job, err.Error())
			return job.Status
		}
		s.ingest(ctx, job)

	case agent.StatusFailed, agent.StatusCancelled:
		s.failJobLogged(ctx, job, "agent reported status "+interaction.Status)

	default:
		// Still in flight. Self-heal the local status if an earlier
		// transition was missed.
		if job.Status != model.JobStatusRunning {
			job.Status = model.JobStatusRunning
			if err := s.store.UpdateJob(ctx, job); err != nil {
				zap.L().Error("failed to self-heal job status",
					zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
	return job.Status
}

// ingest parses the job's stored raw result and reconciles every candidate.
// Parse failures move the job to failed; reconcile failures for individual
// candidates are logged and skipped so one bad record never voids the batch.
func (s *Service) ingest(ctx context.Context, job *model.ResearchJob) {
	result, err := s.parser.Parse(ctx, job.RawResult)
	if err != nil {
		s.failJobLogged(ctx, job, err.Error())
		return
	}

	city, err := s.store.GetCity(ctx, job.CityID)
	if err != nil {
		s.failJobLogged(ctx, job, err.Error())
		return
	}

	created := 0
	for _, cand := range result.Leads {
		if _, err := s.rec.Reconcile(ctx, cand, *city); err != nil {
			zap.L().Warn("failed to reconcile candidate lead",
				zap.String("job_id", job.ID),
				zap.String("candidate", cand.Name),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.failJobLogged(ctx, job, err.Error())
		return
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.Result = resultJSON
	job.LeadsCreated = created
	job.Error = ""
	job.CompletedAt = &now
	if err := s.store.UpdateJob(ctx, job); err != nil {
		zap.L().Error("failed to persist completed job",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	zap.L().Info("research job completed",
		zap.String("job_id", job.ID),
		zap.Int("candidates", len(result.Leads)),
		zap.Int("leads_created", created),
	)
}

// Reprocess re-runs parsing and reconciliation on the stored raw result
// without another agent call. The prior raw text is never cleared, so a
// failed reprocess can be retried.
func (s *Service) Reprocess(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.RawResult == "" {
		return nil, eris.Wrapf(ErrNoRawResult, "research: job %s", jobID)
	}
	if err := checkTransition(actionReprocess, job.Status); err != nil {
		return nil, err
	}

	s.ingest(ctx, job)
	return job, nil
}

// Delete removes a job. Active jobs are protected; the error names the
// blocking status.
func (s *Service) Delete(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Active() {
		return eris.Wrapf(ErrJobActive, "research: job %s is %s", jobID, job.Status)
	}
	return s.store.DeleteJob(ctx, jobID)
}

// GetJob exposes job detail reads to the API layer.
func (s *Service) GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs exposes job listing to the API layer.
func (s *Service) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error) {
	return s.store.ListJobs(ctx, filter)
}

func (s *Service) failJob(ctx context.Context, job *model.ResearchJob, msg string) error {
	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.Error = msg
	job.CompletedAt = &now
	return s.store.UpdateJob(ctx, job)
}

func (s *Service) failJobLogged(ctx context.Context, job *model.ResearchJob, msg string) {
	zap.L().Warn("research job failed",
		zap.String("job_id", job.ID),
		zap.String("error", msg),
	)
	if err := s.failJob(ctx, job, msg); err != nil {
		zap.L().Error("failed to persist job failure",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

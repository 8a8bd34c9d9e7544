// Package api exposes the CRM over HTTP. Handlers are thin: they decode,
// delegate to the research service or the store, and map typed rejections to
// status codes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/research"
	"github.com/sells-group/lead-crm/internal/store"
)

const gracefulShutdownTimeout = 5 * time.Second

// ResearchService is the slice of the research service the API needs.
type ResearchService interface {
	QueueResearch(ctx context.Context, cityID string) (*model.ResearchJob, error)
	Queue(ctx context.Context, jobID string) (*model.ResearchJob, error)
	Reprocess(ctx context.Context, jobID string) (*model.ResearchJob, error)
	Delete(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error)
}

// Server serves the CRM HTTP API.
type Server struct {
	research ResearchService
	leads    store.LeadStore
	cities   store.CityStore
	port     int
}

// NewServer wires the API server.
func NewServer(research ResearchService, leads store.LeadStore, cities store.CityStore, port int) *Server {
	return &Server{research: research, leads: leads, cities: cities, port: port}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
		chiMiddleware.Recoverer,
	)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/research", func(r chi.Router) {
			r.Post("/queue", s.handleQueueResearch)
			r.Get("/jobs", s.handleListJobs)
			r.Route("/jobs/{jobID}", func(r chi.Router) {
				r.Get("/", s.handleGetJob)
				r.Delete("/", s.handleDeleteJob)
				r.Post("/run", s.handleRunJob)
				r.Post("/reprocess", s.handleReprocessJob)
			})
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Get("/{leadID}", s.handleGetLead)
		})

		r.Route("/cities", func(r chi.Router) {
			r.Get("/", s.handleListCities)
			r.Post("/", s.handleCreateCity)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("api server listening", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: serve")
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queueResearchRequest struct {
	CityID string `json:"city_id"`
}

func (s *Server) handleQueueResearch(w http.ResponseWriter, r *http.Request) {
	var req queueResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(errBadRequest, "invalid request body"))
		return
	}
	if req.CityID == "" {
		writeError(w, eris.Wrap(errBadRequest, "city_id is required"))
		return
	}

	job, err := s.research.QueueResearch(r.Context(), req.CityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.research.Queue(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "research queued",
	})
}

func (s *Server) handleReprocessJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.research.Reprocess(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        job.ID,
		"status":        job.Status,
		"error":         job.Error,
		"leads_created": job.LeadsCreated,
	})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.research.Delete(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.research.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
		CityID: r.URL.Query().Get("city_id"),
	}
	jobs, err := s.research.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.ResearchJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := store.LeadFilter{
		Status:      model.LeadStatus(r.URL.Query().Get("status")),
		Temperature: model.Temperature(r.URL.Query().Get("temperature")),
		CityID:      r.URL.Query().Get("city_id"),
	}
	leads, err := s.leads.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.GetLead(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.cities.ListCities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cities == nil {
		cities = []model.City{}
	}
	writeJSON(w, http.StatusOK, cities)
}

type createCityRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	ISO2    string `json:"iso2"`
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var req createCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(errBadRequest, "invalid request body"))
		return
	}
	if req.Name == "" || req.Country == "" {
		writeError(w, eris.Wrap(errBadRequest, "name and country are required"))
		return
	}

	city, err := s.cities.GetOrCreateCity(r.Context(), req.Name, req.Country, req.ISO2)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, city)
}

// --- response helpers ---

var errBadRequest = eris.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case eris.Is(err, errBadRequest):
		return http.StatusBadRequest
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, store.ErrActiveJobExists),
		eris.Is(err, research.ErrNotRunnable),
		eris.Is(err, research.ErrJobActive):
		return http.StatusConflict
	case eris.Is(err, research.ErrNoRawResult):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

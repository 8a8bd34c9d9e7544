package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/research"
	"github.com/sells-group/lead-crm/internal/store"
)

// fakeResearch scripts the research service per test via function fields.
type fakeResearch struct {
	queueResearch func(ctx context.Context, cityID string) (*model.ResearchJob, error)
	queue         func(ctx context.Context, jobID string) (*model.ResearchJob, error)
	reprocess     func(ctx context.Context, jobID string) (*model.ResearchJob, error)
	delete        func(ctx context.Context, jobID string) error
	getJob        func(ctx context.Context, jobID string) (*model.ResearchJob, error)
	listJobs      func(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error)
}

func (f *fakeResearch) QueueResearch(ctx context.Context, cityID string) (*model.ResearchJob, error) {
	return f.queueResearch(ctx, cityID)
}

func (f *fakeResearch) Queue(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	return f.queue(ctx, jobID)
}

func (f *fakeResearch) Reprocess(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	return f.reprocess(ctx, jobID)
}

func (f *fakeResearch) Delete(ctx context.Context, jobID string) error {
	return f.delete(ctx, jobID)
}

func (f *fakeResearch) GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	return f.getJob(ctx, jobID)
}

func (f *fakeResearch) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error) {
	return f.listJobs(ctx, filter)
}

// fakeLeads and fakeCities embed the store interfaces so only the methods a
// handler actually calls need overriding.
type fakeLeads struct {
	store.LeadStore
	leads []model.Lead
	err   error
}

func (f *fakeLeads) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	return f.leads, f.err
}

func (f *fakeLeads) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.leads {
		if f.leads[i].ID == leadID {
			return &f.leads[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeCities struct {
	store.CityStore
	cities []model.City
}

func (f *fakeCities) ListCities(ctx context.Context) ([]model.City, error) {
	return f.cities, nil
}

func (f *fakeCities) GetOrCreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	return &model.City{ID: "city-1", Name: name, Country: country, ISO2: iso2}, nil
}

func doRequest(t *testing.T, svc ResearchService, leads store.LeadStore, cities store.CityStore, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(svc, leads, cities, 0)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestQueueResearch_Created(t *testing.T) {
	svc := &fakeResearch{
		queueResearch: func(ctx context.Context, cityID string) (*model.ResearchJob, error) {
			return &model.ResearchJob{ID: "job-1", CityID: cityID, Status: model.JobStatusPending}, nil
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/queue", `{"city_id": "city-1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var job model.ResearchJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
}

func TestQueueResearch_MissingCityID(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/queue", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueResearch_InvalidBody(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/queue", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueResearch_ActiveConflict(t *testing.T) {
	svc := &fakeResearch{
		queueResearch: func(ctx context.Context, cityID string) (*model.ResearchJob, error) {
			return nil, store.ErrActiveJobExists
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/queue", `{"city_id": "city-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueueResearch_UnknownCity(t *testing.T) {
	svc := &fakeResearch{
		queueResearch: func(ctx context.Context, cityID string) (*model.ResearchJob, error) {
			return nil, store.ErrNotFound
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/queue", `{"city_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunJob(t *testing.T) {
	svc := &fakeResearch{
		queue: func(ctx context.Context, jobID string) (*model.ResearchJob, error) {
			return &model.ResearchJob{ID: jobID, Status: model.JobStatusPending}, nil
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/jobs/job-1/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "research queued")
}

func TestRunJob_NotRunnable(t *testing.T) {
	svc := &fakeResearch{
		queue: func(ctx context.Context, jobID string) (*model.ResearchJob, error) {
			return nil, research.ErrNotRunnable
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/jobs/job-1/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReprocessJob(t *testing.T) {
	svc := &fakeResearch{
		reprocess: func(ctx context.Context, jobID string) (*model.ResearchJob, error) {
			return &model.ResearchJob{ID: jobID, Status: model.JobStatusCompleted, LeadsCreated: 4}, nil
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/jobs/job-1/reprocess", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["status"])
	assert.Equal(t, float64(4), resp["leads_created"])
}

func TestReprocessJob_NoRawResult(t *testing.T) {
	svc := &fakeResearch{
		reprocess: func(ctx context.Context, jobID string) (*model.ResearchJob, error) {
			return nil, research.ErrNoRawResult
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/research/jobs/job-1/reprocess", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteJob(t *testing.T) {
	svc := &fakeResearch{
		delete: func(ctx context.Context, jobID string) error { return nil },
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodDelete, "/api/research/jobs/job-1/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteJob_Active(t *testing.T) {
	svc := &fakeResearch{
		delete: func(ctx context.Context, jobID string) error { return research.ErrJobActive },
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodDelete, "/api/research/jobs/job-1/", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	svc := &fakeResearch{
		getJob: func(ctx context.Context, jobID string) (*model.ResearchJob, error) {
			return nil, store.ErrNotFound
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodGet, "/api/research/jobs/missing/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs_FilterAndEmptyArray(t *testing.T) {
	var gotFilter store.JobFilter
	svc := &fakeResearch{
		listJobs: func(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error) {
			gotFilter = filter
			return nil, nil
		},
	}

	rec := doRequest(t, svc, &fakeLeads{}, &fakeCities{},
		http.MethodGet, "/api/research/jobs?status=running&city_id=city-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.JobStatusRunning, gotFilter.Status)
	assert.Equal(t, "city-1", gotFilter.CityID)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListLeads(t *testing.T) {
	leads := &fakeLeads{leads: []model.Lead{{ID: "lead-1", Name: "Acme"}}}

	rec := doRequest(t, &fakeResearch{}, leads, &fakeCities{},
		http.MethodGet, "/api/leads/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []model.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
}

func TestGetLead_NotFound(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{},
		http.MethodGet, "/api/leads/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCity(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/cities/", `{"name": "Berlin", "country": "Germany", "iso2": "DE"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var city model.City
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &city))
	assert.Equal(t, "Berlin", city.Name)
	assert.Equal(t, "DE", city.ISO2)
}

func TestCreateCity_MissingFields(t *testing.T) {
	rec := doRequest(t, &fakeResearch{}, &fakeLeads{}, &fakeCities{},
		http.MethodPost, "/api/cities/", `{"name": "Berlin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

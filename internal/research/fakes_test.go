package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/store"
	"github.com/sells-group/lead-crm/pkg/agent"
	"github.com/sells-group/lead-crm/pkg/anthropic"
)

// fakeStore is an in-memory Store for service and reconciler tests. It
// mirrors the backends' contracts: case-insensitive lookups, (nil, nil)
// finder misses, and the one-active-job-per-city constraint.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	jobs      map[string]*model.ResearchJob
	leads     map[string]*model.Lead
	cities    map[string]*model.City
	leadTypes map[string]*model.LeadType
	tags      map[string]*model.Tag
	leadTags  map[string]map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      map[string]*model.ResearchJob{},
		leads:     map[string]*model.Lead{},
		cities:    map[string]*model.City{},
		leadTypes: map[string]*model.LeadType{},
		tags:      map[string]*model.Tag{},
		leadTags:  map[string]map[string]bool{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) addCity(name, country string) *model.City {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &model.City{ID: f.nextID("city"), Name: name, Country: country}
	f.cities[c.ID] = c
	return c
}

// --- JobStore ---

func (f *fakeStore) CreateJob(ctx context.Context, cityID string, status model.JobStatus) (*model.ResearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.CityID == cityID && j.Status.Active() {
			return nil, store.ErrActiveJobExists
		}
	}
	job := &model.ResearchJob{
		ID:        f.nextID("job"),
		CityID:    cityID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	f.jobs[job.ID] = job
	return copyJob(job), nil
}

func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyJob(job), nil
}

func (f *fakeStore) UpdateJob(ctx context.Context, job *model.ResearchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.jobs[job.ID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status.Active() && !existing.Status.Active() {
		for _, j := range f.jobs {
			if j.ID != job.ID && j.CityID == job.CityID && j.Status.Active() {
				return store.ErrActiveJobExists
			}
		}
	}
	f.jobs[job.ID] = copyJob(job)
	return nil
}

func (f *fakeStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.ResearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ResearchJob
	for _, j := range f.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.CityID != "" && j.CityID != filter.CityID {
			continue
		}
		out = append(out, *copyJob(j))
	}
	return out, nil
}

func (f *fakeStore) DeleteJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[jobID]; !ok {
		return store.ErrNotFound
	}
	delete(f.jobs, jobID)
	return nil
}

func (f *fakeStore) HasActiveJob(ctx context.Context, cityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.CityID == cityID && j.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

// --- LeadStore ---

func (f *fakeStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead.ID == "" {
		lead.ID = f.nextID("lead")
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	if lead.Temperature == "" {
		lead.Temperature = model.TemperatureCold
	}
	stored := *lead
	f.leads[lead.ID] = &stored
	return nil
}

func (f *fakeStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.leads[lead.ID]; !ok {
		return store.ErrNotFound
	}
	stored := *lead
	f.leads[lead.ID] = &stored
	return nil
}

func (f *fakeStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *lead
	return &out, nil
}

func (f *fakeStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lead
	for _, l := range f.leads {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeStore) FindLeadByContact(ctx context.Context, field store.ContactField, value string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		var v string
		switch field {
		case store.ContactEmail:
			v = l.Email
		case store.ContactPhone:
			v = l.Phone
		case store.ContactInstagram:
			v = l.Instagram
		case store.ContactTelegram:
			v = l.Telegram
		case store.ContactWebsite:
			v = l.Website
		}
		if v != "" && strings.EqualFold(v, value) {
			out := *l
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindLeadByNameCity(ctx context.Context, name, cityID string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if strings.EqualFold(l.Name, name) && l.CityID == cityID {
			out := *l
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetOrCreateLeadType(ctx context.Context, name string) (*model.LeadType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lt := range f.leadTypes {
		if strings.EqualFold(lt.Name, name) {
			return lt, nil
		}
	}
	lt := &model.LeadType{ID: f.nextID("lt"), Name: name}
	f.leadTypes[lt.ID] = lt
	return lt, nil
}

func (f *fakeStore) ListLeadTypes(ctx context.Context) ([]model.LeadType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LeadType
	for _, lt := range f.leadTypes {
		out = append(out, *lt)
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tag := range f.tags {
		if strings.EqualFold(tag.Name, name) {
			return tag, nil
		}
	}
	tag := &model.Tag{ID: f.nextID("tag"), Name: name}
	f.tags[tag.ID] = tag
	return tag, nil
}

func (f *fakeStore) AddLeadTag(ctx context.Context, leadID, tagID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leadTags[leadID] == nil {
		f.leadTags[leadID] = map[string]bool{}
	}
	f.leadTags[leadID][tagID] = true
	return nil
}

func (f *fakeStore) ListLeadTags(ctx context.Context, leadID string) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Tag
	for tagID := range f.leadTags[leadID] {
		out = append(out, *f.tags[tagID])
	}
	return out, nil
}

// --- CityStore ---

func (f *fakeStore) CreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	return f.addCity(name, country), nil
}

func (f *fakeStore) GetCity(ctx context.Context, cityID string) (*model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	city, ok := f.cities[cityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *city
	return &out, nil
}

func (f *fakeStore) GetOrCreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error) {
	f.mu.Lock()
	for _, c := range f.cities {
		if strings.EqualFold(c.Name, name) {
			out := *c
			f.mu.Unlock()
			return &out, nil
		}
	}
	f.mu.Unlock()
	return f.addCity(name, country), nil
}

func (f *fakeStore) ListCities(ctx context.Context) ([]model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.City
	for _, c := range f.cities {
		out = append(out, *c)
	}
	return out, nil
}

func copyJob(j *model.ResearchJob) *model.ResearchJob {
	out := *j
	return &out
}

// fakeAgent scripts agent responses and records create calls.
type fakeAgent struct {
	mu           sync.Mutex
	createCalls  int
	createErr    error
	interactions map[string]*agent.Interaction
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{interactions: map[string]*agent.Interaction{}}
}

func (f *fakeAgent) CreateInteraction(ctx context.Context, req agent.CreateInteractionRequest) (*agent.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	i := &agent.Interaction{
		ID:     fmt.Sprintf("int-%d", f.createCalls),
		Status: agent.StatusRunning,
	}
	f.interactions[i.ID] = i
	return i, nil
}

func (f *fakeAgent) GetInteraction(ctx context.Context, interactionID string) (*agent.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.interactions[interactionID]
	if !ok {
		return nil, fmt.Errorf("interaction %s not found", interactionID)
	}
	out := *i
	return &out, nil
}

func (f *fakeAgent) complete(interactionID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions[interactionID] = &agent.Interaction{
		ID:      interactionID,
		Status:  agent.StatusCompleted,
		Outputs: []agent.Output{{Type: "text", Text: text}},
	}
}

func (f *fakeAgent) fail(interactionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions[interactionID] = &agent.Interaction{
		ID:     interactionID,
		Status: agent.StatusFailed,
	}
}

// fakeAnthropic scripts the parse fallback.
type fakeAnthropic struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
	}, nil
}

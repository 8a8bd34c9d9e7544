package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-crm/internal/model"
)

// Sentinel errors shared by both backends. Callers check these with
// errors.Is; the wrapped chain carries the backend detail.
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = eris.New("not found")

	// ErrActiveJobExists is returned when inserting or re-activating a
	// research job would violate the one-active-job-per-city constraint.
	ErrActiveJobExists = eris.New("active research job already exists for city")
)

// ContactField names a lead column usable for case-insensitive identity
// matching. Only the enumerated values are accepted; anything else is a
// programming error surfaced by FindLeadByContact.
type ContactField string

const (
	ContactEmail     ContactField = "email"
	ContactPhone     ContactField = "phone"
	ContactInstagram ContactField = "instagram"
	ContactTelegram  ContactField = "telegram"
	ContactWebsite   ContactField = "website"
)

// ContactFields is the fixed matching order used by the reconciler. The
// order is load-bearing: a candidate matching different leads on different
// fields resolves to the first field's hit.
var ContactFields = []ContactField{
	ContactEmail,
	ContactPhone,
	ContactInstagram,
	ContactTelegram,
	ContactWebsite,
}

func (f ContactField) valid() bool {
	switch f {
	case ContactEmail, ContactPhone, ContactInstagram, ContactTelegram, ContactWebsite:
		return true
	}
	return false
}

// JobFilter specifies criteria for listing research jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	CityID string          `json:"city_id,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status      model.LeadStatus  `json:"status,omitempty"`
	Temperature model.Temperature `json:"temperature,omitempty"`
	CityID      string            `json:"city_id,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Offset      int               `json:"offset,omitempty"`
}

// JobStore persists research jobs. The active-job uniqueness constraint is
// enforced here (partial unique index), not in the service, so concurrent
// queue requests for the same city cannot both succeed.
type JobStore interface {
	CreateJob(ctx context.Context, cityID string, status model.JobStatus) (*model.ResearchJob, error)
	GetJob(ctx context.Context, jobID string) (*model.ResearchJob, error)
	// UpdateJob writes all mutable job fields. Returns ErrActiveJobExists
	// when the update would re-activate a job for a city that already has
	// an active one.
	UpdateJob(ctx context.Context, job *model.ResearchJob) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.ResearchJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	HasActiveJob(ctx context.Context, cityID string) (bool, error)
}

// LeadStore persists leads and their reference entities. All name lookups
// are case-insensitive; get-or-create calls never return duplicates.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *model.Lead) error
	UpdateLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	// FindLeadByContact returns (nil, nil) when no lead matches.
	FindLeadByContact(ctx context.Context, field ContactField, value string) (*model.Lead, error)
	// FindLeadByNameCity returns (nil, nil) when no lead matches.
	FindLeadByNameCity(ctx context.Context, name, cityID string) (*model.Lead, error)

	GetOrCreateLeadType(ctx context.Context, name string) (*model.LeadType, error)
	ListLeadTypes(ctx context.Context) ([]model.LeadType, error)
	GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error)
	AddLeadTag(ctx context.Context, leadID, tagID string) error
	ListLeadTags(ctx context.Context, leadID string) ([]model.Tag, error)
}

// CityStore persists cities.
type CityStore interface {
	CreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error)
	GetCity(ctx context.Context, cityID string) (*model.City, error)
	GetOrCreateCity(ctx context.Context, name, country, iso2 string) (*model.City, error)
	ListCities(ctx context.Context) ([]model.City, error)
}

// Store is the full persistence interface for the CRM.
type Store interface {
	JobStore
	LeadStore
	CityStore

	Migrate(ctx context.Context) error
	Close() error
}

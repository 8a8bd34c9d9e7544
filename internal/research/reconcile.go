package research

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/internal/store"
)

// Reconciler merges candidate leads into the lead book. The merge is
// fill-blanks-only with additive tags, so reconciling the same candidate
// twice is a no-op after the first run.
type Reconciler struct {
	store  store.LeadStore
	source string
}

// NewReconciler creates a reconciler. source is the provenance string stamped
// on every lead the pipeline creates.
func NewReconciler(leads store.LeadStore, source string) *Reconciler {
	return &Reconciler{store: leads, source: source}
}

// clean trims and NFC-normalizes agent-produced text.
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// contactValue returns the candidate's value for a matchable contact field.
func contactValue(c model.CandidateLead, field store.ContactField) string {
	switch field {
	case store.ContactEmail:
		return c.Email
	case store.ContactPhone:
		return c.Phone
	case store.ContactInstagram:
		return c.Instagram
	case store.ContactTelegram:
		return c.Telegram
	case store.ContactWebsite:
		return c.Website
	}
	return ""
}

// Reconcile upserts one candidate into the store and returns the resulting
// lead. A candidate with multiple contact fields matching different existing
// leads resolves to the first field's hit; the field order is fixed.
func (r *Reconciler) Reconcile(ctx context.Context, cand model.CandidateLead, city model.City) (*model.Lead, error) {
	cand = normalizeCandidate(cand)
	if cand.Name == "" {
		return nil, eris.New("research: candidate has no name")
	}

	existing, err := r.findExisting(ctx, cand, city)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return r.create(ctx, cand, city)
	}
	return r.merge(ctx, existing, cand)
}

func normalizeCandidate(c model.CandidateLead) model.CandidateLead {
	c.Name = clean(c.Name)
	c.Company = clean(c.Company)
	c.LeadType = clean(c.LeadType)
	c.Email = clean(c.Email)
	c.Phone = clean(c.Phone)
	c.Instagram = clean(c.Instagram)
	c.Telegram = clean(c.Telegram)
	c.Website = clean(c.Website)
	c.Notes = clean(c.Notes)
	for i, t := range c.Tags {
		c.Tags[i] = clean(t)
	}
	return c
}

func (r *Reconciler) findExisting(ctx context.Context, cand model.CandidateLead, city model.City) (*model.Lead, error) {
	for _, field := range store.ContactFields {
		value := contactValue(cand, field)
		if value == "" {
			continue
		}
		lead, err := r.store.FindLeadByContact(ctx, field, value)
		if err != nil {
			return nil, err
		}
		if lead != nil {
			return lead, nil
		}
	}
	return r.store.FindLeadByNameCity(ctx, cand.Name, city.ID)
}

func (r *Reconciler) create(ctx context.Context, cand model.CandidateLead, city model.City) (*model.Lead, error) {
	lead := &model.Lead{
		Name:        cand.Name,
		Company:     cand.Company,
		Email:       cand.Email,
		Phone:       cand.Phone,
		Instagram:   cand.Instagram,
		Telegram:    cand.Telegram,
		Website:     cand.Website,
		Notes:       cand.Notes,
		CityID:      city.ID,
		Source:      r.source,
		Status:      model.LeadStatusNew,
		Temperature: cand.Temperature.Normalize(),
	}

	if cand.LeadType != "" {
		lt, err := r.store.GetOrCreateLeadType(ctx, cand.LeadType)
		if err != nil {
			return nil, err
		}
		lead.LeadTypeID = lt.ID
	}

	if err := r.store.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	if err := r.addTags(ctx, lead, cand.Tags); err != nil {
		return nil, err
	}

	zap.L().Debug("created lead from research",
		zap.String("lead_id", lead.ID),
		zap.String("name", lead.Name),
		zap.String("city_id", city.ID),
	)
	return lead, nil
}

// mergeField copies src into dst only when dst is blank.
func mergeField(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func (r *Reconciler) merge(ctx context.Context, lead *model.Lead, cand model.CandidateLead) (*model.Lead, error) {
	mergeField(&lead.Company, cand.Company)
	mergeField(&lead.Email, cand.Email)
	mergeField(&lead.Phone, cand.Phone)
	mergeField(&lead.Instagram, cand.Instagram)
	mergeField(&lead.Telegram, cand.Telegram)
	mergeField(&lead.Website, cand.Website)
	mergeField(&lead.Notes, cand.Notes)

	if lead.LeadTypeID == "" && cand.LeadType != "" {
		lt, err := r.store.GetOrCreateLeadType(ctx, cand.LeadType)
		if err != nil {
			return nil, err
		}
		lead.LeadTypeID = lt.ID
	}

	// Saved unconditionally so reprocess stays idempotent.
	if err := r.store.UpdateLead(ctx, lead); err != nil {
		return nil, err
	}

	if err := r.addTags(ctx, lead, cand.Tags); err != nil {
		return nil, err
	}

	zap.L().Debug("merged candidate into existing lead",
		zap.String("lead_id", lead.ID),
		zap.String("name", lead.Name),
	)
	return lead, nil
}

func (r *Reconciler) addTags(ctx context.Context, lead *model.Lead, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		tag, err := r.store.GetOrCreateTag(ctx, name)
		if err != nil {
			return err
		}
		if err := r.store.AddLeadTag(ctx, lead.ID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

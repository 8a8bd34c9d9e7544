package leadsync

import (
	"context"

	"github.com/sells-group/lead-crm/internal/model"
	"github.com/sells-group/lead-crm/pkg/salesforce"
)

// SalesforceTarget mirrors leads into Salesforce Lead records. Records are
// matched by email first, then by name and city.
type SalesforceTarget struct {
	client salesforce.Client
}

// NewSalesforceTarget creates a Salesforce sync target.
func NewSalesforceTarget(client salesforce.Client) *SalesforceTarget {
	return &SalesforceTarget{client: client}
}

func (t *SalesforceTarget) Name() string { return "salesforce" }

// SyncLead creates or updates the Salesforce record for one lead.
func (t *SalesforceTarget) SyncLead(ctx context.Context, lead model.Lead, city model.City) (Action, error) {
	existing, err := t.find(ctx, lead, city)
	if err != nil {
		return "", err
	}

	fields := leadFields(lead, city)
	if existing == nil {
		if _, err := salesforce.CreateLead(ctx, t.client, fields); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}

	if err := salesforce.UpdateLead(ctx, t.client, existing.ID, fields); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

func (t *SalesforceTarget) find(ctx context.Context, lead model.Lead, city model.City) (*salesforce.Lead, error) {
	if lead.Email != "" {
		found, err := salesforce.FindLeadByEmail(ctx, t.client, lead.Email)
		if err != nil || found != nil {
			return found, err
		}
	}
	return salesforce.FindLeadByNameCity(ctx, t.client, lead.Name, city.Name)
}

// ratings maps temperatures onto the standard Salesforce Rating picklist.
var ratings = map[model.Temperature]string{
	model.TemperatureHot:  "Hot",
	model.TemperatureWarm: "Warm",
	model.TemperatureCold: "Cold",
}

func leadFields(lead model.Lead, city model.City) map[string]any {
	company := lead.Company
	if company == "" {
		// Company is mandatory on the Lead object.
		company = lead.Name
	}

	fields := map[string]any{
		"LastName": lead.Name,
		"Company":  company,
	}
	set := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	set("Email", lead.Email)
	set("Phone", lead.Phone)
	set("Website", lead.Website)
	set("City", city.Name)
	set("Country", city.Country)
	set("LeadSource", lead.Source)
	set("Rating", ratings[lead.Temperature])
	set("Description", lead.Notes)
	return fields
}

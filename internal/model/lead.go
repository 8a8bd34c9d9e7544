package model

import (
	"fmt"
	"time"
)

// LeadStatus tracks where a lead sits in the sales funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Temperature grades how promising a lead is.
type Temperature string

const (
	TemperatureCold Temperature = "cold"
	TemperatureWarm Temperature = "warm"
	TemperatureHot  Temperature = "hot"
)

// Normalize maps any unknown temperature value to cold. Research output is
// not contractually reliable, so this is applied to every parsed candidate.
func (t Temperature) Normalize() Temperature {
	switch t {
	case TemperatureCold, TemperatureWarm, TemperatureHot:
		return t
	default:
		return TemperatureCold
	}
}

// City is a lead location. Unique per (name, iso2).
type City struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	ISO2    string `json:"iso2"`
}

// String renders the city the way it appears in prompts and error messages.
func (c City) String() string {
	return fmt.Sprintf("%s, %s", c.Name, c.Country)
}

// LeadType is a free-form lead category, deduplicated case-insensitively.
type LeadType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-form lead keyword, deduplicated case-insensitively.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lead is the persistent CRM contact record.
type Lead struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Company     string      `json:"company,omitempty"`
	LeadTypeID  string      `json:"lead_type_id,omitempty"`
	CityID      string      `json:"city_id,omitempty"`
	Telegram    string      `json:"telegram,omitempty"`
	Instagram   string      `json:"instagram,omitempty"`
	Website     string      `json:"website,omitempty"`
	Source      string      `json:"source,omitempty"`
	Status      LeadStatus  `json:"status"`
	Temperature Temperature `json:"temperature"`
	Notes       string      `json:"notes,omitempty"`
	Value       *float64    `json:"value,omitempty"`
	LastContact *time.Time  `json:"last_contact,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

package model

import (
	"net/url"
	"time"
)

// DateLayout is the calendar date format exchanged with the backend.
const DateLayout = "2006-01-02"

// Interval options for histogram granularity.
const (
	IntervalMonthly = "Monthly"
	IntervalWeekly  = "Weekly"
	IntervalDaily   = "Daily"
)

// Exchange types.
const (
	ExchangeIncoming = "Incoming"
	ExchangeOutgoing = "Outgoing"
)

// Products.
const (
	ProductGlobalVolunteer = "Global Volunteer"
	ProductGlobalTalent    = "Global Talent"
	ProductGlobalTeacher   = "Global Teacher"
)

// Aiesecer flag values.
const (
	AiesecerYes = "Yes"
	AiesecerNo  = "No"
)

var (
	Intervals     = []string{IntervalMonthly, IntervalWeekly, IntervalDaily}
	ExchangeTypes = []string{ExchangeIncoming, ExchangeOutgoing}
	Products      = []string{ProductGlobalVolunteer, ProductGlobalTalent, ProductGlobalTeacher}
	AiesecerFlags = []string{AiesecerYes, AiesecerNo}
)

// FilterSelection holds the user's current dashboard selections.
// Zero values mean unset.
type FilterSelection struct {
	EntityID     string
	EntityName   string
	StartDate    time.Time
	EndDate      time.Time
	Preset       string
	Interval     string
	ExchangeType string
	Products     []string
	Aiesecer     string
}

// FilterSnapshot is the JSON view of a FilterSelection.
type FilterSnapshot struct {
	EntityID     string   `json:"entity_id,omitempty"`
	EntityName   string   `json:"entity_name,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Preset       string   `json:"preset,omitempty"`
	Interval     string   `json:"interval,omitempty"`
	ExchangeType string   `json:"exchange_type,omitempty"`
	Products     []string `json:"products"`
	Aiesecer     string   `json:"aiesecer,omitempty"`
	CanApply     bool     `json:"can_apply"`
}

// Query is the normalized analytics request derived from a FilterSelection.
type Query struct {
	EntityID     string   `json:"entityId" validate:"required"`
	StartDate    string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	Interval     string   `json:"interval,omitempty" validate:"omitempty,oneof=Monthly Weekly Daily"`
	ExchangeType string   `json:"exchangeType,omitempty" validate:"omitempty,oneof=Incoming Outgoing"`
	Products     []string `json:"products,omitempty" validate:"omitempty,dive,oneof='Global Volunteer' 'Global Talent' 'Global Teacher'"`
	Aiesecer     string   `json:"aiesecer,omitempty" validate:"omitempty,oneof=Yes No"`
}

// Values encodes the query as request parameters. Unset optional fields
// are left out rather than sent empty.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("entityId", q.EntityID)
	v.Set("startDate", q.StartDate)
	v.Set("endDate", q.EndDate)
	if q.Interval != "" {
		v.Set("interval", q.Interval)
	}
	if q.ExchangeType != "" {
		v.Set("exchangeType", q.ExchangeType)
	}
	for _, p := range q.Products {
		v.Add("products", p)
	}
	if q.Aiesecer != "" {
		v.Set("aiesecer", q.Aiesecer)
	}
	return v
}

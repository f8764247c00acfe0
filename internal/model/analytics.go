package model

import (
	"bytes"
	"encoding/json"
)

// Bucket is a single histogram point.
type Bucket struct {
	KeyAsString string `json:"key_as_string"`
	Key         int64  `json:"key"`
	DocCount    int64  `json:"doc_count"`
}

// BucketContainer wraps a bucketed series.
type BucketContainer struct {
	Buckets []Bucket `json:"buckets"`
}

// MetricData is one named metric of an analytics response. Either series
// may be absent.
type MetricData struct {
	DocCount     int64            `json:"doc_count"`
	Applications *BucketContainer `json:"applications,omitempty"`
	People       *BucketContainer `json:"people,omitempty"`
	Meta         map[string]any   `json:"meta,omitempty"`
}

// AnalyticsResult maps metric keys (total_signup, ...) to their data.
type AnalyticsResult map[string]MetricData

// AnalyticsResponse is the backend envelope for /analytics.
type AnalyticsResponse struct {
	Analytics AnalyticsResult `json:"analytics"`
}

// KPI is a single total with its display attributes.
type KPI struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value int64  `json:"value"`
	Color string `json:"color"`
}

// TimeSeriesRow holds every metric's count at one date. Counts are keyed
// by metric label.
type TimeSeriesRow struct {
	Date   string
	Labels []string
	Counts []int64
}

// Count returns the count for label, or 0.
func (r TimeSeriesRow) Count(label string) int64 {
	for i, l := range r.Labels {
		if l == label {
			return r.Counts[i]
		}
	}
	return 0
}

// MarshalJSON flattens the row into {"date": ..., "<label>": count, ...}
// keeping metric order.
func (r TimeSeriesRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	date, err := json.Marshal(r.Date)
	if err != nil {
		return nil, err
	}
	buf.Write(date)
	for i, label := range r.Labels {
		key, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		count, _ := json.Marshal(r.Counts[i])
		buf.Write(count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Percentage is a formatted share of a baseline.
type Percentage struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FunnelRow is one stage of the conversion funnel.
type FunnelRow struct {
	Name           string      `json:"name"`
	Value          int64       `json:"value"`
	Color          string      `json:"color"`
	OfApplications *Percentage `json:"of_applications,omitempty"`
	OfPrevious     *Percentage `json:"of_previous,omitempty"`
}

// Funnel splits stages into plotted and omitted (zero-valued) ones.
type Funnel struct {
	Stages  []FunnelRow `json:"stages"`
	Omitted []FunnelRow `json:"omitted"`
}

// DashboardView is the view-ready result of an analytics fetch.
type DashboardView struct {
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	Query      *Query          `json:"query,omitempty"`
	KPIs       []KPI           `json:"kpis"`
	TimeSeries []TimeSeriesRow `json:"time_series"`
	Funnel     Funnel          `json:"funnel"`
}

// Package shaper turns raw analytics responses into view-ready rows.
// Every function is pure and tolerates partial responses.
package shaper

import (
	"sort"
	"strconv"

	"exchange-analytics-dashboard/internal/model"
)

// Metric keys of the analytics response.
const (
	KeySignUps            = "total_signup"
	KeyApplications       = "total_applications"
	KeyAcceptedByHost     = "total_matched"
	KeyApprovals          = "total_approvals"
	KeyRealizations       = "total_realized"
	KeyRemoteRealizations = "total_remote_realized"
	KeyFinished           = "total_finished"
	KeyCompleted          = "total_completed"
)

type series int

const (
	seriesApplications series = iota
	seriesPeople
)

// Metric describes how one response key is displayed.
type Metric struct {
	Key   string
	Label string
	Color string
	// Baseline is the stage this one converts from, empty for the first.
	Baseline string
	series   series
}

// Metrics lists the eight metrics in pipeline order.
var Metrics = []Metric{
	{Key: KeySignUps, Label: "Sign Ups", Color: "#a47d7c", series: seriesPeople},
	{Key: KeyApplications, Label: "Applications", Color: "#4671a6", Baseline: KeySignUps},
	{Key: KeyAcceptedByHost, Label: "Accepted by Host", Color: "#92a8cc", Baseline: KeyApplications},
	{Key: KeyApprovals, Label: "Approvals", Color: "#aa4643", Baseline: KeyAcceptedByHost},
	{Key: KeyRealizations, Label: "Realizations", Color: "#89a44f", Baseline: KeyApprovals},
	{Key: KeyRemoteRealizations, Label: "Remote Realizations", Color: "#81699b", Baseline: KeyApprovals},
	{Key: KeyFinished, Label: "Finished", Color: "#3d96ad", Baseline: KeyRealizations},
	{Key: KeyCompleted, Label: "Completed", Color: "#0b352a", Baseline: KeyRealizations},
}

// baselineLabels names each stage when it is used as a denominator.
var baselineLabels = map[string]string{
	KeySignUps:        "total sign ups",
	KeyApplications:   "total applications",
	KeyAcceptedByHost: "applications accepted by host",
	KeyApprovals:      "approved applications",
	KeyRealizations:   "total applications realized",
}

// NotAvailable is shown when a percentage cannot be computed.
const NotAvailable = "N/A"

// Labels returns the metric labels in pipeline order.
func Labels() []string {
	labels := make([]string, len(Metrics))
	for i, m := range Metrics {
		labels[i] = m.Label
	}
	return labels
}

// Totals returns one KPI per metric in fixed order. Missing keys count 0.
func Totals(result model.AnalyticsResult) []model.KPI {
	kpis := make([]model.KPI, 0, len(Metrics))
	for _, m := range Metrics {
		kpis = append(kpis, model.KPI{
			Key:   m.Key,
			Label: m.Label,
			Value: result[m.Key].DocCount,
			Color: m.Color,
		})
	}
	return kpis
}

// TimeSeries merges the eight bucketed series into one row per date.
// Dates are the sorted union of all bucket keys; absent counts are 0.
func TimeSeries(result model.AnalyticsResult) []model.TimeSeriesRow {
	if len(result) == 0 {
		return []model.TimeSeriesRow{}
	}

	counts := make([]map[string]int64, len(Metrics))
	seen := map[string]struct{}{}
	for i, m := range Metrics {
		counts[i] = map[string]int64{}
		for _, b := range buckets(result[m.Key], m.series) {
			if _, dup := counts[i][b.KeyAsString]; dup {
				continue
			}
			counts[i][b.KeyAsString] = b.DocCount
			seen[b.KeyAsString] = struct{}{}
		}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	labels := Labels()
	rows := make([]model.TimeSeriesRow, 0, len(dates))
	for _, d := range dates {
		row := model.TimeSeriesRow{Date: d, Labels: labels, Counts: make([]int64, len(Metrics))}
		for i := range Metrics {
			row.Counts[i] = counts[i][d]
		}
		rows = append(rows, row)
	}
	return rows
}

// Funnel builds the eight-stage conversion table. Stages with a zero
// count are returned in Omitted instead of Stages.
func Funnel(result model.AnalyticsResult) model.Funnel {
	applications := result[KeyApplications].DocCount
	funnel := model.Funnel{Stages: []model.FunnelRow{}, Omitted: []model.FunnelRow{}}

	for _, m := range Metrics {
		value := result[m.Key].DocCount
		row := model.FunnelRow{Name: m.Label, Value: value, Color: m.Color}
		// A stage never repeats its applications share as its baseline
		// share, and Applications has no share of itself.
		if m.Baseline != "" && m.Key != KeyApplications {
			row.OfApplications = share(value, applications, baselineLabels[KeyApplications])
		}
		if m.Baseline != "" && m.Baseline != KeyApplications {
			row.OfPrevious = share(value, result[m.Baseline].DocCount, baselineLabels[m.Baseline])
		}
		if value == 0 {
			funnel.Omitted = append(funnel.Omitted, row)
			continue
		}
		funnel.Stages = append(funnel.Stages, row)
	}
	return funnel
}

// Percentage formats numerator/denominator*100 with one decimal at or
// above 10% and two below. It returns NotAvailable for a zero
// denominator or a numerator larger than the denominator.
func Percentage(numerator, denominator int64) string {
	if denominator <= 0 || numerator > denominator {
		return NotAvailable
	}
	percent := float64(numerator) / float64(denominator) * 100
	decimals := 2
	if percent >= 10 {
		decimals = 1
	}
	return strconv.FormatFloat(percent, 'f', decimals, 64) + "%"
}

func share(numerator, denominator int64, of string) *model.Percentage {
	value := Percentage(numerator, denominator)
	p := &model.Percentage{Value: value}
	if value != NotAvailable {
		p.Label = "of " + of
	}
	return p
}

func buckets(data model.MetricData, s series) []model.Bucket {
	container := data.Applications
	if s == seriesPeople {
		container = data.People
	}
	if container == nil {
		return nil
	}
	return container.Buckets
}

// Package analytics computes dashboard aggregates and CSV exports over leads.
package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/leadcrm/internal/leads"
)

// TopCountries bounds the leadsByCountry breakdown.
const TopCountries = 10

// TrendMonths is the window of the monthly trend series.
const TrendMonths = 12

type Stats struct {
	TotalLeads       int64 `json:"totalLeads"`
	QuotationsSent   int64 `json:"quotationsSent"`
	DealsWon         int64 `json:"dealsWon"`
	PendingFollowups int64 `json:"pendingFollowups"`
}

// Bucket is one slice of a breakdown chart.
type Bucket struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type MonthlyCount struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

// Dashboard is the body of GET /analytics/dashboard-stats.
type Dashboard struct {
	Stats          Stats          `json:"stats"`
	LeadsByStatus  []Bucket       `json:"leadsByStatus"`
	LeadsByCountry []Bucket       `json:"leadsByCountry"`
	MonthlyTrends  []MonthlyCount `json:"monthlyTrends"`
}

// Source computes dashboards; since bounds the monthly trend series.
type Source interface {
	Dashboard(ctx context.Context, since time.Time) (*Dashboard, error)
}

// LeadLister returns every lead, newest first.
type LeadLister interface {
	All(ctx context.Context) ([]*leads.Lead, error)
}

var statusOrder = []leads.Status{leads.StatusNew, leads.StatusInProgress, leads.StatusClosed}

// Summarize aggregates in memory. Statuses appear in workflow order and only
// when present; countries are ordered by count, then name.
func Summarize(all []*leads.Lead, since time.Time) *Dashboard {
	d := &Dashboard{
		LeadsByStatus:  []Bucket{},
		LeadsByCountry: []Bucket{},
		MonthlyTrends:  []MonthlyCount{},
	}
	byStatus := map[leads.Status]int64{}
	byCountry := map[string]int64{}
	byMonth := map[time.Time]int64{}

	for _, l := range all {
		d.Stats.TotalLeads++
		if l.QuotationStatus != leads.QuotationPending {
			d.Stats.QuotationsSent++
		}
		if l.DealWon {
			d.Stats.DealsWon++
		}
		if l.CallFollowup != nil && l.Status != leads.StatusClosed {
			d.Stats.PendingFollowups++
		}
		byStatus[l.Status]++
		byCountry[l.Country]++
		if !l.CreatedAt.Before(since) {
			byMonth[monthStart(l.CreatedAt)]++
		}
	}

	for _, s := range statusOrder {
		if n := byStatus[s]; n > 0 {
			d.LeadsByStatus = append(d.LeadsByStatus, Bucket{Name: string(s), Value: n})
		}
	}
	d.LeadsByCountry = topBuckets(byCountry, TopCountries)

	for month, n := range byMonth {
		d.MonthlyTrends = append(d.MonthlyTrends, MonthlyCount{Month: month, Count: n})
	}
	sort.Slice(d.MonthlyTrends, func(i, j int) bool {
		return d.MonthlyTrends[i].Month.Before(d.MonthlyTrends[j].Month)
	})
	return d
}

func topBuckets(counts map[string]int64, limit int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		out = append(out, Bucket{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MemorySource aggregates over a lead repository.
type MemorySource struct {
	leads LeadLister
}

func NewMemorySource(leads LeadLister) *MemorySource {
	return &MemorySource{leads: leads}
}

func (s *MemorySource) Dashboard(ctx context.Context, since time.Time) (*Dashboard, error) {
	all, err := s.leads.All(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(all, since), nil
}

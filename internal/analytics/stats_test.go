package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadcrm/internal/leads"
)

type stubLister struct {
	leads []*leads.Lead
	err   error
}

func (s stubLister) All(context.Context) ([]*leads.Lead, error) { return s.leads, s.err }

func lead(id, country string, status leads.Status, quote leads.QuotationStatus, created time.Time) *leads.Lead {
	return &leads.Lead{
		ID:              id,
		CompanyName:     "Company " + id,
		Email:           id + "@example.com",
		Country:         country,
		Status:          status,
		QuotationStatus: quote,
		CreatedAt:       created,
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	followup := now.Add(48 * time.Hour)

	a := lead("a", "India", leads.StatusNew, leads.QuotationPending, now.AddDate(0, 0, -1))
	a.CallFollowup = &followup
	b := lead("b", "India", leads.StatusInProgress, leads.QuotationSent, now.AddDate(0, -1, 0))
	b.DealWon = true
	c := lead("c", "Germany", leads.StatusClosed, leads.QuotationAccepted, now.AddDate(0, -1, -2))
	c.CallFollowup = &followup
	c.DealWon = true
	old := lead("d", "Brazil", leads.StatusNew, leads.QuotationRejected, now.AddDate(-2, 0, 0))

	d := Summarize([]*leads.Lead{a, b, c, old}, now.AddDate(0, -TrendMonths, 0))

	assert.Equal(t, Stats{TotalLeads: 4, QuotationsSent: 3, DealsWon: 2, PendingFollowups: 1}, d.Stats)
	assert.Equal(t, []Bucket{
		{Name: "NEW", Value: 2},
		{Name: "IN_PROGRESS", Value: 1},
		{Name: "CLOSED", Value: 1},
	}, d.LeadsByStatus)
	assert.Equal(t, []Bucket{
		{Name: "India", Value: 2},
		{Name: "Brazil", Value: 1},
		{Name: "Germany", Value: 1},
	}, d.LeadsByCountry)
	assert.Equal(t, []MonthlyCount{
		{Month: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Count: 2},
		{Month: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Count: 1},
	}, d.MonthlyTrends)
}

func TestSummarizeEmpty(t *testing.T) {
	d := Summarize(nil, time.Now())
	assert.Equal(t, Stats{}, d.Stats)
	assert.NotNil(t, d.LeadsByStatus)
	assert.NotNil(t, d.LeadsByCountry)
	assert.NotNil(t, d.MonthlyTrends)
}

func TestSummarizeLimitsCountries(t *testing.T) {
	now := time.Now().UTC()
	var all []*leads.Lead
	for i := 0; i < 15; i++ {
		for j := 0; j <= i; j++ {
			all = append(all, lead(fmt.Sprintf("%d-%d", i, j), fmt.Sprintf("C%02d", i), leads.StatusNew, leads.QuotationPending, now))
		}
	}
	d := Summarize(all, now.AddDate(-1, 0, 0))
	require.Len(t, d.LeadsByCountry, TopCountries)
	assert.Equal(t, "C14", d.LeadsByCountry[0].Name)
	assert.EqualValues(t, 15, d.LeadsByCountry[0].Value)
	assert.Equal(t, "C05", d.LeadsByCountry[TopCountries-1].Name)
}

func TestMemorySourcePropagatesErrors(t *testing.T) {
	_, err := NewMemorySource(stubLister{err: errors.New("boom")}).Dashboard(context.Background(), time.Now())
	assert.EqualError(t, err, "boom")
}

package leads

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLeads(t *testing.T, f *fixture, n int) []*Lead {
	t.Helper()
	out := make([]*Lead, 0, n)
	for i := 0; i < n; i++ {
		req := acmeRequest()
		req.CompanyName = fmt.Sprintf("Company %02d", i)
		req.Email = fmt.Sprintf("buyer%02d@example.com", i)
		lead, err := f.service.Create(context.Background(), salesUser, req)
		require.NoError(t, err)
		out = append(out, lead)
	}
	return out
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	seedLeads(t, f, 25)
	ctx := context.Background()

	res, err := f.query.List(ctx, ListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Leads, 10)
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 25, Pages: 3}, res.Pagination)
	assert.Equal(t, "Company 24", res.Leads[0].CompanyName, "newest first")

	res, err = f.query.List(ctx, ListFilter{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Leads, 5)

	res, err = f.query.List(ctx, ListFilter{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Leads)
	assert.NotNil(t, res.Leads)
	assert.Equal(t, 25, res.Pagination.Total)
	assert.Equal(t, 3, res.Pagination.Pages)
}

func TestListPageFarPastEnd(t *testing.T) {
	f := newFixture(t)
	seedLeads(t, f, 3)

	filter, err := ParseListFilter(url.Values{"page": {"1000000000000000000"}, "limit": {"10"}})
	require.NoError(t, err)
	res, err := f.query.List(context.Background(), filter)
	require.NoError(t, err)
	assert.NotNil(t, res.Leads)
	assert.Empty(t, res.Leads)
	assert.Equal(t, Pagination{Page: 1000000000000000000, Limit: 10, Total: 3, Pages: 1}, res.Pagination)
}

func TestListEmptyStore(t *testing.T) {
	f := newFixture(t)
	res, err := f.query.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Leads)
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize, Total: 0, Pages: 0}, res.Pagination)
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := acmeRequest()
	_, err := f.service.Create(ctx, salesUser, req)
	require.NoError(t, err)
	other := acmeRequest()
	other.CompanyName = "Globex"
	other.Email = "info@globex.io"
	other.Country = "Germany"
	_, err = f.service.Create(ctx, salesUser, other)
	require.NoError(t, err)

	res, err := f.query.List(ctx, ListFilter{Search: "ACME"})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "Acme", res.Leads[0].CompanyName)

	res, err = f.query.List(ctx, ListFilter{Search: "GLOBEX.IO"})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "Globex", res.Leads[0].CompanyName)

	res, err = f.query.List(ctx, ListFilter{Country: "germ"})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)

	res, err = f.query.List(ctx, ListFilter{Search: "initech"})
	require.NoError(t, err)
	assert.Empty(t, res.Leads)
}

func TestListCarriesThreeMostRecentEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead, err := f.service.Create(ctx, salesUser, acmeRequest())
	require.NoError(t, err)
	for _, remark := range []string{"one", "two", "three", "four"} {
		_, err := f.service.Update(ctx, salesUser, lead.ID, UpdateLeadRequest{Remark: strPtr(remark)})
		require.NoError(t, err)
	}

	res, err := f.query.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	require.Len(t, res.Leads[0].ActivityLogs, RecentActivityPerLead)

	full, err := f.query.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, full.ActivityLogs, 5)
	for i := 1; i < len(full.ActivityLogs); i++ {
		assert.True(t, full.ActivityLogs[i-1].Timestamp.After(full.ActivityLogs[i].Timestamp))
	}
}

func TestGetMissingLead(t *testing.T) {
	f := newFixture(t)
	_, err := f.query.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

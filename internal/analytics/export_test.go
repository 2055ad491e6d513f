package analytics

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadcrm/internal/leads"
)

func TestWriteCSVQuotesFields(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l := lead("l1", "India", leads.StatusNew, leads.QuotationPending, created)
	l.CompanyName = `Acme, "Bolts" Ltd`
	l.DealWon = true

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*leads.Lead{l}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, []string{
		"l1", `Acme, "Bolts" Ltd`, "l1@example.com", "India", "NEW", "PENDING", "true", "2024-01-15T10:00:00.000Z",
	}, records[1])
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "ID,Company Name,Email,Country,Status,Quotation Status,Deal Won,Created At\n", buf.String())
}

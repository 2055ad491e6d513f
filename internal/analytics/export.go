package analytics

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/wolfman30/leadcrm/internal/leads"
)

// ExportFilename is offered to the browser in Content-Disposition.
const ExportFilename = "leads-export.csv"

var exportHeader = []string{
	"ID", "Company Name", "Email", "Country", "Status", "Quotation Status", "Deal Won", "Created At",
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// WriteCSV writes one row per lead in the given order.
func WriteCSV(w io.Writer, all []*leads.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, l := range all {
		record := []string{
			l.ID,
			l.CompanyName,
			l.Email,
			l.Country,
			string(l.Status),
			string(l.QuotationStatus),
			strconv.FormatBool(l.DealWon),
			l.CreatedAt.UTC().Format(isoMillis),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

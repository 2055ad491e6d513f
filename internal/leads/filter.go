package leads

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListFilter selects a page of leads. Zero-valued criteria match everything.
type ListFilter struct {
	Search   string
	Status   Status
	Country  string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// Offset is the number of leads skipped before the requested page. It
// saturates instead of overflowing, so an absurd page still lands past the end.
func (f ListFilter) Offset() int {
	f = f.normalized()
	if f.Page-1 > (math.MaxInt-f.Limit)/f.Limit {
		return math.MaxInt - f.Limit
	}
	return (f.Page - 1) * f.Limit
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

// Matches reports whether l satisfies every criterion of f.
func (f ListFilter) Matches(l *Lead) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(l.CompanyName), needle) &&
			!strings.Contains(strings.ToLower(l.Email), needle) {
			return false
		}
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Country != "" && !strings.Contains(strings.ToLower(l.Country), strings.ToLower(f.Country)) {
		return false
	}
	if f.DateFrom != nil && l.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && l.Date.After(*f.DateTo) {
		return false
	}
	return true
}

// ParseListFilter reads page, limit, search, status, country, dateFrom and
// dateTo from q. A bare dateTo date covers that whole day.
func ParseListFilter(q url.Values) (ListFilter, error) {
	f := ListFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Country: strings.TrimSpace(q.Get("country")),
		Page:    1,
		Limit:   DefaultPageSize,
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			return ListFilter{}, invalid("status", ErrInvalidStatus)
		}
		f.Status = s
	}
	if raw := strings.TrimSpace(q.Get("dateFrom")); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			return ListFilter{}, invalid("dateFrom", ErrInvalidDate)
		}
		f.DateFrom = &t
	}
	if raw := strings.TrimSpace(q.Get("dateTo")); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			return ListFilter{}, invalid("dateTo", ErrInvalidDate)
		}
		if len(raw) == len(time.DateOnly) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.DateTo = &t
	}
	return f.normalized(), nil
}

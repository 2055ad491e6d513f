package leads

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/leadcrm/internal/audit"
)

// Status is the workflow state of a lead.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// QuotationStatus tracks the quote sent to a lead.
type QuotationStatus string

const (
	QuotationPending  QuotationStatus = "PENDING"
	QuotationSent     QuotationStatus = "SENT"
	QuotationAccepted QuotationStatus = "ACCEPTED"
	QuotationRejected QuotationStatus = "REJECTED"
)

func (q QuotationStatus) Valid() bool {
	switch q {
	case QuotationPending, QuotationSent, QuotationAccepted, QuotationRejected:
		return true
	}
	return false
}

// Lead is an inbound sales enquiry and its workflow state.
type Lead struct {
	ID               string          `json:"id"`
	RFQ              *string         `json:"rfq"`
	MessageID        string          `json:"messageId"`
	ThreadID         string          `json:"threadId"`
	MarketingUser    string          `json:"marketingUser"`
	Email            string          `json:"email"`
	ContactNo        string          `json:"contactNo"`
	CompanyName      string          `json:"companyName"`
	Body             string          `json:"body"`
	Subject          string          `json:"subject"`
	Website          *string         `json:"website"`
	ThreadLinks      json.RawMessage `json:"threadLinks"`
	Date             time.Time       `json:"date"`
	Country          string          `json:"country"`
	FormSent         bool            `json:"formSent"`
	FormFilled       bool            `json:"formFilled"`
	ResponseSheet    *string         `json:"responseSheet"`
	Followup         *string         `json:"followup"`
	QuotationStatus  QuotationStatus `json:"quotationStatus"`
	Remark           *string         `json:"remark"`
	DealWon          bool            `json:"dealWon"`
	ProbableCustomer bool            `json:"probableCustomer"`
	Status           Status          `json:"status"`
	Review           *string         `json:"review"`
	CallFollowup     *time.Time      `json:"callFollowup"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	ActivityLogs     []audit.Entry   `json:"activityLogs"`
}

// Clone returns a deep copy of l without its activity log.
func (l *Lead) Clone() *Lead {
	out := *l
	out.RFQ = cloneString(l.RFQ)
	out.Website = cloneString(l.Website)
	out.ResponseSheet = cloneString(l.ResponseSheet)
	out.Followup = cloneString(l.Followup)
	out.Remark = cloneString(l.Remark)
	out.Review = cloneString(l.Review)
	if l.ThreadLinks != nil {
		out.ThreadLinks = append(json.RawMessage(nil), l.ThreadLinks...)
	}
	if l.CallFollowup != nil {
		t := *l.CallFollowup
		out.CallFollowup = &t
	}
	out.ActivityLogs = nil
	return &out
}

// CreateLeadRequest is the body of POST /leads.
type CreateLeadRequest struct {
	RFQ              *string         `json:"rfq,omitempty"`
	MessageID        string          `json:"messageId"`
	ThreadID         string          `json:"threadId"`
	MarketingUser    string          `json:"marketingUser"`
	Email            string          `json:"email"`
	ContactNo        string          `json:"contactNo"`
	CompanyName      string          `json:"companyName"`
	Body             string          `json:"body"`
	Subject          string          `json:"subject"`
	Website          *string         `json:"website,omitempty"`
	ThreadLinks      json.RawMessage `json:"threadLinks,omitempty"`
	Date             string          `json:"date"`
	Country          string          `json:"country"`
	FormSent         *bool           `json:"formSent,omitempty"`
	FormFilled       *bool           `json:"formFilled,omitempty"`
	ResponseSheet    *string         `json:"responseSheet,omitempty"`
	Followup         *string         `json:"followup,omitempty"`
	QuotationStatus  string          `json:"quotationStatus,omitempty"`
	Remark           *string         `json:"remark,omitempty"`
	DealWon          *bool           `json:"dealWon,omitempty"`
	ProbableCustomer *bool           `json:"probableCustomer,omitempty"`
	Status           string          `json:"status,omitempty"`
	Review           *string         `json:"review,omitempty"`
	CallFollowup     *string         `json:"callFollowup,omitempty"`
}

// Lead validates r and builds the lead to persist, applying workflow defaults.
func (r *CreateLeadRequest) Lead() (*Lead, error) {
	required := []struct {
		field string
		value string
	}{
		{"messageId", r.MessageID},
		{"threadId", r.ThreadID},
		{"marketingUser", r.MarketingUser},
		{"email", r.Email},
		{"contactNo", r.ContactNo},
		{"companyName", r.CompanyName},
		{"body", r.Body},
		{"subject", r.Subject},
		{"date", r.Date},
		{"country", r.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, invalid(f.field, ErrMissingField)
		}
	}
	if !validEmail(r.Email) {
		return nil, invalid("email", ErrInvalidEmail)
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, invalid("date", ErrInvalidDate)
	}

	lead := &Lead{
		RFQ:              cloneString(r.RFQ),
		MessageID:        r.MessageID,
		ThreadID:         r.ThreadID,
		MarketingUser:    r.MarketingUser,
		Email:            strings.TrimSpace(r.Email),
		ContactNo:        r.ContactNo,
		CompanyName:      r.CompanyName,
		Body:             r.Body,
		Subject:          r.Subject,
		Website:          cloneString(r.Website),
		Date:             date,
		Country:          r.Country,
		FormSent:         boolValue(r.FormSent),
		FormFilled:       boolValue(r.FormFilled),
		ResponseSheet:    cloneString(r.ResponseSheet),
		Followup:         cloneString(r.Followup),
		QuotationStatus:  QuotationPending,
		Remark:           cloneString(r.Remark),
		DealWon:          boolValue(r.DealWon),
		ProbableCustomer: boolValue(r.ProbableCustomer),
		Status:           StatusNew,
		Review:           cloneString(r.Review),
	}
	if suppliedJSON(r.ThreadLinks) {
		if !json.Valid(r.ThreadLinks) {
			return nil, invalid("threadLinks", ErrInvalidThreadLinks)
		}
		lead.ThreadLinks = append(json.RawMessage(nil), r.ThreadLinks...)
	}
	if r.Status != "" {
		if !Status(r.Status).Valid() {
			return nil, invalid("status", ErrInvalidStatus)
		}
		lead.Status = Status(r.Status)
	}
	if r.QuotationStatus != "" {
		if !QuotationStatus(r.QuotationStatus).Valid() {
			return nil, invalid("quotationStatus", ErrInvalidQuotationStatus)
		}
		lead.QuotationStatus = QuotationStatus(r.QuotationStatus)
	}
	if r.CallFollowup != nil && strings.TrimSpace(*r.CallFollowup) != "" {
		t, err := ParseDate(*r.CallFollowup)
		if err != nil {
			return nil, invalid("callFollowup", ErrInvalidDate)
		}
		lead.CallFollowup = &t
	}
	return lead, nil
}

// UpdateLeadRequest is the body of PATCH /leads/{id}; nil fields are left unchanged.
type UpdateLeadRequest struct {
	RFQ              *string         `json:"rfq,omitempty"`
	MessageID        *string         `json:"messageId,omitempty"`
	ThreadID         *string         `json:"threadId,omitempty"`
	MarketingUser    *string         `json:"marketingUser,omitempty"`
	Email            *string         `json:"email,omitempty"`
	ContactNo        *string         `json:"contactNo,omitempty"`
	CompanyName      *string         `json:"companyName,omitempty"`
	Body             *string         `json:"body,omitempty"`
	Subject          *string         `json:"subject,omitempty"`
	Website          *string         `json:"website,omitempty"`
	ThreadLinks      json.RawMessage `json:"threadLinks,omitempty"`
	Date             *string         `json:"date,omitempty"`
	Country          *string         `json:"country,omitempty"`
	FormSent         *bool           `json:"formSent,omitempty"`
	FormFilled       *bool           `json:"formFilled,omitempty"`
	ResponseSheet    *string         `json:"responseSheet,omitempty"`
	Followup         *string         `json:"followup,omitempty"`
	QuotationStatus  *string         `json:"quotationStatus,omitempty"`
	Remark           *string         `json:"remark,omitempty"`
	DealWon          *bool           `json:"dealWon,omitempty"`
	ProbableCustomer *bool           `json:"probableCustomer,omitempty"`
	Status           *string         `json:"status,omitempty"`
	Review           *string         `json:"review,omitempty"`
	CallFollowup     *string         `json:"callFollowup,omitempty"`
}

// Patch validates r and converts it into a typed patch.
func (r *UpdateLeadRequest) Patch() (Patch, error) {
	p := Patch{
		RFQ:              cloneString(r.RFQ),
		MessageID:        cloneString(r.MessageID),
		ThreadID:         cloneString(r.ThreadID),
		MarketingUser:    cloneString(r.MarketingUser),
		ContactNo:        cloneString(r.ContactNo),
		CompanyName:      cloneString(r.CompanyName),
		Body:             cloneString(r.Body),
		Subject:          cloneString(r.Subject),
		Website:          cloneString(r.Website),
		Country:          cloneString(r.Country),
		FormSent:         r.FormSent,
		FormFilled:       r.FormFilled,
		ResponseSheet:    cloneString(r.ResponseSheet),
		Followup:         cloneString(r.Followup),
		Remark:           cloneString(r.Remark),
		DealWon:          r.DealWon,
		ProbableCustomer: r.ProbableCustomer,
		Review:           cloneString(r.Review),
	}
	if r.Email != nil {
		if !validEmail(*r.Email) {
			return Patch{}, invalid("email", ErrInvalidEmail)
		}
		email := strings.TrimSpace(*r.Email)
		p.Email = &email
	}
	if suppliedJSON(r.ThreadLinks) {
		if !json.Valid(r.ThreadLinks) {
			return Patch{}, invalid("threadLinks", ErrInvalidThreadLinks)
		}
		p.ThreadLinks = append(json.RawMessage(nil), r.ThreadLinks...)
	}
	if r.Date != nil {
		t, err := ParseDate(*r.Date)
		if err != nil {
			return Patch{}, invalid("date", ErrInvalidDate)
		}
		p.Date = &t
	}
	if r.CallFollowup != nil {
		t, err := ParseDate(*r.CallFollowup)
		if err != nil {
			return Patch{}, invalid("callFollowup", ErrInvalidDate)
		}
		p.CallFollowup = &t
	}
	if r.Status != nil {
		s := Status(*r.Status)
		if !s.Valid() {
			return Patch{}, invalid("status", ErrInvalidStatus)
		}
		p.Status = &s
	}
	if r.QuotationStatus != nil {
		q := QuotationStatus(*r.QuotationStatus)
		if !q.Valid() {
			return Patch{}, invalid("quotationStatus", ErrInvalidQuotationStatus)
		}
		p.QuotationStatus = &q
	}
	return p, nil
}

// Patch is a validated partial update. Nil fields are left unchanged.
type Patch struct {
	RFQ              *string
	MessageID        *string
	ThreadID         *string
	MarketingUser    *string
	Email            *string
	ContactNo        *string
	CompanyName      *string
	Body             *string
	Subject          *string
	Website          *string
	ThreadLinks      json.RawMessage
	Date             *time.Time
	Country          *string
	FormSent         *bool
	FormFilled       *bool
	ResponseSheet    *string
	Followup         *string
	QuotationStatus  *QuotationStatus
	Remark           *string
	DealWon          *bool
	ProbableCustomer *bool
	Status           *Status
	Review           *string
	CallFollowup     *time.Time
}

type patchField struct {
	column string
	name   string
	value  any
}

// fields lists the supplied fields in column order.
func (p Patch) fields() []patchField {
	var out []patchField
	str := func(column, name string, v *string) {
		if v != nil {
			out = append(out, patchField{column, name, *v})
		}
	}
	flag := func(column, name string, v *bool) {
		if v != nil {
			out = append(out, patchField{column, name, *v})
		}
	}
	str("rfq", "rfq", p.RFQ)
	str("message_id", "messageId", p.MessageID)
	str("thread_id", "threadId", p.ThreadID)
	str("marketing_user", "marketingUser", p.MarketingUser)
	str("email", "email", p.Email)
	str("contact_no", "contactNo", p.ContactNo)
	str("company_name", "companyName", p.CompanyName)
	str("body", "body", p.Body)
	str("subject", "subject", p.Subject)
	str("website", "website", p.Website)
	if p.ThreadLinks != nil {
		out = append(out, patchField{"thread_links", "threadLinks", p.ThreadLinks})
	}
	if p.Date != nil {
		out = append(out, patchField{"date", "date", *p.Date})
	}
	str("country", "country", p.Country)
	flag("form_sent", "formSent", p.FormSent)
	flag("form_filled", "formFilled", p.FormFilled)
	str("response_sheet", "responseSheet", p.ResponseSheet)
	str("followup", "followup", p.Followup)
	if p.QuotationStatus != nil {
		out = append(out, patchField{"quotation_status", "quotationStatus", string(*p.QuotationStatus)})
	}
	str("remark", "remark", p.Remark)
	flag("deal_won", "dealWon", p.DealWon)
	flag("probable_customer", "probableCustomer", p.ProbableCustomer)
	if p.Status != nil {
		out = append(out, patchField{"status", "status", string(*p.Status)})
	}
	str("review", "review", p.Review)
	if p.CallFollowup != nil {
		out = append(out, patchField{"call_followup", "callFollowup", *p.CallFollowup})
	}
	return out
}

// Changes returns the supplied fields keyed by their JSON names, as recorded
// in the audit trail.
func (p Patch) Changes() map[string]any {
	out := make(map[string]any)
	for _, f := range p.fields() {
		out[f.name] = f.value
	}
	return out
}

// Apply merges the supplied fields into l.
func (p Patch) Apply(l *Lead) {
	setString(&l.RFQ, p.RFQ)
	setValue(&l.MessageID, p.MessageID)
	setValue(&l.ThreadID, p.ThreadID)
	setValue(&l.MarketingUser, p.MarketingUser)
	setValue(&l.Email, p.Email)
	setValue(&l.ContactNo, p.ContactNo)
	setValue(&l.CompanyName, p.CompanyName)
	setValue(&l.Body, p.Body)
	setValue(&l.Subject, p.Subject)
	setString(&l.Website, p.Website)
	if p.ThreadLinks != nil {
		l.ThreadLinks = append(json.RawMessage(nil), p.ThreadLinks...)
	}
	setValue(&l.Date, p.Date)
	setValue(&l.Country, p.Country)
	setValue(&l.FormSent, p.FormSent)
	setValue(&l.FormFilled, p.FormFilled)
	setString(&l.ResponseSheet, p.ResponseSheet)
	setString(&l.Followup, p.Followup)
	setValue(&l.QuotationStatus, p.QuotationStatus)
	setString(&l.Remark, p.Remark)
	setValue(&l.DealWon, p.DealWon)
	setValue(&l.ProbableCustomer, p.ProbableCustomer)
	setValue(&l.Status, p.Status)
	setString(&l.Review, p.Review)
	if p.CallFollowup != nil {
		t := *p.CallFollowup
		l.CallFollowup = &t
	}
}

// ParseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func validEmail(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	return err == nil && addr.Address == trimmed
}

// suppliedJSON reports whether raw carries a value; absent and null both
// mean the field was not supplied.
func suppliedJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst **string, v *string) {
	if v != nil {
		*dst = cloneString(v)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

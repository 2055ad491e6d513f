package leads

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

// Handler handles HTTP requests for leads
type Handler struct {
	query   *QueryService
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(query *QueryService, service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{query: query, service: service, logger: logger}
}

// ListLeads handles GET /leads.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseListFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, "list leads", err)
		return
	}
	res, err := h.query.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list leads", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetLead handles GET /leads/{id}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.query.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// CreateLead handles POST /leads.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid lead data"))
		return
	}
	lead, err := h.service.Create(r.Context(), actor(r), req)
	if err != nil {
		h.writeError(w, "create lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// UpdateLead handles PATCH /leads/{id}.
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid lead data"))
		return
	}
	lead, err := h.service.Update(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, "update lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /leads/{id}.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead data", "field": verr.Field, "detail": verr.Error()})
	case errors.Is(err, ErrLeadNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("lead not found"))
	default:
		h.logger.Error("lead request failed", "op", op, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func actor(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package company

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/leadcrm/pkg/logging"
)

// Handler provides HTTP endpoints for company branding.
type Handler struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger, now: time.Now}
}

// Get handles GET /company.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get company", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /company.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get company", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if err := req.Apply(c); err != nil {
		if errors.Is(err, ErrInvalidColor) || errors.Is(err, ErrInvalidName) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	c.UpdatedAt = h.now().UTC()
	if err := h.store.Set(r.Context(), c); err != nil {
		h.logger.Error("failed to save company", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.logger.Info("company branding updated", "name", c.Name)
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

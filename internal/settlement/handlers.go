package settlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pasarhub/backend-pos/internal/common"
	"github.com/pasarhub/backend-pos/internal/store"
)

// Handler wires the settlement service to HTTP.
type Handler struct {
	Svc *Service
}

// Close closes a trading day. With no date in the payload it closes today.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Date string `json:"date"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	closedBy := requestUser(r)

	var (
		res Result
		err error
	)
	if payload.Date == "" {
		res, err = h.Svc.CloseToday(r.Context(), closedBy)
	} else {
		day, parseErr := time.Parse("2006-01-02", payload.Date)
		if parseErr != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD", nil)
			return
		}
		res, err = h.Svc.CloseDate(r.Context(), day, closedBy)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

// Get returns one closed account with its item snapshots.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid account id", nil)
		return
	}
	res, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// GetByDate returns the account closed for a trading day.
func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD", nil)
		return
	}
	res, err := h.Svc.GetByDate(r.Context(), day)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// List returns closed accounts, newest first, or a date range when the
// from/to query parameters are present.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw != "" || toRaw != "" {
		from, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD", nil)
			return
		}
		to, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD", nil)
			return
		}
		if to.Before(from) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must not precede from", nil)
			return
		}
		accounts, err := h.Svc.ListRange(r.Context(), from, to)
		if err != nil {
			h.writeError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid limit", nil)
			return
		}
		limit = parsed
	}
	accounts, err := h.Svc.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}

// TopItems ranks items by frozen line totals over a closed-account date
// range. Both from and to are required; limit defaults in the store.
func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD", nil)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD", nil)
		return
	}
	if to.Before(from) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must not precede from", nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid limit", nil)
			return
		}
		limit = parsed
	}
	sales, err := h.Svc.TopItems(r.Context(), from, to, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sales})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAlreadyClosed):
		common.JSONError(w, http.StatusConflict, "ALREADY_CLOSED", err.Error(), nil)
	case errors.Is(err, store.ErrNothingToClose):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOTHING_TO_CLOSE", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "account not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func requestUser(r *http.Request) uuid.UUID {
	if raw, ok := common.UserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

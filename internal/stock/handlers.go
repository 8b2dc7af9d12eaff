package stock

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasarhub/backend-pos/internal/common"
	"github.com/pasarhub/backend-pos/internal/store"
)

// Handler wires the stock service to HTTP.
type Handler struct {
	Svc *Service
}

type entryPayload struct {
	ItemID   int64           `json:"itemId"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Create registers the stock entry for an item.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.ItemID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "itemId is required", nil)
		return
	}
	entry, err := h.Svc.CreateEntry(r.Context(), payload.ItemID, payload.Quantity, requestUser(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": entry})
}

// List returns the stock level for every stocked item.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	levels, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": levels})
}

// Get returns the stock level for one item.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	lvl, err := h.Svc.Get(r.Context(), itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": lvl})
}

// Update replaces the on-hand quantity for one item.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	entry, err := h.Svc.SetQuantity(r.Context(), itemID, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entry})
}

// Delete removes the stock entry, taking the item off sale.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveEntry(r.Context(), itemID); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// Availability answers whether a quantity could be reserved right now.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	qty := decimal.NewFromInt(1)
	if raw := r.URL.Query().Get("qty"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid qty", nil)
			return
		}
		qty = parsed
	}
	lvl, err := h.Svc.CheckAvailability(r.Context(), itemID, qty)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"available": false,
				"level":     lvl,
			}})
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"available": true,
		"level":     lvl,
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, store.ErrAlreadyStocked):
		common.JSONError(w, http.StatusConflict, "ALREADY_STOCKED", err.Error(), nil)
	case errors.Is(err, store.ErrNotStocked):
		common.JSONError(w, http.StatusNotFound, "NOT_STOCKED", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return 0, false
	}
	return id, true
}

func requestUser(r *http.Request) uuid.UUID {
	if raw, ok := common.UserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

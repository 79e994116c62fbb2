package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/service"
)

// TradeHandler handles HTTP requests for trade endpoints.
type TradeHandler struct {
	svc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(svc *service.TradeService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

// createTradeRequest is the JSON request body for POST /trades.
// creation_date defaults to the current time when omitted.
type createTradeRequest struct {
	ID           string  `json:"id"`
	Owner        string  `json:"owner"`
	TradeType    string  `json:"trade_type"`
	Value        float64 `json:"value"`
	Price        float64 `json:"price"`
	CreationDate *string `json:"creation_date"`
}

// updateTradeRequest is the JSON request body for PUT /trades/{id}.
// updated_date defaults to the current time when omitted.
type updateTradeRequest struct {
	Owner       string  `json:"owner"`
	TradeType   string  `json:"trade_type"`
	Value       float64 `json:"value"`
	Price       float64 `json:"price"`
	UpdatedDate *string `json:"updated_date"`
}

// executeTradeRequest is the JSON request body for POST /executions.
type executeTradeRequest struct {
	SellID string  `json:"sell_id"`
	BuyID  string  `json:"buy_id"`
	Price  float64 `json:"price"`
}

// InitLedger handles POST /ledger/init.
func (h *TradeHandler) InitLedger(w http.ResponseWriter, r *http.Request) {
	seeded, err := h.svc.InitLedger(r.Context())
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, seeded)
}

// ListTrades handles GET /trades. The response is the wire-format
// array of {Key, Record} pairs.
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.GetAllTrades(r.Context())
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

// CreateTrade handles POST /trades.
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	creationDate, ok := parseDate(w, req.CreationDate, "creation_date")
	if !ok {
		return
	}

	rec, err := h.svc.CreateTrade(r.Context(), req.ID, req.Owner, domain.TradeType(req.TradeType), req.Value, req.Price, creationDate)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, rec)
}

// ReadTrade handles GET /trades/{id}.
func (h *TradeHandler) ReadTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.svc.ReadTrade(r.Context(), id)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// TradeExists handles GET /trades/{id}/exists.
func (h *TradeHandler) TradeExists(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exists, err := h.svc.TradeExists(r.Context(), id)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// UpdateTrade handles PUT /trades/{id}.
func (h *TradeHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	updatedDate, ok := parseDate(w, req.UpdatedDate, "updated_date")
	if !ok {
		return
	}

	err := h.svc.UpdateTrade(r.Context(), id, req.Owner, domain.TradeType(req.TradeType), req.Value, req.Price, updatedDate)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTrade handles DELETE /trades/{id}.
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteTrade(r.Context(), id); err != nil {
		mapTradeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExecuteTrade handles POST /executions.
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.svc.ExecutedTrade(r.Context(), req.SellID, req.BuyID, req.Price)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// parseDate parses an optional RFC 3339 timestamp, defaulting to the
// current time. Writes the error response itself when parsing fails.
func parseDate(w http.ResponseWriter, raw *string, field string) (time.Time, bool) {
	if raw == nil {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", field+" must be a valid RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}

// mapTradeError maps domain errors to HTTP responses.
func mapTradeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	var corruptErr *domain.CorruptRecordError
	if errors.As(err, &corruptErr) {
		WriteError(w, http.StatusInternalServerError, "corrupt_record", corruptErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrTradeNotFound):
		WriteError(w, http.StatusNotFound, "trade_not_found", err.Error())
	case errors.Is(err, domain.ErrTradeAlreadyExists):
		WriteError(w, http.StatusConflict, "trade_already_exists", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

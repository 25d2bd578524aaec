/*
handlers.go - HTTP API handlers for the promo ledger

PURPOSE:
  Exposes the promo ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, authorization checks, and
  delegates balance logic to promo.Engine.

ENDPOINTS:
  Promos:
    GET    /api/v1/promos/               List (scoped: admins all, others own)
    POST   /api/v1/promos/add/           Create promo (admin)
    GET    /api/v1/promos/{id}/          Retrieve (admin)
    PATCH  /api/v1/promos/{id}/          Update name/points/recipient (admin)
    PUT    /api/v1/promos/{id}/          Same as PATCH
    DELETE /api/v1/promos/{id}/          Delete (admin)

  Balance:
    GET    /api/v1/promos/{id}/points/        Remaining points (owner or admin)
    GET    /api/v1/promos/{id}/use/{amount}/  Consume points (owner or admin)

  Admin:
    POST   /api/v1/admin/seed            Demo data loader (seed.go)

REQUEST FLOW:
  1. Authenticator resolves the caller (auth.go)
  2. Policy predicate gates the operation (promo/policy.go)
  3. Engine performs the balance computation/mutation
  4. Serialize response / map domain errors

ERROR HANDLING:
  - 400: Validation errors (invalid amount/name/recipient, overdraft)
  - 401: Missing/unknown token
  - 403: Authorization denial (distinct from validation)
  - 404: Promo not found
  - 500: Internal errors

ORDERING NOTE:
  For single-promo operations the authorization check runs BEFORE any
  input validation, so a stranger gets 403 regardless of how broken the
  rest of the request is.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - promo/engine.go: The ledger engine
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *promo.Engine
	Users  promo.UserStore
}

// NewHandler creates a new handler over the given engine and user store.
func NewHandler(engine *promo.Engine, users promo.UserStore) *Handler {
	return &Handler{Engine: engine, Users: users}
}

// =============================================================================
// PROMO HANDLERS
// =============================================================================

// ListPromos returns the promos visible to the caller. Admins see all;
// other callers get a view scoped to their own promos (never a 403).
func (h *Handler) ListPromos(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	promos, err := h.Engine.List(r.Context(), caller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list promos", err)
		return
	}

	dtos := make([]PromoDTO, len(promos))
	for i := range promos {
		dtos[i] = toPromoDTO(&promos[i], h.recipientName(r, promos[i].Recipient))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePromo issues a new promo. Admin only.
func (h *Handler) CreatePromo(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !promo.CanCreate(caller) {
		h.forbidden(w)
		return
	}

	var req CreatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	points, err := parseRawPoints(req.Points)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Points: please enter a valid number", nil)
		return
	}

	created, err := h.Engine.Create(r.Context(), req.Name, points, req.Recipient)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPromoDTO(created, h.recipientName(r, created.Recipient)))
}

// GetPromo returns the full promo record. Admin only.
func (h *Handler) GetPromo(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !promo.CanManage(caller) {
		h.forbidden(w)
		return
	}

	p, err := h.Engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPromoDTO(p, h.recipientName(r, p.Recipient)))
}

// UpdatePromo applies a partial update (name/points/recipient). Admin
// only. On success the cache entry {name, points} is written through by
// the engine.
func (h *Handler) UpdatePromo(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !promo.CanManage(caller) {
		h.forbidden(w)
		return
	}

	var req UpdatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch := promo.Patch{Name: req.Name, Recipient: req.Recipient}
	if len(req.Points) > 0 {
		points, err := parseRawPoints(req.Points)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Points: please enter a valid number", nil)
			return
		}
		patch.Points = &points
	}

	updated, err := h.Engine.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPromoDTO(updated, h.recipientName(r, updated.Recipient)))
}

// DeletePromo permanently removes a promo and purges its cache entry.
// Admin only.
func (h *Handler) DeletePromo(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !promo.CanManage(caller) {
		h.forbidden(w)
		return
	}

	if err := h.Engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// RemainingPoints returns the derived balance of a promo. Owner or
// admin. Always served from the store, never the cache.
func (h *Handler) RemainingPoints(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	p, err := h.Engine.Remaining(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if !promo.CanViewBalance(caller, p) {
		h.forbidden(w)
		return
	}

	writeJSON(w, http.StatusOK, RemainingPointsDTO{
		PromoName:       p.Name,
		RemainingPoints: p.Remaining().InexactFloat64(),
	})
}

// ConsumePoints debits {amount} from the promo. Owner or admin. The
// authorization check runs before amount validation on purpose.
func (h *Handler) ConsumePoints(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	id := chi.URLParam(r, "id")

	p, err := h.Engine.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if !promo.CanViewBalance(caller, p) {
		h.forbidden(w)
		return
	}

	amount, err := promo.ParsePoints(chi.URLParam(r, "amount"))
	if err != nil {
		consumeAttempts.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "Amount: please enter a valid number", nil)
		return
	}

	receipt, err := h.Engine.Consume(r.Context(), id, amount)
	if err != nil {
		var ibe *promo.InsufficientBalanceError
		if errors.As(err, &ibe) {
			consumeAttempts.WithLabelValues("insufficient").Inc()
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("You do NOT have enough points. You have only %s points left.", ibe.Remaining),
				nil)
			return
		}
		consumeAttempts.WithLabelValues("error").Inc()
		h.writeDomainError(w, err)
		return
	}

	consumeAttempts.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, ConsumeResponseDTO{
		Msg:             fmt.Sprintf("%s points deducted from %s successfully.", receipt.Deducted, receipt.PromoName),
		RemainingPoints: receipt.Remaining.InexactFloat64(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) forbidden(w http.ResponseWriter) {
	authDenials.Inc()
	writeError(w, http.StatusForbidden, "You do not have permission to perform this action", nil)
}

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case promo.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Promo not found", nil)
	case errors.Is(err, promo.ErrForbidden):
		h.forbidden(w)
	case promo.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// recipientName resolves the display name for the promo recipient,
// falling back to the raw id when the user record is gone.
func (h *Handler) recipientName(r *http.Request, userID string) string {
	u, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		return userID
	}
	return u.Username
}

// parseRawPoints parses the points field of create/update bodies. Both
// JSON numbers and numeric strings are accepted; anything else fails.
func parseRawPoints(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, promo.ErrInvalidAmount
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return promo.ParsePoints(s)
}

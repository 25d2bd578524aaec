/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:
  Populates a fresh database with two non-admin users and a promo for
  each, so the full API surface can be exercised immediately. The
  response includes the generated bearer tokens.

USAGE VIA API:
  POST /api/v1/admin/seed        (admin only)

NOTE:
  Users and promos are created with fresh UUID tokens/ids on every call;
  calling it twice simply issues a second batch. Only use in
  development/demo environments.

SEE ALSO:
  - handlers.go: The regular handlers
  - cmd/server/main.go: Bootstrap admin account
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// SeedDemo creates demo users and promos. Admin only.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if !promo.CanCreate(caller) {
		h.forbidden(w)
		return
	}

	ctx := r.Context()
	resp := SeedResponseDTO{}

	demo := []struct {
		username string
		promo    string
		points   float64
	}{
		{"alice", "Spring Bonus", 20},
		{"bob", "Referral Reward", 50},
	}

	for i, d := range demo {
		u := promo.User{
			ID:       uuid.NewString(),
			Username: fmt.Sprintf("%s-%s", d.username, uuid.NewString()[:8]),
			Token:    uuid.NewString(),
		}
		if err := h.Users.SaveUser(ctx, u); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed users", err)
			return
		}
		resp.Users = append(resp.Users, SeedUserDTO{
			ID:       u.ID,
			Username: u.Username,
			Token:    u.Token,
		})

		p, err := h.Engine.Create(ctx, fmt.Sprintf("%s %d", d.promo, i+1), decimal.NewFromFloat(d.points), u.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed promos", err)
			return
		}
		resp.Promos = append(resp.Promos, toPromoDTO(p, u.Username))
	}

	writeJSON(w, http.StatusCreated, resp)
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMAT NOTES:
  - Point amounts are plain JSON numbers on the wire (internal math uses
    decimal). Create/update accept points as a number or numeric string;
    anything unparseable is a validation error.
  - "Recipient name" and "Remaining points" keep their display-style keys:
    they are part of the published contract.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PromoDTO represents a promo in API responses. points_used stays
// internal; clients read balances through the points endpoint.
type PromoDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Points        float64 `json:"points"`
	Recipient     string  `json:"recipient"`
	RecipientName string  `json:"Recipient name"`
}

// CreatePromoRequest is the request to issue a promo. Points is raw so
// both 20 and "20" are accepted while "abc" maps to InvalidAmount.
type CreatePromoRequest struct {
	Name      string          `json:"name"`
	Points    json.RawMessage `json:"points"`
	Recipient string          `json:"recipient"`
}

// UpdatePromoRequest is the partial admin update. Absent fields are
// left untouched; points_used is not settable through this path.
type UpdatePromoRequest struct {
	Name      *string         `json:"name"`
	Points    json.RawMessage `json:"points"`
	Recipient *string         `json:"recipient"`
}

// RemainingPointsDTO is the balance read for owner-or-admin callers.
type RemainingPointsDTO struct {
	PromoName       string  `json:"Promo name"`
	RemainingPoints float64 `json:"Remaining points"`
}

// ConsumeResponseDTO confirms a successful debit.
type ConsumeResponseDTO struct {
	Msg             string  `json:"msg"`
	RemainingPoints float64 `json:"Remaining points"`
}

// SeedResponseDTO reports the demo accounts and promos created.
type SeedResponseDTO struct {
	Users  []SeedUserDTO `json:"users"`
	Promos []PromoDTO    `json:"promos"`
}

type SeedUserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Admin    bool   `json:"admin"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toPromoDTO(p *promo.Promo, recipientName string) PromoDTO {
	return PromoDTO{
		ID:            p.ID,
		Name:          p.Name,
		Points:        p.Points.InexactFloat64(),
		Recipient:     p.Recipient,
		RecipientName: recipientName,
	}
}

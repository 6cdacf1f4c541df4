package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/soundforms/atelier-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   enums.StaffRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to workshop staff.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Name   string          `json:"name,omitempty"`
	Role   enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

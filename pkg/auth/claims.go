package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkasimov/beat808-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Identity itself is issued by the external auth provider; this service
// only needs the marketplace role and display identity.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT accepted by the API.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

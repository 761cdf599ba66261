package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role allowed on /admin routes.
const RoleAdmin = "admin"

// AccessTokenPayload captures the data available when minting an admin JWT.
type AccessTokenPayload struct {
	ActorID string
	Email   string
	Role    string
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by admin dashboard users.
type AccessTokenClaims struct {
	ActorID string `json:"actor_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

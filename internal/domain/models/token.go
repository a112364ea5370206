package models

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// Claims are the JWT claims the identity layer trusts: the subject is the party id
// and Role tells riders and drivers apart.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the caller the claims name.
func (c *Claims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject %q", c.Subject)
	}
	role := types.UserRole(c.Role)
	if !role.Valid() {
		return Identity{}, fmt.Errorf("unknown role %q", c.Role)
	}
	return Identity{ID: id, Role: role}, nil
}

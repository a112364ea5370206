package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

// TokenValidator turns a bearer token into the caller's identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (models.Identity, error)
}

// Middleware holds the collaborators shared by the request chain built in
// server.Handler: Recover, RequestID, Metrics, Logging, Auth, RequireRoles.
type Middleware struct {
	auth TokenValidator
	log  logger.Logger
}

func NewMiddleware(auth TokenValidator, log logger.Logger) *Middleware {
	return &Middleware{auth: auth, log: log.With("component", "http")}
}

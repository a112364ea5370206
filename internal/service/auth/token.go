package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const issuer = "ride-dispatch"

// TokenService signs and verifies HS256 access tokens. The subject is the party id
// and the role claim tells riders and drivers apart.
type TokenService struct {
	secret    []byte
	AccessTTL time.Duration
	log       logger.Logger
}

func NewTokenService(secret string, accessTTL time.Duration, log logger.Logger) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		AccessTTL: accessTTL,
		log:       log,
	}
}

// Generate issues an access token for the identity.
func (s *TokenService) Generate(ctx context.Context, id models.Identity) (string, time.Time, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, id.ID.String()), "generate_token")

	if id.ID == uuid.Nil || !id.Role.Valid() {
		return "", time.Time{}, wrap.Error(ctx, fmt.Errorf("%w: identity without id or role", types.ErrTokenNotIssued))
	}

	issuedAt := time.Now().UTC()
	exp := issuedAt.Add(s.AccessTTL)
	claims := models.Claims{
		Role: id.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrTokenNotIssued, err))
	}
	return token, exp, nil
}

// Validate validates the given JWT token string and returns the caller it names.
func (s *TokenService) Validate(ctx context.Context, token string) (models.Identity, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	claims := &models.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, wrap.Error(ctx, types.ErrTokenExpired)
		}
		return models.Identity{}, wrap.Error(ctx, types.ErrTokenInvalid)
	}
	if !parsed.Valid {
		return models.Identity{}, wrap.Error(ctx, types.ErrTokenInvalid)
	}

	who, err := claims.Identity()
	if err != nil {
		return models.Identity{}, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrTokenInvalid, err))
	}
	return who, nil
}

package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

func newService(ttl time.Duration) *TokenService {
	return NewTokenService("test-secret", ttl, logger.New(io.Discard, "test", logger.LevelDebug))
}

func TestGenerateValidate(t *testing.T) {
	s := newService(time.Hour)
	ctx := context.Background()
	want := models.Identity{ID: uuid.New(), Role: types.RoleDriver}

	token, exp, err := s.Generate(ctx, want)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	got, err := s.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestValidateRejects(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Hour)
	id := models.Identity{ID: uuid.New(), Role: types.RoleRider}

	expired, _, err := newService(-time.Minute).Generate(ctx, id)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := s.Validate(ctx, expired); !errors.Is(err, types.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	foreign, _, _ := NewTokenService("other-secret", time.Hour, logger.New(io.Discard, "test", logger.LevelDebug)).Generate(ctx, id)
	if _, err := s.Validate(ctx, foreign); !errors.Is(err, types.ErrTokenInvalid) {
		t.Fatalf("wrong key: expected ErrTokenInvalid, got %v", err)
	}

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	if _, err := s.Validate(ctx, badRole); !errors.Is(err, types.ErrTokenInvalid) {
		t.Fatalf("unknown role: expected ErrTokenInvalid, got %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, models.Claims{Role: "rider"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.Validate(ctx, none); !errors.Is(err, types.ErrTokenInvalid) {
		t.Fatalf("unsigned: expected ErrTokenInvalid, got %v", err)
	}

	if _, err := s.Validate(ctx, "garbage"); !errors.Is(err, types.ErrTokenInvalid) {
		t.Fatalf("garbage: expected ErrTokenInvalid, got %v", err)
	}

	if _, _, err := s.Generate(ctx, models.Identity{}); !errors.Is(err, types.ErrTokenNotIssued) {
		t.Fatalf("empty identity: expected ErrTokenNotIssued, got %v", err)
	}
}

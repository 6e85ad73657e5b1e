package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

var ErrInvalidToken = errors.New("invalid token")

// Whitelist stores the token values a user may still present.
type Whitelist interface {
	// Replace drops every record of scope for the user and stores rec.
	Replace(ctx context.Context, userID, scope string, rec entity.TokenRecord) error
	Delete(ctx context.Context, userID, value string) error
	Exists(ctx context.Context, userID, scope, value string) (bool, error)
}

type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Service signs, verifies and whitelists auth tokens.
type Service struct {
	cfg   Config
	store Whitelist
	now   func() time.Time
}

func NewService(cfg Config, store Whitelist) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 720 * time.Hour
	}
	return &Service{cfg: cfg, store: store, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// Sign creates a token for u without touching the whitelist.
func (s *Service) Sign(u *entity.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TTL)
	claims := Claims{
		Access:           entity.ScopeAuth,
		Role:             string(u.Role),
		AccountCompleted: u.AccountCompleted,
		Status:           string(u.Status),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Issue signs a new token and makes it the only whitelisted auth token of u.
func (s *Service) Issue(ctx context.Context, u *entity.User) (string, error) {
	signed, exp, err := s.Sign(u)
	if err != nil {
		return "", err
	}
	rec := entity.TokenRecord{Scope: entity.ScopeAuth, Value: signed, ExpiresAt: exp}
	if err := s.store.Replace(ctx, u.ID, entity.ScopeAuth, rec); err != nil {
		return "", fmt.Errorf("whitelist token: %w", err)
	}
	u.Tokens = []entity.TokenRecord{rec}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Every failure is reported
// as ErrInvalidToken.
func (s *Service) Verify(value string) (*Claims, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Access != entity.ScopeAuth || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke removes value from the whitelist. Removing an unknown value is not an error.
func (s *Service) Revoke(ctx context.Context, userID, value string) error {
	if err := s.store.Delete(ctx, userID, value); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Service) Whitelisted(ctx context.Context, userID, scope, value string) (bool, error) {
	return s.store.Exists(ctx, userID, scope, value)
}

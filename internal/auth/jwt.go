// Package auth extracts identity claims for connecting principals.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stride-hr/presence-gateway/internal/model"
)

var (
	// ErrAuthDisabled is returned when no signing secret is configured.
	ErrAuthDisabled = errors.New("token auth is not configured")

	// ErrInvalidToken is returned when a token fails parsing or validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT claim set carried by connecting clients. The subject is
// the user id; the remaining fields mirror the HR identity attributes.
type Claims struct {
	EmployeeID     string   `json:"employeeId,omitempty"`
	BranchID       string   `json:"branchId,omitempty"`
	OrganizationID string   `json:"organizationId,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService handles token signing and verification.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

// NewTokenService builds a token helper with the given secret and expiry.
func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry}
}

// Enabled reports whether a signing secret is configured.
func (s *TokenService) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Generate issues a signed token for the given identity.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	if err := id.Validate(); err != nil {
		return "", err
	}

	claims := Claims{
		EmployeeID:     id.EmployeeID,
		BranchID:       id.BranchID,
		OrganizationID: id.OrganizationID,
		Roles:          id.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	if s.expiry <= 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses a token and returns the identity embedded in it.
func (s *TokenService) Validate(token string) (model.Identity, error) {
	if !s.Enabled() {
		return model.Identity{}, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{
		UserID:         claims.Subject,
		EmployeeID:     claims.EmployeeID,
		BranchID:       claims.BranchID,
		OrganizationID: claims.OrganizationID,
		Roles:          claims.Roles,
	}, nil
}

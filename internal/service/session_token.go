package service

import (
	"fmt"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// parseClaims reads sub and exp from a JWT access token without verifying
// its signature. The signing key lives on the backend; the client only uses
// the claims to skip a round-trip for tokens that are already expired.
func parseClaims(token string) (*domain.TokenClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	out := &domain.TokenClaims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

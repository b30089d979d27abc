package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when there is nothing to inspect.
var ErrNoToken = errors.New("no token")

// Claims represents the WireChat token claims the client cares about.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
	jwt.RegisteredClaims
}

// TokenInfo is what the client learns from a token without verifying it.
type TokenInfo struct {
	UserID    int64
	Username  string
	IsGuest   bool
	ExpiresAt *time.Time
}

// Expired reports whether the token is past its expiry at now.
func (i *TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Inspect decodes a token's claims without checking the signature. The
// server verifies the token on join; the client only uses the claims to
// default the username and to warn about expiry.
func Inspect(tokenString string) (*TokenInfo, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &TokenInfo{
		UserID:   claims.UserID,
		Username: claims.Username,
		IsGuest:  claims.IsGuest,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, nil
}

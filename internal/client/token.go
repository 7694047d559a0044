package client

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// TokenExpiry returns the exp claim of a JWT without verifying its signature.
// Opaque tokens and tokens without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// checkToken warns once per client when the catalogue token has expired.
func (c *Client) checkToken() {
	c.tokenCheck.Do(func() {
		exp, ok := TokenExpiry(c.token)
		if ok && time.Now().After(exp) {
			c.log.Warn("catalogue token has expired; catalogue calls will likely return 401",
				zap.Time("expired_at", exp))
		}
	})
}

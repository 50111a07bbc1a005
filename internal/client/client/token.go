package client

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type accessTokenKey struct{}

// WithAccessToken returns a context whose requests carry token instead of the
// one held by the client's TokenStore.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}

// expirySkew refreshes slightly early so the token does not lapse in flight.
const expirySkew = 10 * time.Second

// tokenExpired reports whether a JWT access token is past its exp claim.
// The signature is not checked; that is the backend's job. Opaque (non-JWT)
// tokens and tokens without exp are treated as valid.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(expirySkew).Before(exp.Time)
}

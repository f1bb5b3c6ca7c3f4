// Package auth contains principal extraction for owner-facing endpoints.
// Token issuance belongs to the external auth service, only verification
// happens here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken ...
var ErrInvalidToken = errors.New("invalid token")

type ctxKey struct{}

// Verifier maps a bearer token to a user id.
type Verifier interface {
	Verify(token string) (int64, error)
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a Verifier which expects HS256 tokens with the user id in `sub`.
func NewJWTVerifier(secret []byte) Verifier {
	return jwtVerifier{secret: secret}
}

func (v jwtVerifier) Verify(token string) (int64, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return v.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ErrInvalidToken)
	}

	return id, nil
}

// Middleware requires a valid bearer token and puts the owner id into the request context.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := FromRequest(v, r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), id)))
		})
	}
}

// FromRequest extracts and verifies the bearer token of the request.
func FromRequest(v Verifier, r *http.Request) (int64, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return 0, fmt.Errorf("%w: no bearer token", ErrInvalidToken)
	}

	return v.Verify(strings.TrimPrefix(h, "Bearer "))
}

// WithOwnerID ...
func WithOwnerID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// OwnerID returns the owner id put into ctx by Middleware.
func OwnerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

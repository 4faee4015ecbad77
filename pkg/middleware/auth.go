package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/willrp/willstores-ws/pkg/errors"
	"github.com/willrp/willstores-ws/pkg/httputil"
)

// Reasons reported to the caller when a request is rejected.
var (
	ErrInvalidToken = errors.New("Invalid token")
	ErrUnauthorized = errors.New("Unauthorized")
)

// TokenValidator checks an Authorization header value and returns the reason
// it was rejected, or nil when the request may proceed.
type TokenValidator func(header string) error

// StaticToken returns a validator that accepts exactly "Bearer <token>".
// A missing header is unauthorized. Another scheme, or a scheme with no
// credential part, is an invalid token. Any credential other than token is
// unauthorized.
func StaticToken(token string) TokenValidator {
	return func(header string) error {
		if header == "" {
			return ErrUnauthorized
		}
		scheme, credential, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" {
			return ErrInvalidToken
		}
		if subtle.ConstantTimeCompare([]byte(credential), []byte(token)) != 1 {
			return ErrUnauthorized
		}
		return nil
	}
}

// Auth rejects requests whose Authorization header fails validate with a 401
// before they reach the handler.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validate(r.Header.Get("Authorization")); err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized(err.Error()), slog.Default())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

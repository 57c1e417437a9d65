package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/fitrecs/internal/models"
)

type contextKey string

const userIDContextKey contextKey = "userID"

// ErrInvalidCredential is returned for a bearer credential that is present
// but cannot be verified.
var ErrInvalidCredential = errors.New("middleware: invalid credential")

// Authenticator resolves a bearer credential to a user id. Two credential
// kinds are accepted: HS256 JWTs issued by the hosted auth backend (user id
// in "sub") and API tokens created by this service.
type Authenticator struct {
	JWTSecret []byte
	DB        *sqlx.DB
	Hasher    *models.TokenHasher
	Log       logrus.FieldLogger
}

func (a *Authenticator) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Identify returns the user id carried by r. An absent credential yields
// ("", nil). A JWT without a subject, such as an anonymous client key, is
// treated as absent.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrInvalidCredential
	}
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, models.APITokenPrefix) {
		if a.DB == nil || a.Hasher == nil {
			return "", ErrInvalidCredential
		}
		tok, err := models.AuthenticateAPIToken(a.DB, a.Hasher, raw)
		if errors.Is(err, models.ErrNotFound) {
			return "", ErrInvalidCredential
		}
		if err != nil {
			return "", err
		}
		return tok.UserID, nil
	}

	return a.parseJWT(raw)
}

func (a *Authenticator) parseJWT(raw string) (string, error) {
	if len(a.JWTSecret) == 0 {
		return "", ErrInvalidCredential
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	return claims.Subject, nil
}

// RequireAuth rejects requests without a valid user credential with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Identify(r)
		if err != nil && !errors.Is(err, ErrInvalidCredential) {
			a.logger().WithError(err).Error("authenticate request")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "You must be logged in")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// OptionalAuth attaches the user id when a valid credential is presented
// and lets anonymous requests through. A credential that fails verification
// is still rejected.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Identify(r)
		switch {
		case errors.Is(err, ErrInvalidCredential):
			writeError(w, http.StatusUnauthorized, "Invalid authorization credential")
			return
		case err != nil:
			a.logger().WithError(err).Error("authenticate request")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext retrieves the authenticated user id from the request
// context. Returns "" if none is set.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}

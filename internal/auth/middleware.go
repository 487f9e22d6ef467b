package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"it-inventory-api/internal/models"
)

const (
	maxTokenLength = 8 << 10
	expiryWarning  = time.Hour
)

// UserLookup loads the token's user as currently stored. A deactivated
// account is locked out and a changed role takes effect before the token
// expires.
type UserLookup func(ctx context.Context, userID int64) (models.User, error)

type authFailure struct {
	message string
	code    string
}

func (f authFailure) send(w http.ResponseWriter) {
	SendErrorResponse(w, f.message, f.code, http.StatusUnauthorized)
}

var (
	errMissingHeader = authFailure{"Authorization header required", "MISSING_AUTH_HEADER"}
	errBadScheme     = authFailure{"Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT"}
	errMissingToken  = authFailure{"Token is required", "MISSING_TOKEN"}
	errOversized     = authFailure{"Token size exceeds maximum allowed", "INVALID_TOKEN_FORMAT"}
	errInactive      = authFailure{"User account is inactive", "INACTIVE_USER"}
)

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(r *http.Request) (string, *authFailure) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", &errBadScheme
	}
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "", &errMissingToken
	case len(token) > maxTokenLength:
		return "", &errOversized
	}
	return token, nil
}

// classifyTokenError maps a jwt validation error onto a client-facing failure
func classifyTokenError(err error) authFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return authFailure{"Token has expired", "TOKEN_EXPIRED"}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return authFailure{"Token is malformed", "MALFORMED_TOKEN"}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return authFailure{"Invalid token signature", "INVALID_SIGNATURE"}
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return authFailure{"Token was not issued for this service", "INVALID_TOKEN"}
	}
	return authFailure{"Invalid or expired token", "INVALID_TOKEN"}
}

// AuthMiddleware verifies the bearer token, checks the user is still active
// and stores the claims on the request context. With a lookup the stored
// role replaces the one signed into the token.
func AuthMiddleware(jwtManager *JWTManager, lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, failure := bearerToken(r)
			if failure != nil {
				failure.send(w)
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				classifyTokenError(err).send(w)
				return
			}
			if claims.UserID <= 0 || !models.IsValidRole(claims.Role) {
				authFailure{"Token carries no valid user or role", "INVALID_CLAIMS"}.send(w)
				return
			}

			if lookup != nil {
				u, err := lookup(r.Context(), claims.UserID)
				if err != nil || !u.IsActive {
					errInactive.send(w)
					return
				}
				if !models.IsValidRole(u.Role) {
					authFailure{"User account has no valid role", "INVALID_CLAIMS"}.send(w)
					return
				}
				current := *claims
				current.Role = u.Role
				current.Username = u.Username
				claims = &current
			}

			if claims.IsExpiringSoon(expiryWarning) {
				w.Header().Set("X-Token-Expires-At", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

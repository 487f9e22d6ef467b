package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it-inventory-api/internal/models"
)

const testSecret = "test-secret-key-that-is-long-enough-for-testing"

func newTestManager() *JWTManager {
	return NewJWTManager(testSecret, "test-issuer", "test-audience", time.Hour)
}

func mustToken(t *testing.T, m *JWTManager, userID int64, role models.Role) string {
	t.Helper()
	token, _, err := m.GenerateToken(userID, "jdoe", role)
	require.NoError(t, err)
	return token
}

func TestJWTManager_ValidateConfig(t *testing.T) {
	const secret = "valid-secret-that-is-long-enough-for-testing"
	tests := []struct {
		name     string
		secret   string
		issuer   string
		audience string
		expiry   time.Duration
		wantErr  bool
	}{
		{"valid config", secret, "test-issuer", "test-audience", time.Hour, false},
		{"empty secret", "", "test-issuer", "test-audience", time.Hour, true},
		{"secret too short", "short", "test-issuer", "test-audience", time.Hour, true},
		{"empty issuer", secret, "", "test-audience", time.Hour, true},
		{"empty audience", secret, "test-issuer", "", time.Hour, true},
		{"negative expiry", secret, "test-issuer", "test-audience", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewJWTManager(tt.secret, tt.issuer, tt.audience, tt.expiry).ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJWTManager_GenerateToken(t *testing.T) {
	manager := newTestManager()

	tests := []struct {
		name    string
		userID  int64
		role    models.Role
		wantErr bool
	}{
		{"admin", 1, models.RoleAdmin, false},
		{"technician", 2, models.RoleTechnician, false},
		{"invalid user ID", 0, models.RoleAdmin, true},
		{"unknown role", 1, models.Role("superuser"), true},
		{"empty role", 1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiresAt, err := manager.GenerateToken(tt.userID, "jdoe", tt.role)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	manager := newTestManager()
	valid := mustToken(t, manager, 1, models.RoleAdmin)

	claims, err := manager.ValidateToken(valid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "1", claims.Subject)

	rejected := map[string]string{
		"empty":          "",
		"malformed":      "invalid.token",
		"wrong secret":   mustToken(t, NewJWTManager(strings.Repeat("x", 40), "test-issuer", "test-audience", time.Hour), 1, models.RoleAdmin),
		"wrong audience": mustToken(t, NewJWTManager(testSecret, "test-issuer", "someone-else", time.Hour), 1, models.RoleAdmin),
		"expired":        mustToken(t, NewJWTManager(testSecret, "test-issuer", "test-audience", -time.Minute), 1, models.RoleAdmin),
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := manager.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestClaims_IsExpiringSoon(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt *jwt.NumericDate
		want      bool
	}{
		{"expires soon", jwt.NewNumericDate(now.Add(30 * time.Minute)), true},
		{"expires later", jwt.NewNumericDate(now.Add(2 * time.Hour)), false},
		{"already expired", jwt.NewNumericDate(now.Add(-time.Hour)), true},
		{"no expiry", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: tt.expiresAt}}
			assert.Equal(t, tt.want, claims.IsExpiringSoon(time.Hour))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ClaimsFromContext(ctx))
	assert.Zero(t, UserIDFromContext(ctx))
	assert.Empty(t, RoleFromContext(ctx))

	claims := &Claims{UserID: 123, Role: models.RoleViewer}
	ctx = WithClaims(ctx, claims)
	assert.Same(t, claims, ClaimsFromContext(ctx))
	assert.Equal(t, int64(123), UserIDFromContext(ctx))
	assert.Equal(t, models.RoleViewer, RoleFromContext(ctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	manager := newTestManager()
	other := NewJWTManager(strings.Repeat("y", 40), "test-issuer", "test-audience", time.Hour)
	expired := NewJWTManager(testSecret, "test-issuer", "test-audience", -time.Minute)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "INVALID_AUTH_FORMAT"},
		{"scheme only", "Bearer", "INVALID_AUTH_FORMAT"},
		{"blank token", "Bearer    ", "MISSING_TOKEN"},
		{"oversized", "Bearer " + strings.Repeat("a", maxTokenLength+1), "INVALID_TOKEN_FORMAT"},
		{"malformed", "Bearer header.payload.signature", "MALFORMED_TOKEN"},
		{"wrong secret", "Bearer " + mustToken(t, other, 1, models.RoleAdmin), "INVALID_SIGNATURE"},
		{"expired", "Bearer " + mustToken(t, expired, 1, models.RoleAdmin), "TOKEN_EXPIRED"},
	}

	handler := AuthMiddleware(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run when authentication fails")
	}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	manager := newTestManager()
	token := mustToken(t, manager, 1, models.RoleAdmin)

	var called bool
	handler := AuthMiddleware(manager, func(ctx context.Context, id int64) (models.User, error) {
		assert.Equal(t, int64(1), id)
		return models.User{ID: id, Username: "jdoe", Role: models.RoleAdmin, IsActive: true}, nil
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, int64(1), UserIDFromContext(r.Context()))
		assert.Equal(t, models.RoleAdmin, RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	// One-hour tokens are always inside the warning window.
	assert.NotEmpty(t, w.Header().Get("X-Token-Expires-At"))
}

func TestAuthMiddleware_InactiveUser(t *testing.T) {
	manager := newTestManager()
	token := mustToken(t, manager, 5, models.RoleTechnician)

	lookups := map[string]UserLookup{
		"inactive": func(ctx context.Context, id int64) (models.User, error) {
			return models.User{ID: id, Role: models.RoleTechnician}, nil
		},
		"error": func(ctx context.Context, id int64) (models.User, error) { return models.User{}, errors.New("not found") },
	}
	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			handler := AuthMiddleware(manager, lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run for an inactive user")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INACTIVE_USER", decodeError(t, w).Code)
		})
	}
}

func TestAuthMiddleware_UsesStoredRole(t *testing.T) {
	manager := newTestManager()
	token := mustToken(t, manager, 7, models.RoleAdmin)

	stored := models.User{ID: 7, Username: "jdoe", Role: models.RoleViewer, IsActive: true}
	var claims *Claims
	handler := AuthMiddleware(manager, func(ctx context.Context, id int64) (models.User, error) {
		return stored, nil
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, models.RoleViewer, claims.Role)
	assert.False(t, Can(claims.Role, CapManageUsers))

	stored.Role = "superuser"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CLAIMS", decodeError(t, w).Code)
}

func TestSendErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	SendErrorResponse(w, "Test error", "TEST_ERROR", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, ErrorResponse{Error: "Test error", Code: "TEST_ERROR"}, decodeError(t, w))
}

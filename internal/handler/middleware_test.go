package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, role string, subject uuid.UUID) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject.String(),
		},
	})

	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	var gotActor uuid.UUID
	var actorOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, actorOK = actorID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := Authenticate(testSecret)(next)

	t.Run("valid token passes claims through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/loans", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "officer", userID))
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, actorOK)
		assert.Equal(t, userID, gotActor)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/loans", nil)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "admin"})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/loans", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	userID := uuid.New()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminOnly := Authenticate(testSecret)(RequireRole("admin")(next))

	t.Run("admin allowed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/loans/x/approve", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "admin", userID))
		rec := httptest.NewRecorder()

		adminOnly.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("officer forbidden", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/loans/x/approve", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, "officer", userID))
		rec := httptest.NewRecorder()

		adminOnly.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

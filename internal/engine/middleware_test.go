package engine

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/infra/auth"
	"go.uber.org/zap"
)

func signToken(t *testing.T, key *rsa.PrivateKey, scopes map[string]bool) string {
	t.Helper()
	claims := domain.SensorClaims{
		SensorID: "sensor-7",
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func authRequest(t *testing.T, validator auth.TokenValidator, header string) *httptest.ResponseRecorder {
	t.Helper()
	passed := false
	h := AuthMiddleware(validator, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passed = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code == http.StatusOK {
		assert.True(t, passed)
	} else {
		assert.False(t, passed)
	}
	return rr
}

func TestAuthMiddlewareVerifiesTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	validator := auth.NewBaseValidator(&key.PublicKey)
	writeScope := map[string]bool{"events:write": true}

	t.Run("valid token with scope passes", func(t *testing.T) {
		rr := authRequest(t, validator, "Bearer "+signToken(t, key, writeScope))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		rr := authRequest(t, validator, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "missing bearer token")
	})

	t.Run("foreign signature rejected", func(t *testing.T) {
		// Токен подписан не нашим ключом
		rr := authRequest(t, validator, "Bearer "+signToken(t, otherKey, writeScope))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid token")
	})

	t.Run("scope other than events:write rejected", func(t *testing.T) {
		readOnly := map[string]bool{"forensics:read": true}
		rr := authRequest(t, validator, "Bearer "+signToken(t, key, readOnly))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "insufficient scope")
	})

	t.Run("nil validator passes everyone", func(t *testing.T) {
		rr := authRequest(t, nil, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

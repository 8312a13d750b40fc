package auth_test

import (
	"encoding/json"
	"estate-match/auth"
	"estate-match/errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterceptor(t *testing.T) {
	tokens := auth.NewTokenManager("test_secret_long_enough_for_hs256", time.Hour)
	var seenUserID string
	handler := auth.NewInterceptor(tokens).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = auth.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("should allow public routes without token", func(t *testing.T) {
		req := require.New(t)
		seenUserID = ""
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
		req.Equal(http.StatusNoContent, rec.Code)
		req.Empty(seenUserID)
	})

	t.Run("should reject protected routes without token", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
		req.Equal(http.StatusUnauthorized, rec.Code)
		req.Equal("application/json", rec.Header().Get("Content-Type"))
		var body map[string]string
		req.NoError(json.NewDecoder(rec.Body).Decode(&body))
		req.Equal(errors.ErrMissingToken.Error(), body["error"])
	})

	t.Run("should inject user id when token is valid", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.GenerateToken("user-123", []string{"agent"})
		req.NoError(err)

		r := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		req.Equal(http.StatusNoContent, rec.Code)
		req.Equal("user-123", seenUserID)
	})

	t.Run("should accept the token as query parameter", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.GenerateToken("user-456", nil)
		req.NoError(err)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?topic=x&token="+token, nil))

		req.Equal(http.StatusNoContent, rec.Code)
		req.Equal("user-456", seenUserID)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)
		other := auth.NewTokenManager("another_secret_long_enough_123456", time.Hour)
		token, err := other.GenerateToken("user-123", nil)
		req.NoError(err)

		r := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		req.Equal(http.StatusUnauthorized, rec.Code)
		var body map[string]string
		req.NoError(json.NewDecoder(rec.Body).Decode(&body))
		req.Equal(errors.ErrInvalidToken.Error(), body["error"])
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)
		expired := auth.NewTokenManager("test_secret_long_enough_for_hs256", -time.Minute)
		token, err := expired.GenerateToken("user-123", nil)
		req.NoError(err)

		_, err = tokens.ValidateToken(token)
		req.Error(err)
	})
}

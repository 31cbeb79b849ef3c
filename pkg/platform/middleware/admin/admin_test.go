package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireAdmin(testKey, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(authorization string) int {
		r := httptest.NewRequest(http.MethodPost, "/admin/orders/1/vat/collect", nil)
		if authorization != "" {
			r.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	t.Run("missing token is unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(""))
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := IssueToken(testKey, "manager@shop", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, do("Bearer "+token))
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := IssueToken(testKey, "manager@shop", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token))
	})

	t.Run("token signed with another key is unauthorized", func(t *testing.T) {
		token, err := IssueToken([]byte("other"), "manager@shop", jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token))
	})

	t.Run("token without shop manager role is forbidden", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role: "customer",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}).SignedString(testKey)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do("Bearer "+raw))
	})
}

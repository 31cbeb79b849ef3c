// Package admin guards back-office endpoints (manual order VAT collection,
// renewal copies) with short-lived HS256 bearer tokens.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/requestcontext"
)

const adminRole = "shop_manager"

// Claims carried by admin tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin rejects requests without a valid bearer token signed with
// signingKey and carrying the shop manager role.
func RequireAdmin(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := ParseToken(signingKey, bearerToken(r))
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "admin token rejected",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			if claims.Role != adminRole {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(signingKey []byte, raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("missing bearer token")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueToken signs an admin token. Used by tooling and tests.
func IssueToken(signingKey []byte, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: adminRole, RegisteredClaims: claims})
	return token.SignedString(signingKey)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

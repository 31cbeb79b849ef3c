package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/google/uuid"

	"euvat/pkg/requestcontext"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"
	CookieSession   = "storefront_session"
)

// ClientMetadata extracts client IP, User-Agent, storefront session and request
// ID from the request and adds them to the context for use by handlers and
// services. Forwarding headers are honoured only when the direct peer is in
// one of the trusted proxy prefixes.
func ClientMetadata(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r, trusted), r.Header.Get("User-Agent"))

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)
			ctx = requestcontext.WithRequestID(ctx, requestID)

			if sessionID := SessionIDFromRequest(r); sessionID != "" {
				ctx = requestcontext.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromRequest reads the storefront session from the header, falling
// back to the session cookie.
func SessionIDFromRequest(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(HeaderSessionID)); s != "" {
		return s
	}
	if c, err := r.Cookie(CookieSession); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ClientIPFromRequest returns the client address. The peer address is used
// unless the peer is a trusted proxy; then X-Forwarded-For is walked from the
// right and the first untrusted hop wins, with X-Real-IP as the fallback.
func ClientIPFromRequest(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteIP(r.RemoteAddr)
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

// remoteIP strips the port from RemoteAddr; IPv6 is "[::1]:port".
func remoteIP(addr string) string {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return strings.Trim(addr[:idx], "[]")
	}
	return addr
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

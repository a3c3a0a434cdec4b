package middleware

import (
	"net"
	"net/http"

	"github.com/mssola/useragent"

	"tempora/pkg/requestcontext"
)

// Metadata captures the caller's IP and a normalized user agent for audit
// enrichment. The raw User-Agent header is noisy; we keep browser/OS only.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				ip = host
			} else {
				ip = r.RemoteAddr
			}
		}
		ctx = requestcontext.WithClientIP(ctx, ip)

		if raw := r.Header.Get("User-Agent"); raw != "" {
			ua := useragent.New(raw)
			name, version := ua.Browser()
			normalized := name
			if version != "" {
				normalized += "/" + version
			}
			if os := ua.OS(); os != "" {
				normalized += " (" + os + ")"
			}
			ctx = requestcontext.WithUserAgent(ctx, normalized)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

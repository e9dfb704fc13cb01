package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AdminKeyHeader carries the admin API key
const AdminKeyHeader = "X-API-Key"

// RequestLogger logs one line per request with slog. The query string is never
// logged because it carries upload tokens.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Info("HTTP request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// TrustedRealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when the
// connecting peer is inside one of trustedCIDRs. Other peers keep their socket address, so a
// client cannot pick its own rate limit bucket. Invalid CIDRs are skipped.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	var trusted []*net.IPNet
	for _, c := range trustedCIDRs {
		if _, cidr, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			trusted = append(trusted, cidr)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isTrustedProxy(clientKey(r), trusted) {
				if ip := forwardedIP(r); ip != "" {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedIP returns the first address of X-Forwarded-For, falling back to X-Real-IP
func forwardedIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

func isTrustedProxy(ip string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range trusted {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}

// SecurityHeaders adds security-related HTTP headers to all responses.
// HSTS is only sent on TLS connections when requireHTTPS is set.
func SecurityHeaders(requireHTTPS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			// The upload page has an inline <style> block and one same-origin script
			h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:")

			if requireHTTPS && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminKey compares the SHA-256 of the X-API-Key header with keyDigest.
// An empty keyDigest lets every request through.
func RequireAdminKey(keyDigest string) func(http.Handler) http.Handler {
	want := []byte(strings.ToLower(keyDigest))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(AdminKeyHeader)
			sum := sha256.Sum256([]byte(key))
			got := []byte(hex.EncodeToString(sum[:]))

			if key == "" || subtle.ConstantTimeCompare(got, want) != 1 {
				slog.Warn("Admin request rejected", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

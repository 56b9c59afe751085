package middleware

import (
	"net/http"
	"strings"
)

// corsMethods covers every verb the API routes use.
const corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// corsHeaders lists the request headers the dashboard sends, including
// Last-Event-ID for SSE stream resumption.
const corsHeaders = "Accept, Authorization, Content-Type, Last-Event-ID"

// originLocalhost reports whether the origin points at localhost on any
// port. Localhost is always trusted so a dashboard dev server needs no
// configuration.
func originLocalhost(origin string) bool {
	rest, ok := strings.CutPrefix(origin, "http://")
	if !ok {
		rest, ok = strings.CutPrefix(origin, "https://")
	}
	if !ok {
		return false
	}
	host, _, _ := strings.Cut(rest, ":")
	return host == "localhost" || host == "127.0.0.1"
}

// CORS returns middleware granting cross-origin access to the configured
// dashboard origins. Origins come from the web configuration
// (WEB_ALLOWED_ORIGINS); localhost is trusted unconditionally. Requests
// from other origins still execute, they just get no CORS grant.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	grant := func(origin string) bool {
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		return originLocalhost(origin)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); grant(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", "3600")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware hardening every response. The API
// serves only JSON and SSE, so the CSP forbids loading anything.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

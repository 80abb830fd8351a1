package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers set on every API response.
type HeadersConfig struct {
	CSP               string
	HSTSMaxAge        int
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
	// NoStore disables caching of API responses that carry ledger data.
	NoStore bool
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:               "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		HSTSMaxAge:        31536000,
		FrameOptions:      "DENY",
		ReferrerPolicy:    "no-referrer",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
		NoStore:           true,
	}
}

// Headers returns middleware applying cfg. HSTS is only sent over TLS.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.CSP != "" {
				h.Set("Content-Security-Policy", cfg.CSP)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			}
			if cfg.NoStore {
				h.Set("Cache-Control", "no-store")
			}
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(cfg.HSTSMaxAge)+"; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

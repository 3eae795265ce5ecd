package server

import (
	"net/http"
	"strings"
)

const (
	defaultFrameAncestors     = "'none'"
	defaultFrameOptions       = "DENY"
	defaultReferrerPolicy     = "no-referrer"
	defaultPermissionsPolicy  = "camera=(), microphone=(), geolocation=(), autoplay=(self)"
	defaultContentTypeOptions = "nosniff"
)

// SecurityConfig controls the hardening headers attached to every response.
// The API serves JSON; playback assets live on the blob store's public
// endpoint, so the default policy locks scripts and frames down while leaving
// media and image loads open. Zero-valued fields fall back to these defaults.
type SecurityConfig struct {
	ContentSecurityPolicy string
	FrameAncestors        string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	ContentTypeOptions    string
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (cfg SecurityConfig) withDefaults() SecurityConfig {
	cfg.FrameAncestors = orDefault(cfg.FrameAncestors, defaultFrameAncestors)
	cfg.FrameOptions = orDefault(cfg.FrameOptions, defaultFrameOptions)
	cfg.ReferrerPolicy = orDefault(cfg.ReferrerPolicy, defaultReferrerPolicy)
	cfg.PermissionsPolicy = orDefault(cfg.PermissionsPolicy, defaultPermissionsPolicy)
	cfg.ContentTypeOptions = orDefault(cfg.ContentTypeOptions, defaultContentTypeOptions)
	if cfg.ContentSecurityPolicy == "" {
		cfg.ContentSecurityPolicy = defaultContentSecurityPolicy(cfg.FrameAncestors)
	}
	return cfg
}

func defaultContentSecurityPolicy(frameAncestors string) string {
	if frameAncestors == "" {
		frameAncestors = defaultFrameAncestors
	}
	directives := []string{
		"default-src 'none'",
		"connect-src 'self'",
		"img-src 'self' data: https:",
		"media-src 'self' https:",
		"base-uri 'none'",
		"frame-ancestors " + frameAncestors,
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

func securityHeadersMiddleware(cfg SecurityConfig, next http.Handler) http.Handler {
	effective := cfg.withDefaults()
	headers := map[string]string{
		"Content-Security-Policy": effective.ContentSecurityPolicy,
		"X-Frame-Options":         effective.FrameOptions,
		"X-Content-Type-Options":  effective.ContentTypeOptions,
		"Referrer-Policy":         effective.ReferrerPolicy,
		"Permissions-Policy":      effective.PermissionsPolicy,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, value := range headers {
			if value != "" {
				w.Header().Set(key, value)
			}
		}
		next.ServeHTTP(w, r)
	})
}

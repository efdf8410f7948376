package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the API key on mutating requests.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds the accepted API keys. An empty config disables auth.
type AuthConfig struct {
	keys [][]byte
}

// NewAuthConfigWithKeys creates an AuthConfig. Empty keys are ignored.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	var cfg AuthConfig
	for _, k := range keys {
		if k == "" {
			continue
		}
		cfg.keys = append(cfg.keys, []byte(k))
	}
	return cfg
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool { return len(c.keys) > 0 }

// Valid reports whether key matches a configured key.
func (c AuthConfig) Valid(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid API key on mutating methods.
// GET, HEAD and OPTIONS pass through.
func WriteProtect(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() || safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if !cfg.Valid(r.Header.Get(APIKeyHeader)) {
				WriteError(w, r, NewAuthenticationError("missing or invalid "+APIKeyHeader), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteProtectAuth is WriteProtect over a plain key list.
func WriteProtectAuth(keys []string) func(http.Handler) http.Handler {
	return WriteProtect(NewAuthConfigWithKeys(keys))
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

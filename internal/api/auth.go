package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"stolik/internal/config"
)

// HTTPAuth validates the API key header against the configured clients.
type HTTPAuth struct {
	cfg             config.APIConfig
	clientsByAPIKey map[string]config.APIClientKey
	limiter         *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	return &HTTPAuth{
		cfg:             cfg,
		clientsByAPIKey: m,
		limiter:         newRateLimiter(cfg),
	}
}

// Wrap guards a handler with authentication and rate limiting.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientName := clientKeyUnknown

		if a.cfg.Auth.Enabled {
			header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
			if header == "" {
				header = "x-api-key"
			}

			apiKey := strings.TrimSpace(r.Header.Get(header))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			client, ok := a.lookup(apiKey)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			clientName = client.Name
		}

		if !a.limiter.getLimiter(clientName).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

const clientKeyUnknown = "unknown"

// lookup finds the client for an api key with constant-time comparison.
func (a *HTTPAuth) lookup(apiKey string) (config.APIClientKey, bool) {
	for key, client := range a.clientsByAPIKey {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return client, true
		}
	}
	return config.APIClientKey{}, false
}

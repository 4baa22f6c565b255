package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	// Last-Event-ID lets browsers resume the partner event stream.
	corsRequestHeaders = []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID", "X-Request-Id"}
	corsExposedHeaders = []string{"Link", "Location", "Retry-After", "X-Request-Id"}
)

// CORS returns middleware for browser clients of the journal API. An empty
// origin list allows any origin. Credentials are never allowed since the ID
// token travels in the Authorization header.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: corsMethods,
		AllowedHeaders: corsRequestHeaders,
		ExposedHeaders: corsExposedHeaders,
		MaxAge:         300,
	})
}

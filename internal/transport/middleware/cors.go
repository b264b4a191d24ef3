package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS allows the configured origins. allowed is a comma separated list; "*"
// or an empty list allows every origin. Credentials stay disabled since
// clients send bearer tokens.
func CORS(allowed string) func(http.Handler) http.Handler {
	origins := []string{}
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", TraceHeader},
		ExposedHeaders:   []string{"X-Request-ID", TraceHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:8080", // local cart api
	"http://localhost:8081", // ticketing backend serving the web pages
}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ProfileHeader, requestIDHeader, IdempotencyHeader},
		ExposedHeaders:   []string{ProfileHeader, requestIDHeader, idempotencyReplayed},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// APICORS applies the admin-surface origin policy: the embedded app UI
// and local development.
func APICORS(appURL string) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if appURL != "" {
		origins = append(origins, appURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

// PixelCORS is wide open: the script and its event reports are fetched
// from arbitrary merchant storefronts.
func PixelCORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler
}

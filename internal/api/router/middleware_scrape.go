package router

import (
	"net/http"
	"strings"
)

const scrapeTokenHeader = "X-Scrape-Token"

// requireScrapeToken guards the metrics endpoint with a static token.
// When expected is empty, the middleware is a no-op.
func requireScrapeToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(scrapeTokenHeader))
			if token == "" {
				token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			}
			if token != expected {
				http.Error(w, "invalid scrape token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

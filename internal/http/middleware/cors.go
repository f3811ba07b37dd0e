package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	corsAllowedMethods = "GET, POST"
	corsAllowedHeaders = "Authorization, Content-Type, X-Request-Id"
)

// CORSPolicy describes which browser origins may call the gate API, such as
// clinic staff portals. An origin of "*" admits any caller.
type CORSPolicy struct {
	AllowedOrigins []string
	// MaxAge is how long a browser may cache a preflight answer.
	MaxAge time.Duration
}

func (p CORSPolicy) origins() (allowAny bool, allow map[string]struct{}) {
	allow = make(map[string]struct{}, len(p.AllowedOrigins))
	for _, origin := range p.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			allowAny = true
		default:
			allow[strings.ToLower(origin)] = struct{}{}
		}
	}
	return allowAny, allow
}

// CORS applies policy. Preflights are answered here: 204 for an allowed
// origin asking for GET or POST, 403 otherwise. Simple requests from other
// origins still reach the handler, without CORS headers.
func CORS(policy CORSPolicy) func(http.Handler) http.Handler {
	allowAny, allow := policy.origins()
	maxAge := strconv.Itoa(int(policy.MaxAge / time.Second))

	allowed := func(origin string) bool {
		if allowAny {
			return true
		}
		_, ok := allow[strings.ToLower(origin)]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")

			requested := r.Header.Get("Access-Control-Request-Method")
			if r.Method == http.MethodOptions && requested != "" {
				if !allowed(origin) || (requested != http.MethodGet && requested != http.MethodPost) {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				if policy.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id")
			}
			next.ServeHTTP(w, r)
		})
	}
}

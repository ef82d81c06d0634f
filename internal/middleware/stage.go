package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DefaultStages are the API Gateway stage names that may prefix a path.
var DefaultStages = []string{"dev", "staging", "prod"}

// StripStage removes a leading /{stage} segment so /prod/sprints routes the
// same as /sprints. It must run on the root router, before routing.
func StripStage(stages ...string) func(next http.Handler) http.Handler {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	prefixes := make([]string, len(stages))
	for i, s := range stages {
		prefixes[i] = "/" + strings.Trim(s, "/")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if path, ok := stripPrefix(r.URL.Path, prefixes); ok {
				r.URL.Path = path
				r.URL.RawPath = ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					rctx.RoutePath = path
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stripPrefix(path string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		if path == prefix {
			return "/", true
		}
		if strings.HasPrefix(path, prefix+"/") {
			return path[len(prefix):], true
		}
	}
	return path, false
}

package middleware

import (
	"net/http"
	"strings"
)

// CORSOptions описывает политику кросс-доменных запросов. Пустой список
// AllowedOrigins запрещает их целиком: отражать произвольный Origin на
// cookie-авторизованном API нельзя. Значение "*" разрешает любой origin,
// но тогда credentials не отдаются.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposeHeaders    []string
	AllowCredentials bool
}

func NewCORS(opts CORSOptions) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range opts.AllowedOrigins {
		switch trimmed := strings.TrimSpace(origin); trimmed {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[trimmed] = struct{}{}
		}
	}

	allowedMethods := strings.Join(orDefault(opts.AllowedMethods, []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}), ", ")
	allowedHeaders := strings.Join(orDefault(opts.AllowedHeaders, []string{"Authorization", "Content-Type"}), ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, listed := allowed[origin]

			if origin != "" && (listed || allowAll) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				// Wildcard и credentials несовместимы.
				if opts.AllowCredentials && listed {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			if exposeHeaders != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

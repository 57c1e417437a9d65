package middleware

import "net/http"

// CorsAllowHeaders are the request headers browser clients of the hosted
// backend send.
const CorsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// Cors allows every origin. Pre-flight requests are answered here with an
// empty 200 and never reach the handler.
func Cors() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", CorsAllowHeaders)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

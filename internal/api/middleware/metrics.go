package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver records one served HTTP request.
// metrics.Metrics satisfies it.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware reports every request to observer, labelled by the chi
// route pattern. Unmatched requests report an empty route.
func MetricsMiddleware(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observer.ObserveHTTPRequest(r.Method, routePattern(r), status, time.Since(started))
		})
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/mmynk/churchboard/internal/metrics"
)

// Metrics records request counts and latencies per route.
func Metrics(c *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			c.ObserveHTTP(r.Method, routeOf(r), rec.code(), time.Since(start))
		})
	}
}

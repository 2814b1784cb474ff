package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
)

// Metrics records request counts and latencies. Paths outside the known
// route set are grouped under "other" so scanners cannot explode label
// cardinality.
func Metrics(m *metrics.APIMetrics, routes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(ww, r)

			endpoint := r.URL.Path
			if !routes[endpoint] {
				endpoint = "other"
			}
			m.RecordRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(start))
		})
	}
}

package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// CORS builds the cross-origin policy for the delivery boundary. Browser
// producers attach the trace headers to requests and need to read them back
// from responses, so both names are allow-listed in each direction.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", tracectx.HeaderTrace, tracectx.HeaderBaggage},
		ExposedHeaders: []string{tracectx.HeaderTrace, tracectx.HeaderBaggage},
		MaxAge:         300,
	})
	return c.Handler
}

package middleware

import "net/http"

// Chain composes middleware into a single wrapper. The first middleware
// listed becomes the outermost handler, so it sees the request first and the
// response last.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicio/docflow/pkg/requestid"
)

// RequestID makes sure every request carries a correlation id: the
// inbound header wins, then chi's generated id, then a fresh one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = requestid.Generate()
		}

		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), id)))
	})
}

package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/quantaphp/http-endpoint/web/endpoint"
)

const (
	// RequestIDHeader is the header used to receive and return request IDs.
	RequestIDHeader = "X-Request-Id"
	// RequestIDAttribute is the request attribute the request ID is stored in.
	RequestIDAttribute = "request_id"
)

// RouteAttributes copies the variables of the matched route into the request
// attributes, so that endpoints can resolve them from their Input. It must be
// used on a gorilla/mux router, since route variables are only known after a
// route was matched.
func RouteAttributes() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vars := mux.Vars(r)
			if len(vars) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			attrs := make(map[string]any, len(vars))
			for k, v := range vars {
				attrs[k] = v
			}

			next.ServeHTTP(w, r.WithContext(endpoint.WithAttributes(r.Context(), attrs)))
		})
	}
}

// RequestID assigns an ID to each request, and returns it in the
// X-Request-Id response header. A valid UUID received in the same request
// header is reused.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(RequestIDHeader))
			if err != nil {
				id = uuid.New()
			}

			w.Header().Set(RequestIDHeader, id.String())
			next.ServeHTTP(w, endpoint.WithAttribute(r, RequestIDAttribute, id.String()))
		})
	}
}

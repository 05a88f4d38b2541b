package middleware

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware is a function that wraps an http.Handler to provide additional
// functionality such as logging, metrics, request attributes, etc.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with the given middlewares. The first middleware is the
// outermost one, so execution flows from left to right before reaching h.
// Items must be middleware functions of any of the supported types.
func Chain(h http.Handler, items ...any) http.Handler {
	mws := make([]Middleware, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case Middleware:
			mws = append(mws, v)
		case func(http.Handler) http.Handler:
			mws = append(mws, v)
		case mux.MiddlewareFunc:
			mws = append(mws, Middleware(v))
		default:
			panic(fmt.Sprintf("middleware.Chain accepts only middleware functions, got %T", item))
		}
	}

	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

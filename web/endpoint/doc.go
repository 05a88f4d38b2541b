// Package endpoint adapts plain functions to HTTP handlers. An endpoint
// function receives the request Input and a Responder, and returns any value.
// The value is mapped to a response by a small set of rules: nil is an empty
// response, false is a 404, strings are written as-is, responses are
// returned unchanged, and everything else is wrapped in a JSON envelope with
// static metadata.
//
// Request values are looked up by Input in the request attributes, the parsed
// body and the query string, in that order of precedence. Routers and
// middleware can set attributes with WithAttribute and WithAttributes.
package endpoint

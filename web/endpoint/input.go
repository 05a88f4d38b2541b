package endpoint

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/spf13/cast"
)

const (
	maxBodySize      = 1024 * 1024 // 1MiB
	maxMultipartSize = 32 << 20    // same as net/http's default
)

// Input provides access to the values of a request. Values are resolved from
// the request attributes first, then from the parsed body, and finally from
// the URL query parameters.
type Input struct {
	req *http.Request

	body       map[string]any
	bodyParsed bool
}

// NewInput returns a new Input for req.
func NewInput(req *http.Request) *Input {
	return &Input{req: req}
}

// Request returns the wrapped HTTP request.
func (in *Input) Request() *http.Request {
	return in.req
}

// Resolve returns the value of key. If key isn't found in any of the request
// value sources, the first value of def is returned, or a *NotFoundError if
// def is empty. An empty key resolves to the wrapped *http.Request.
func (in *Input) Resolve(key string, def ...any) (any, error) {
	if key == "" {
		return in.req, nil
	}

	if v, ok := in.lookup(key); ok {
		return v, nil
	}

	if len(def) > 0 {
		return def[0], nil
	}

	return nil, &NotFoundError{Key: key}
}

// Has reports whether key is set in any of the request value sources.
func (in *Input) Has(key string) bool {
	_, ok := in.lookup(key)
	return ok
}

// String resolves key and converts its value to a string.
func (in *Input) String(key string, def ...string) (string, error) {
	v, err := in.Resolve(key, anys(def)...)
	if err != nil {
		return "", err
	}
	return cast.ToStringE(first(v)) //nolint:wrapcheck // The cast errors are descriptive enough.
}

// Int resolves key and converts its value to an int.
func (in *Input) Int(key string, def ...int) (int, error) {
	v, err := in.Resolve(key, anys(def)...)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(first(v)) //nolint:wrapcheck // The cast errors are descriptive enough.
}

// Bool resolves key and converts its value to a bool.
func (in *Input) Bool(key string, def ...bool) (bool, error) {
	v, err := in.Resolve(key, anys(def)...)
	if err != nil {
		return false, err
	}
	return cast.ToBoolE(first(v)) //nolint:wrapcheck // The cast errors are descriptive enough.
}

func (in *Input) lookup(key string) (any, bool) {
	if v, ok := getAttributes(in.req.Context())[key]; ok {
		return v, true
	}

	if v, ok := in.parsedBody()[key]; ok {
		return v, true
	}

	if in.req.URL != nil {
		if vals, ok := in.req.URL.Query()[key]; ok {
			return flattenValues(vals), true
		}
	}

	return nil, false
}

// parsedBody returns the request body decoded into a map. Form bodies and JSON
// objects are supported. Any other body, or one that fails to be decoded, is
// treated as absent.
func (in *Input) parsedBody() map[string]any {
	if in.bodyParsed {
		return in.body
	}
	in.bodyParsed = true

	r := in.req
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil
	}

	switch mediaType {
	case "application/json":
		var body map[string]any
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
		dec.UseNumber()
		if err = dec.Decode(&body); err != nil {
			return nil
		}
		in.body = body
	case "application/x-www-form-urlencoded":
		// r.ParseForm only reads the body of POST, PUT and PATCH requests.
		data, rerr := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if rerr != nil {
			return nil
		}
		vals, perr := url.ParseQuery(string(data))
		if perr != nil {
			return nil
		}
		in.body = valuesToMap(vals)
	case "multipart/form-data":
		if err = r.ParseMultipartForm(maxMultipartSize); err != nil {
			return nil
		}
		in.body = valuesToMap(r.MultipartForm.Value)
	}

	return in.body
}

func valuesToMap(vals url.Values) map[string]any {
	m := make(map[string]any, len(vals))
	for k, v := range vals {
		m[k] = flattenValues(v)
	}
	return m
}

// flattenValues returns the single value of vals as a string, or all of them
// as a []string.
func flattenValues(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// first returns the first element of a []string value, so that repeated form
// and query values can still be converted to a scalar.
func first(v any) any {
	if vals, ok := v.([]string); ok && len(vals) > 0 {
		return vals[0]
	}
	return v
}

func anys[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

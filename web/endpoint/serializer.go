package endpoint

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
)

// Serializer encodes a response body value into raw response data.
type Serializer interface {
	Serialize(v any) ([]byte, error)
}

// SerializerFunc is an adapter to allow the use of ordinary functions as
// serializers.
type SerializerFunc func(v any) ([]byte, error)

// Serialize calls f(v).
func (f SerializerFunc) Serialize(v any) ([]byte, error) {
	return f(v)
}

// JSONSerializer encodes values as JSON.
type JSONSerializer struct{}

var _ Serializer = JSONSerializer{}

// JSON returns a new JSON serializer.
func JSON() JSONSerializer {
	return JSONSerializer{}
}

// Serialize encodes v as JSON. Sequences are flattened before encoding.
func (JSONSerializer) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(flatten(v))
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

// MetadataSerializer wraps values under a key, next to a set of static
// metadata fields, and encodes the result as JSON.
type MetadataSerializer struct {
	key      string
	metadata map[string]any
}

var _ Serializer = (*MetadataSerializer)(nil)

// NewMetadataSerializer returns a serializer that wraps values under key,
// merged with a copy of metadata.
func NewMetadataSerializer(key string, metadata map[string]any) *MetadataSerializer {
	return &MetadataSerializer{key: key, metadata: maps.Clone(metadata)}
}

// Wrap returns the metadata merged with v under the serializer's key. The key
// takes precedence over a metadata field with the same name.
func (s *MetadataSerializer) Wrap(v any) map[string]any {
	return wrap(s.key, s.metadata, v)
}

// Serialize wraps v and encodes the result as JSON.
func (s *MetadataSerializer) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(s.Wrap(v))
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return data, nil
}

func wrap(key string, metadata map[string]any, v any) map[string]any {
	wrapped := make(map[string]any, len(metadata)+1)
	maps.Copy(wrapped, metadata)
	wrapped[key] = flatten(v)
	return wrapped
}

var (
	anyType   = reflect.TypeFor[any]()
	errorType = reflect.TypeFor[error]()
	bytesType = reflect.TypeFor[[]byte]()
)

// SerializerOf returns a Serializer backed by fn, which must be a function
// that takes a single argument of any type, and returns a string, a []byte
// or an any value, optionally followed by an error. A *ConfigurationError is
// returned if fn doesn't satisfy this contract.
//
// Panics and errors raised by fn are returned as a *SerializationError. If
// fn returns an any value that is neither a string nor a []byte, a
// *ConfigurationError is returned when serializing.
func SerializerOf(fn any) (Serializer, error) {
	if s, ok := fn.(Serializer); ok {
		return s, nil
	}
	if f, ok := fn.(func(any) ([]byte, error)); ok {
		return SerializerFunc(f), nil
	}

	fv := reflect.ValueOf(fn)
	if fn == nil || fv.Kind() != reflect.Func {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("the serializer must be a function, got %T", fn)}
	}

	ft := fv.Type()
	if ft.NumIn() != 1 || ft.IsVariadic() {
		return nil, &ConfigurationError{Msg: "the serializer must expect only one argument"}
	}
	if in := ft.In(0); in.Kind() != reflect.Interface || in.NumMethod() != 0 {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("the first argument of the serializer must accept any type, got %s", in),
		}
	}

	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, &ConfigurationError{
			Msg: "the serializer must return a single value, optionally followed by an error",
		}
	}
	if out := ft.Out(0); out.Kind() != reflect.String && out != bytesType && out != anyType {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("the serializer must return a string, got %s", out)}
	}

	return SerializerFunc(func(v any) (data []byte, err error) {
		defer func() {
			if r := recover(); r != nil {
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				data, err = nil, &SerializationError{Err: perr}
			}
		}()

		arg := reflect.New(anyType).Elem()
		if v != nil {
			arg.Set(reflect.ValueOf(v))
		}
		out := fv.Call([]reflect.Value{arg})

		if len(out) == 2 && !out[1].IsNil() {
			//nolint:errcheck,forcetypeassert // The type was checked above.
			return nil, &SerializationError{Err: out[1].Interface().(error)}
		}

		return contents(out[0])
	}), nil
}

func contents(v reflect.Value) ([]byte, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, &ConfigurationError{Msg: "the serializer must return a string, nil returned"}
		}
		v = v.Elem()
	}

	switch {
	case v.Kind() == reflect.String:
		return []byte(v.String()), nil
	case v.Type() == bytesType:
		return v.Bytes(), nil
	default:
		return nil, &ConfigurationError{Msg: fmt.Sprintf("the serializer must return a string, %s returned", v.Type())}
	}
}

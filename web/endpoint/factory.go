package endpoint

import (
	"log/slog"
	"maps"

	"github.com/quantaphp/http-endpoint/web/server/types"
)

// Option is a function that allows configuring endpoints and factories.
type Option func(*options)

type options struct {
	key      string
	metadata map[string]any
	errLevel types.ErrorLevel
	logger   *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		key:      DefaultKey,
		metadata: DefaultMetadata(),
		errLevel: types.ErrorLevelNone,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithKey sets the key under which results are placed in the response
// envelope.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithMetadata sets the static fields of the response envelope. The map is
// copied.
func WithMetadata(metadata map[string]any) Option {
	return func(o *options) {
		o.metadata = maps.Clone(metadata)
		if o.metadata == nil {
			o.metadata = map[string]any{}
		}
	}
}

// WithErrorLevel sets the amount of error detail written in error responses.
func WithErrorLevel(lvl types.ErrorLevel) Option {
	return func(o *options) {
		o.errLevel = lvl
	}
}

// WithLogger sets the logger used to report request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Factory creates endpoints that share a responder and options.
type Factory struct {
	responder Responder
	opts      []Option
}

// NewFactory returns a new Factory creating endpoints that use responder.
func NewFactory(responder Responder, opts ...Option) *Factory {
	return &Factory{responder: responder, opts: opts}
}

// Default returns a new Factory that uses the DefaultResponder with JSON
// serialization.
func Default(opts ...Option) *Factory {
	return NewFactory(NewResponder(), opts...)
}

// Responder returns the responder shared by the created endpoints.
func (f *Factory) Responder() Responder {
	return f.responder
}

// New returns a new Endpoint invoking fn. Options given here are applied after
// the factory options.
func (f *Factory) New(fn Func, opts ...Option) *Endpoint {
	all := make([]Option, 0, len(f.opts)+len(opts))
	all = append(all, f.opts...)
	all = append(all, opts...)
	return New(f.responder, fn, all...)
}

// With returns a copy of the factory with additional options.
func (f *Factory) With(opts ...Option) *Factory {
	all := make([]Option, 0, len(f.opts)+len(opts))
	all = append(all, f.opts...)
	all = append(all, opts...)
	return &Factory{responder: f.responder, opts: all}
}

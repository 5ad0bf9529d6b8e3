package server

import (
	"time"

	"github.com/fredbi/chartviz/internal/pkg/fetch"
)

// Option configures a [Server].
type Option func(*options)

type options struct {
	shutdownTimeout time.Duration
	fetchOptions    []fetch.Option
}

// WithShutdownTimeout bounds the time given to in-flight requests when the server stops.
//
// Defaults to 10s.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.shutdownTimeout = timeout
		}
	}
}

// WithFetchOptions passes options to the [fetch.Controller] of the server.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) {
		o.fetchOptions = append(o.fetchOptions, opts...)
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		shutdownTimeout: 10 * time.Second,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

package fetch

// Option configures a [Controller].
type Option func(*options)

type options struct {
	onChange func(id string, status Status)
}

// WithOnChange registers a callback invoked on every status change.
//
// The callback runs while the controller is locked: it must not call the [Controller].
func WithOnChange(fn func(id string, status Status)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	return o
}

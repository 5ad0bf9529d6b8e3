package organizer

// Option configures an [Organizer].
type Option func(*options)

type options struct {
	isStrict bool
}

// WithStrict makes [Organizer.Organize] fail when a chart could not be fetched.
func WithStrict(enabled bool) Option {
	return func(o *options) {
		o.isStrict = enabled
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	return o
}

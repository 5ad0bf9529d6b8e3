package ingest

// Option configures a [Loader].
type Option func(*options)

type options struct {
	comma rune
}

// WithComma sets the field delimiter of CSV seed files. The default is ','.
func WithComma(comma rune) Option {
	return func(o *options) {
		if comma != 0 {
			o.comma = comma
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		comma: ',',
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

package query

import (
	"net/http"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/ingest"
)

// Option configures a [Service] or a [Client].
type Option func(*options)

type options struct {
	cacheTTL   time.Duration
	timeout    time.Duration
	now        func() time.Time
	httpClient *http.Client
	loader     *ingest.Loader
}

// WithCacheTTL caches query results for the given duration. A zero duration disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithTimeout bounds the time spent on a single query. A zero duration means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithClock overrides the clock used to expire cached results.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHTTPClient sets the [http.Client] used by a [Client].
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithLoader sets the [ingest.Loader] used to seed connections.
func WithLoader(loader *ingest.Loader) Option {
	return func(o *options) {
		if loader != nil {
			o.loader = loader
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		now:        time.Now,
		httpClient: http.DefaultClient,
	}

	for _, apply := range opts {
		apply(&o)
	}

	if o.loader == nil {
		o.loader = ingest.New()
	}

	return o
}

package service

import "time"

// Clock returns the current time. Engine components take it as an option so
// expiry behaviour can be pinned in tests.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type options struct {
	now Clock
}

// Option configures an engine component
type Option func(*options)

// WithClock overrides the component's time source
func WithClock(now Clock) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: systemClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

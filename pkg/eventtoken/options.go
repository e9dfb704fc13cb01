package eventtoken

import "time"

// Option is a functional option for configuring a Signer
type Option func(*Signer)

// WithDefaultTTL sets the validity window used when Issue is called with a zero TTL.
// Default is 24 hours.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Signer) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithDevToken enables the "DEV" sentinel token, which verifies as event "dev"
// regardless of secret or time. Development and testing only.
func WithDevToken(enabled bool) Option {
	return func(s *Signer) {
		s.devToken = enabled
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

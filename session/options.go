package session

import (
	"time"

	"github.com/jmcleod/pinlock/crypto"
	"github.com/jmcleod/pinlock/internal/logger"
)

type localOptions struct {
	iterations int
	fixedSalt  bool
	limiter    LimiterConfig
	logger     *logger.Logger
	now        func() time.Time
}

func defaultLocalOptions() localOptions {
	return localOptions{
		iterations: crypto.DefaultIterations,
		limiter:    DefaultLimiterConfig(),
		now:        time.Now,
	}
}

// LocalOption is a functional option for NewLocalSession.
type LocalOption func(*localOptions)

// WithIterations sets the PBKDF2 iteration count used when registering a PIN.
// Existing PINs keep the count they were registered with.
func WithIterations(n int) LocalOption {
	return func(o *localOptions) {
		o.iterations = n
	}
}

// WithFixedSalt derives keys with the application-wide salt instead of a
// random per-install salt.
func WithFixedSalt() LocalOption {
	return func(o *localOptions) {
		o.fixedSalt = true
	}
}

// WithLimiter sets the PIN attempt throttling policy.
func WithLimiter(cfg LimiterConfig) LocalOption {
	return func(o *localOptions) {
		o.limiter = cfg
	}
}

// WithLogger sets the logger used for audit entries.
func WithLogger(l *logger.Logger) LocalOption {
	return func(o *localOptions) {
		o.logger = l
	}
}

// WithClock sets the time source for attempt throttling.
func WithClock(now func() time.Time) LocalOption {
	return func(o *localOptions) {
		o.now = now
	}
}

type assuranceOptions struct {
	logger *logger.Logger
}

// AssuranceOption is a functional option for NewAssurance.
type AssuranceOption func(*assuranceOptions)

// WithAssuranceLogger sets the logger used for audit entries.
func WithAssuranceLogger(l *logger.Logger) AssuranceOption {
	return func(o *assuranceOptions) {
		o.logger = l
	}
}

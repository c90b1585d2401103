package session

import (
	"sync"
	"time"
)

// LimiterConfig controls PIN attempt throttling.
type LimiterConfig struct {
	// MaxFailures is the number of consecutive failures before lockout begins.
	MaxFailures int
	// BaseLockout is the lockout after MaxFailures is reached; it doubles on
	// every further failure.
	BaseLockout time.Duration
	// MaxLockout caps the exponential backoff.
	MaxLockout time.Duration
}

// DefaultLimiterConfig returns 5 failures, 30s base lockout and a 15m cap.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxFailures: 5,
		BaseLockout: 30 * time.Second,
		MaxLockout:  15 * time.Minute,
	}
}

// attemptLimiter tracks consecutive failed unlocks for the single local PIN
// and enforces exponential backoff.
type attemptLimiter struct {
	cfg LimiterConfig
	now func() time.Time

	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
}

func newAttemptLimiter(cfg LimiterConfig, now func() time.Time) *attemptLimiter {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultLimiterConfig().MaxFailures
	}
	if cfg.BaseLockout <= 0 {
		cfg.BaseLockout = DefaultLimiterConfig().BaseLockout
	}
	if cfg.MaxLockout < cfg.BaseLockout {
		cfg.MaxLockout = cfg.BaseLockout
	}
	return &attemptLimiter{cfg: cfg, now: now}
}

// check reports whether attempts are currently blocked and for how long.
func (l *attemptLimiter) check() (blocked bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Before(l.lockedUntil) {
		return true, l.lockedUntil.Sub(now)
	}
	return false, 0
}

// recordFailure increments the failure counter and applies exponential
// backoff once MaxFailures is reached.
func (l *attemptLimiter) recordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures++
	if l.failures < l.cfg.MaxFailures {
		return
	}

	// BaseLockout * 2^(failures - MaxFailures)
	shift := l.failures - l.cfg.MaxFailures
	lockout := l.cfg.BaseLockout
	for i := 0; i < shift; i++ {
		lockout *= 2
		if lockout > l.cfg.MaxLockout {
			lockout = l.cfg.MaxLockout
			break
		}
	}
	l.lockedUntil = l.now().Add(lockout)
}

// reset clears the failure counter after a successful unlock or a PIN reset.
func (l *attemptLimiter) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
	l.lockedUntil = time.Time{}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jmcleod/pinlock/identity"
)

// Level is the remote authentication assurance ladder.
type Level int

const (
	Unauthenticated Level = iota
	SingleFactor
	TwoFactor
)

func (l Level) String() string {
	switch l {
	case SingleFactor:
		return "single_factor"
	case TwoFactor:
		return "two_factor"
	default:
		return "unauthenticated"
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name produced by MarshalText.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unauthenticated":
		*l = Unauthenticated
	case "single_factor":
		*l = SingleFactor
	case "two_factor":
		*l = TwoFactor
	default:
		return fmt.Errorf("unknown assurance level %q", b)
	}
	return nil
}

func levelFromAAL(aal identity.AAL) Level {
	switch aal {
	case identity.AAL2:
		return TwoFactor
	case identity.AAL1:
		return SingleFactor
	default:
		return Unauthenticated
	}
}

// Step is where a guarded navigation must go next.
type Step string

const (
	StepSignIn    Step = "sign_in"
	StepEnroll    Step = "enroll"
	StepChallenge Step = "challenge"
	StepProceed   Step = "proceed"
)

// Assurance drives the remote assurance ladder. It holds no level of its own:
// every check asks the provider again.
type Assurance struct {
	provider identity.Provider
	audit    *auditLogger

	// mu serialises provider calls so sign-in, enroll and verify cannot interleave.
	mu sync.Mutex
}

// NewAssurance wraps provider.
func NewAssurance(provider identity.Provider, opts ...AssuranceOption) *Assurance {
	var o assuranceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Assurance{
		provider: provider,
		audit:    newAuditLogger(o.logger),
	}
}

// Check asks the provider for the current level.
func (a *Assurance) Check(ctx context.Context) (Level, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkLocked(ctx)
}

func (a *Assurance) checkLocked(ctx context.Context) (Level, error) {
	levels, err := a.provider.AssuranceLevel(ctx)
	if err != nil {
		return Unauthenticated, remoteError(err)
	}
	return levelFromAAL(levels.Current), nil
}

// Route decides the next step for a guarded navigation. A single-factor
// session with no verified TOTP factor must enroll; one with a verified
// factor must pass a challenge.
func (a *Assurance) Route(ctx context.Context) (Step, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	level, err := a.checkLocked(ctx)
	if err != nil {
		return StepSignIn, err
	}
	switch level {
	case Unauthenticated:
		return StepSignIn, nil
	case TwoFactor:
		return StepProceed, nil
	}

	factors, err := a.provider.ListFactors(ctx)
	if err != nil {
		return StepSignIn, remoteError(err)
	}
	if len(identity.VerifiedFactors(factors)) == 0 {
		return StepEnroll, nil
	}
	return StepChallenge, nil
}

// SignIn verifies a password and returns the resulting level. On failure the
// level is unchanged and the provider's message is surfaced.
func (a *Assurance) SignIn(ctx context.Context, email, password string) (Level, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Unauthenticated, newError(KindInvalidInput, "email and password are required", nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	user, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		a.audit.recordFailure(AuditSignInFailed)
		return Unauthenticated, remoteError(err)
	}
	a.audit.record(AuditSignIn, func(e *zerolog.Event) {
		e.Str("user_id", user.ID)
	})
	return a.checkLocked(ctx)
}

// SignOut ends the remote session.
func (a *Assurance) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.provider.SignOut(ctx); err != nil {
		return remoteError(err)
	}
	a.audit.record(AuditSignOut)
	return nil
}

// Factors lists the account's factors.
func (a *Assurance) Factors(ctx context.Context) ([]identity.Factor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	factors, err := a.provider.ListFactors(ctx)
	if err != nil {
		return nil, remoteError(err)
	}
	return factors, nil
}

// Enroll creates a new TOTP factor. It requires a single-factor session for an
// account with no verified factor; an account that already has one must pass
// a challenge instead. The returned provisioning secret is not retrievable
// again.
func (a *Assurance) Enroll(ctx context.Context) (*identity.Enrollment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	level, err := a.checkLocked(ctx)
	if err != nil {
		return nil, err
	}
	if level != SingleFactor {
		return nil, newError(KindState, "enrollment requires a password-only session, current level is "+level.String(), nil)
	}
	factors, err := a.provider.ListFactors(ctx)
	if err != nil {
		return nil, remoteError(err)
	}
	if len(identity.VerifiedFactors(factors)) > 0 {
		a.audit.recordFailure(AuditFactorEnrollDenied)
		return nil, newError(KindState, "a verified factor already exists; verify it instead of enrolling another", nil)
	}

	enr, err := a.provider.EnrollFactor(ctx)
	if err != nil {
		return nil, remoteError(err)
	}
	a.audit.record(AuditFactorEnrolled, func(e *zerolog.Event) {
		e.Str("factor_id", enr.FactorID)
	})
	return enr, nil
}

// Verify challenges factorID and submits code. It returns true once the
// session reports TwoFactor. A rejected code, or an accepted one that leaves
// the session below TwoFactor, returns false with a KindRemoteAuth error.
func (a *Assurance) Verify(ctx context.Context, factorID, code string) (bool, error) {
	if factorID == "" || strings.TrimSpace(code) == "" {
		return false, newError(KindInvalidInput, "factor and code are required", nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	level, err := a.checkLocked(ctx)
	if err != nil {
		return false, err
	}
	if level == Unauthenticated {
		return false, newError(KindState, "sign in before verifying a factor", nil)
	}

	ch, err := a.provider.CreateChallenge(ctx, factorID)
	if err != nil {
		a.audit.recordFailure(AuditFactorVerifyFailed, func(e *zerolog.Event) {
			e.Str("factor_id", factorID).Str("stage", "challenge")
		})
		return false, remoteError(err)
	}
	if err := a.provider.VerifyChallenge(ctx, factorID, ch.ID, strings.TrimSpace(code)); err != nil {
		a.audit.recordFailure(AuditFactorVerifyFailed, func(e *zerolog.Event) {
			e.Str("factor_id", factorID).Str("stage", "verify")
		})
		return false, remoteError(err)
	}

	level, err = a.checkLocked(ctx)
	if err != nil {
		return false, err
	}
	if level != TwoFactor {
		a.audit.recordFailure(AuditFactorVerifyFailed, func(e *zerolog.Event) {
			e.Str("factor_id", factorID).Str("stage", "level").Stringer("level", level)
		})
		return false, newError(KindRemoteAuth, "code accepted but the session is still "+level.String(), nil)
	}
	a.audit.record(AuditFactorVerified, func(e *zerolog.Event) {
		e.Str("factor_id", factorID).Stringer("level", level)
	})
	return true, nil
}

func remoteError(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindRemoteAuth, "identity provider request was cancelled", err)
	}
	return newError(KindRemoteAuth, identity.DisplayMessage(err), err)
}

package session

import (
	"github.com/rs/zerolog"

	"github.com/jmcleod/pinlock/internal/logger"
)

// AuditEvent identifies a security-relevant session action.
type AuditEvent string

const (
	AuditPinRegistered      AuditEvent = "pin_registered"
	AuditPinUnlocked        AuditEvent = "pin_unlocked"
	AuditPinUnlockFailed    AuditEvent = "pin_unlock_failed"
	AuditPinUnlockThrottled AuditEvent = "pin_unlock_throttled"
	AuditPinLocked          AuditEvent = "pin_locked"
	AuditPinReset           AuditEvent = "pin_reset"
	AuditSignIn             AuditEvent = "sign_in"
	AuditSignInFailed       AuditEvent = "sign_in_failed"
	AuditSignOut            AuditEvent = "sign_out"
	AuditFactorEnrolled     AuditEvent = "factor_enrolled"
	AuditFactorEnrollDenied AuditEvent = "factor_enroll_denied"
	AuditFactorVerified     AuditEvent = "factor_verified"
	AuditFactorVerifyFailed AuditEvent = "factor_verify_failed"
)

// auditLogger writes structured audit entries. Callers must never pass PINs,
// passwords, codes, secrets or key material.
type auditLogger struct {
	log *logger.Logger
}

func newAuditLogger(l *logger.Logger) *auditLogger {
	if l == nil {
		l = logger.Nop()
	}
	return &auditLogger{log: l.WithComponent("audit")}
}

func (a *auditLogger) record(event AuditEvent, fields ...func(e *zerolog.Event)) {
	a.emit(a.log.Info(), event, fields)
}

func (a *auditLogger) recordFailure(event AuditEvent, fields ...func(e *zerolog.Event)) {
	a.emit(a.log.Warn(), event, fields)
}

func (a *auditLogger) emit(e *zerolog.Event, event AuditEvent, fields []func(e *zerolog.Event)) {
	e = e.Str("event", string(event))
	for _, f := range fields {
		f(e)
	}
	e.Msg("audit")
}

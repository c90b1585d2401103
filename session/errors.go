package session

import (
	"errors"
	"fmt"
	"time"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	// KindKeyDerivation means the key derivation primitive failed.
	KindKeyDerivation Kind = "key_derivation"
	// KindDecryption covers a wrong PIN and a corrupted or tampered envelope alike.
	KindDecryption Kind = "decryption"
	// KindRemoteAuth is any identity-provider failure.
	KindRemoteAuth Kind = "remote_auth"
	// KindState means the operation is invalid in the current state.
	KindState        Kind = "state"
	KindInvalidInput Kind = "invalid_input"
	KindThrottled    Kind = "throttled"
	KindNotFound     Kind = "not_found"
	KindStorage      Kind = "storage"
)

// Error is returned by every LocalSession, Assurance and Controller operation.
// Message is safe to show to a user; Err holds the underlying cause and is
// never shown.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set for KindThrottled.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: KindState})
// works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the display message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

const msgIncorrectPIN = "incorrect PIN"

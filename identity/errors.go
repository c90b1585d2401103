package identity

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession          = errors.New("no active session")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidCode        = errors.New("invalid TOTP code")
	ErrFactorNotFound     = errors.New("factor not found")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge has expired")
	ErrCodeReused         = errors.New("TOTP code was already used")
	// ErrInsufficientAAL is returned when an operation needs aal2, such as
	// enrolling another factor once one is verified.
	ErrInsufficientAAL    = errors.New("verify an existing factor first")
)

// ProviderError carries a provider's error response verbatim.
type ProviderError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	// Err is the sentinel the response maps to, if any.
	Err error `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider error %d: %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DisplayMessage returns the message to show a user for err: the provider's
// own message when there is one, otherwise err's text.
func DisplayMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

package gotrue

import (
	"encoding/json"
	"net/http"

	"github.com/jmcleod/pinlock/identity"
)

// errorBody covers both the current ({error_code, msg}) and the legacy
// OAuth-style ({error, error_description}) GoTrue error shapes.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var codeSentinels = map[string]error{
	"invalid_credentials":     identity.ErrInvalidCredentials,
	"invalid_grant":           identity.ErrInvalidCredentials,
	"mfa_verification_failed": identity.ErrInvalidCode,
	"mfa_factor_not_found":    identity.ErrFactorNotFound,
	"mfa_challenge_expired":   identity.ErrChallengeExpired,
	"insufficient_aal":        identity.ErrInsufficientAAL,
	"session_not_found":       identity.ErrNoSession,
	"bad_jwt":                 identity.ErrNoSession,
	"no_authorization":        identity.ErrNoSession,
}

func parseAPIError(statusCode int, body []byte) error {
	pe := &identity.ProviderError{StatusCode: statusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		pe.Code = firstNonEmpty(eb.ErrorCode, eb.Error)
		pe.Message = firstNonEmpty(eb.Msg, eb.Message, eb.ErrorDescription, eb.Error)
	}
	if pe.Message == "" {
		pe.Message = string(body)
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(statusCode)
	}

	pe.Err = codeSentinels[pe.Code]
	if pe.Err == nil && statusCode == http.StatusUnauthorized {
		pe.Err = identity.ErrNoSession
	}
	return pe
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package api

import (
	"github.com/jmcleod/pinlock/datastore"
	"github.com/jmcleod/pinlock/identity"
	"github.com/jmcleod/pinlock/session"
)

// PinRequest is the JSON body for POST /pin/register and POST /pin/login.
type PinRequest struct {
	Pin string `json:"pin"`
}

// ResetPinRequest is the JSON body for POST /pin/reset. Confirm must be true;
// a reset destroys every protected state entry.
type ResetPinRequest struct {
	Confirm bool `json:"confirm"`
}

// ListStateResponse is returned from GET /state.
type ListStateResponse struct {
	Names []string `json:"names"`
}

// SignInRequest is the JSON body for POST /auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AssuranceResponse is returned from POST /auth/sign-in and
// GET /auth/assurance.
type AssuranceResponse struct {
	Level session.Level `json:"level"`
	Next  session.Step  `json:"next,omitempty"`
}

// ListFactorsResponse is returned from GET /auth/factors.
type ListFactorsResponse struct {
	Factors []identity.Factor `json:"factors"`
}

// VerifyFactorRequest is the JSON body for POST /auth/factors/{factorID}/verify.
type VerifyFactorRequest struct {
	Code string `json:"code"`
}

// VerifyFactorResponse is returned from POST /auth/factors/{factorID}/verify.
type VerifyFactorResponse struct {
	Verified bool          `json:"verified"`
	Level    session.Level `json:"level"`
}

// ListRowsResponse is returned from GET /data/{table}.
type ListRowsResponse struct {
	Rows []datastore.Row `json:"rows"`
	PaginationMeta
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

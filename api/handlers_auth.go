package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/pinlock/identity"
	"github.com/jmcleod/pinlock/session"
)

// SignIn handles POST /auth/sign-in.
func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	if _, err := a.ctrl.Assurance.SignIn(r.Context(), req.Email, req.Password); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.GetAssurance(w, r)
}

// SignOut handles POST /auth/sign-out.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.ctrl.Assurance.SignOut(r.Context()); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssurance handles GET /auth/assurance.
func (a *API) GetAssurance(w http.ResponseWriter, r *http.Request) {
	step, err := a.ctrl.Assurance.Route(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	level, err := a.ctrl.Assurance.Check(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AssuranceResponse{Level: level, Next: step})
}

// ListFactors handles GET /auth/factors.
func (a *API) ListFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := a.ctrl.Assurance.Factors(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if factors == nil {
		factors = []identity.Factor{}
	}
	writeJSON(w, http.StatusOK, ListFactorsResponse{Factors: factors})
}

// EnrollFactor handles POST /auth/factors. The response carries the TOTP
// secret and QR code once; they cannot be fetched again.
func (a *API) EnrollFactor(w http.ResponseWriter, r *http.Request) {
	enr, err := a.ctrl.Assurance.Enroll(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, enr)
}

// VerifyFactor handles POST /auth/factors/{factorID}/verify.
func (a *API) VerifyFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyFactorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	ok, err := a.ctrl.Assurance.Verify(r.Context(), chi.URLParam(r, "factorID"), req.Code)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyFactorResponse{Verified: ok, Level: session.TwoFactor})
}

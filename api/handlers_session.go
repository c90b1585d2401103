package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/pinlock/crypto"
	"github.com/jmcleod/pinlock/session"
)

// GetSession handles GET /session. It also issues the CSRF cookie, which the
// PIN routes need even while the identity provider is unreachable.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	writeCSRFCookie(w, r)
	writeJSON(w, http.StatusOK, a.ctrl.Status(r.Context()))
}

// RegisterPin handles POST /pin/register.
func (a *API) RegisterPin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	if err := a.ctrl.Local.Register(r.Context(), req.Pin); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.writeStatus(w, r, http.StatusCreated)
}

// LoginPin handles POST /pin/login.
func (a *API) LoginPin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	if _, err := a.ctrl.Local.Login(r.Context(), req.Pin); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.writeStatus(w, r, http.StatusOK)
}

// LockPin handles POST /pin/lock.
func (a *API) LockPin(w http.ResponseWriter, r *http.Request) {
	a.ctrl.Teardown()
	w.WriteHeader(http.StatusNoContent)
}

// ResetPin handles POST /pin/reset.
func (a *API) ResetPin(w http.ResponseWriter, r *http.Request) {
	var req ResetPinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput),
			"reset deletes all locally protected data; send confirm=true")
		return
	}
	if err := a.ctrl.Local.ResetPin(r.Context()); err != nil {
		a.mapError(w, r, err)
		return
	}
	a.writeStatus(w, r, http.StatusOK)
}

func (a *API) writeStatus(w http.ResponseWriter, r *http.Request, code int) {
	writeJSON(w, code, a.ctrl.Status(r.Context()))
}

// ListState handles GET /state.
func (a *API) ListState(w http.ResponseWriter, r *http.Request) {
	names, err := a.ctrl.Local.List(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListStateResponse{Names: names})
}

// GetState handles GET /state/{name}.
func (a *API) GetState(w http.ResponseWriter, r *http.Request) {
	p, err := a.ctrl.Local.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutState handles PUT /state/{name}. The body is a tagged payload.
func (a *API) PutState(w http.ResponseWriter, r *http.Request) {
	var p crypto.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	if err := a.ctrl.Local.Save(r.Context(), chi.URLParam(r, "name"), p); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteState handles DELETE /state/{name}.
func (a *API) DeleteState(w http.ResponseWriter, r *http.Request) {
	if err := a.ctrl.Local.Remove(r.Context(), chi.URLParam(r, "name")); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

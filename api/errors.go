package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/jmcleod/pinlock/datastore"
	"github.com/jmcleod/pinlock/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

var kindStatus = map[session.Kind]int{
	session.KindInvalidInput:  http.StatusBadRequest,
	session.KindDecryption:    http.StatusUnauthorized,
	session.KindRemoteAuth:    http.StatusUnauthorized,
	session.KindState:         http.StatusConflict,
	session.KindNotFound:      http.StatusNotFound,
	session.KindThrottled:     http.StatusTooManyRequests,
	session.KindKeyDerivation: http.StatusInternalServerError,
	session.KindStorage:       http.StatusInternalServerError,
}

// mapError writes err as an ErrorResponse. Session errors carry their own
// display message; anything unrecognised is logged and reported as an
// internal error without detail.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var se *session.Error
	switch {
	// The guard wraps the provider's error, so this must come first.
	case errors.Is(err, datastore.ErrAssuranceRequired):
		writeError(w, http.StatusForbidden, "assurance_required", "unlock the PIN and complete two-factor sign-in first")
	case errors.As(err, &se):
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		if se.Kind == session.KindThrottled {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(se.RetryAfter.Seconds()))))
		}
		if status >= http.StatusInternalServerError {
			a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
		writeError(w, status, string(se.Kind), se.Message)
	case errors.Is(err, datastore.ErrUnknownTable), errors.Is(err, datastore.ErrNotFound):
		writeError(w, http.StatusNotFound, string(session.KindNotFound), err.Error())
	case errors.Is(err, datastore.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

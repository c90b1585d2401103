package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/pinlock/datastore"
	"github.com/jmcleod/pinlock/session"
)

// SelectRows handles GET /data/{table}. Query parameters other than limit,
// offset, order and desc are equality filters.
func (a *API) SelectRows(w http.ResponseWriter, r *http.Request) {
	q, meta := parseQuery(r)
	rows, err := a.data.Select(r.Context(), chi.URLParam(r, "table"), q)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	rows, meta = trimPage(rows, meta)
	if rows == nil {
		rows = []datastore.Row{}
	}
	writeJSON(w, http.StatusOK, ListRowsResponse{Rows: rows, PaginationMeta: meta})
}

// InsertRow handles POST /data/{table}.
func (a *API) InsertRow(w http.ResponseWriter, r *http.Request) {
	var row datastore.Row
	if err := decodeJSON(w, r, &row); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	out, err := a.data.Insert(r.Context(), chi.URLParam(r, "table"), row)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// UpdateRow handles PATCH /data/{table}/{id}.
func (a *API) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var row datastore.Row
	if err := decodeJSON(w, r, &row); err != nil {
		writeError(w, http.StatusBadRequest, string(session.KindInvalidInput), err.Error())
		return
	}
	out, err := a.data.Update(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"), row)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteRow handles DELETE /data/{table}/{id}.
func (a *API) DeleteRow(w http.ResponseWriter, r *http.Request) {
	if err := a.data.Delete(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id")); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

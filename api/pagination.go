package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/jmcleod/pinlock/datastore"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 200
)

// PaginationMeta is embedded in paginated list responses.
type PaginationMeta struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// parsePagination reads "limit" and "offset" query parameters from the
// request. Missing or invalid values fall back to defaults (offset=0,
// limit=defaultPageLimit). Negative values are clamped to 0; limit is
// capped at maxPageLimit.
func parsePagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit = defaultPageLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset = 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	return limit, offset
}

// reserved query parameters; every other parameter is an equality filter.
var reservedParams = map[string]bool{"limit": true, "offset": true, "order": true, "desc": true}

// parseQuery builds a datastore query from the request. One extra row is
// requested so the caller can tell whether more pages exist.
func parseQuery(r *http.Request) (datastore.Query, PaginationMeta) {
	limit, offset := parsePagination(r)
	params := r.URL.Query()

	q := datastore.Query{
		OrderBy: params.Get("order"),
		Limit:   limit + 1,
		Offset:  offset,
	}
	q.Desc, _ = strconv.ParseBool(params.Get("desc"))
	for col, vals := range params {
		if reservedParams[col] || len(vals) == 0 {
			continue
		}
		q.Filters = append(q.Filters, datastore.Filter{Column: col, Value: vals[0]})
	}
	slices.SortFunc(q.Filters, func(a, b datastore.Filter) int {
		return strings.Compare(a.Column, b.Column)
	})
	return q, PaginationMeta{Limit: limit, Offset: offset}
}

// trimPage drops the probe row requested by parseQuery.
func trimPage(rows []datastore.Row, meta PaginationMeta) ([]datastore.Row, PaginationMeta) {
	if len(rows) > meta.Limit {
		rows = rows[:meta.Limit]
		meta.HasMore = true
	}
	return rows, meta
}

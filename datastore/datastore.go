// Package datastore is the generic query/mutation interface to the remote
// business tables. Callers reach it only through Guard, which re-checks the
// session assurance on every call.
package datastore

import (
	"context"
	"fmt"
	"regexp"
	"slices"
)

// Row is a single table row keyed by column name.
type Row map[string]any

// Filter is an equality match on one column.
type Filter struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Query selects rows from a table. The zero Query returns the first
// DefaultLimit rows ordered by id.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Gateway is implemented by every remote data backend.
type Gateway interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table, id string, row Row) (Row, error)
	Delete(ctx context.Context, table, id string) error
}

// KnownTables lists the business tables the gateway serves.
var KnownTables = []string{
	"contacts",
	"invoices",
	"invoice_lines",
	"expenses",
	"inventory_items",
	"purchases",
	"service_orders",
	"treasury_movements",
	"cctv_systems",
	"wifi_networks",
	"remote_access",
	"software_licenses",
	"tax_deadlines",
}

// IsKnownTable reports whether name is one of KnownTables.
func IsKnownTable(name string) bool {
	return slices.Contains(KnownTables, name)
}

var columnRE = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidColumn reports whether name is a plain lower-case SQL identifier.
func ValidColumn(name string) bool {
	return columnRE.MatchString(name)
}

// Normalize applies the default ordering and limit and validates column
// names.
func (q Query) Normalize() (Query, error) {
	if q.OrderBy == "" {
		q.OrderBy = "id"
	}
	if !ValidColumn(q.OrderBy) {
		return q, fmt.Errorf("%w: order column %q", ErrInvalidQuery, q.OrderBy)
	}
	for _, f := range q.Filters {
		if !ValidColumn(f.Column) {
			return q, fmt.Errorf("%w: filter column %q", ErrInvalidQuery, f.Column)
		}
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("%w: negative offset", ErrInvalidQuery)
	}
	return q, nil
}

// ValidateRow checks the column names of a row to be written. The id column
// is owned by the backend and may not be written.
func ValidateRow(row Row) error {
	if len(row) == 0 {
		return fmt.Errorf("%w: empty row", ErrInvalidQuery)
	}
	for col := range row {
		if !ValidColumn(col) {
			return fmt.Errorf("%w: column %q", ErrInvalidQuery, col)
		}
		if col == "id" {
			return fmt.Errorf("%w: id is assigned by the store", ErrInvalidQuery)
		}
	}
	return nil
}

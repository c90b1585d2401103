package postgres

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jmcleod/pinlock/datastore"
)

// Identifiers are validated by the datastore package before they get here
// and are quoted again regardless.
func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// buildSelect expects a normalized query.
func buildSelect(table string, q datastore.Query) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "SELECT * FROM %s", ident(table))
	for i, f := range q.Filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&sb, "%s = $%d", ident(f.Column), len(args))
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", ident(q.OrderBy), dir)
	args = append(args, q.Limit, q.Offset)
	fmt.Fprintf(&sb, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return sb.String(), args
}

func buildInsert(table string, row datastore.Row) (string, []any) {
	cols := slices.Sorted(maps.Keys(row))
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = ident(c)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), strings.Join(names, ", "), strings.Join(params, ", "))
	return sql, args
}

func buildUpdate(table, id string, row datastore.Row) (string, []any) {
	cols := slices.Sorted(maps.Keys(row))
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		args = append(args, row[c])
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), len(args))
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		ident(table), strings.Join(sets, ", "), ident("id"), len(args))
	return sql, args
}

func buildDelete(table, id string) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident(table), ident("id")), []any{id}
}

// Package postgres implements datastore.Gateway over the business tables in
// PostgreSQL.
//
// Table names are restricted to datastore.KnownTables and column names to
// plain lower-case identifiers; every value travels as a query parameter.
// Rows come back as maps, with UUIDs rendered as strings and NUMERIC columns
// as float64.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/pinlock/datastore"
)

// Gateway implements datastore.Gateway backed by PostgreSQL.
type Gateway struct {
	pool *pgxpool.Pool
}

var _ datastore.Gateway = (*Gateway)(nil)

// NewGateway returns a Gateway backed by the given pgx connection pool.
func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// NewGatewayFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Gateway.
func NewGatewayFromDSN(ctx context.Context, dsn string) (*Gateway, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewGateway(pool), nil
}

// Close closes the underlying connection pool.
func (g *Gateway) Close() {
	g.pool.Close()
}

func (g *Gateway) Select(ctx context.Context, table string, q datastore.Query) ([]datastore.Row, error) {
	if !datastore.IsKnownTable(table) {
		return nil, fmt.Errorf("%w: %q", datastore.ErrUnknownTable, table)
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	sql, args := buildSelect(table, q)
	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := pgx.CollectRows(rows, rowToRow)
	if err != nil {
		return nil, mapError(err)
	}
	if out == nil {
		out = []datastore.Row{}
	}
	return out, nil
}

func (g *Gateway) Insert(ctx context.Context, table string, row datastore.Row) (datastore.Row, error) {
	if !datastore.IsKnownTable(table) {
		return nil, fmt.Errorf("%w: %q", datastore.ErrUnknownTable, table)
	}
	if err := datastore.ValidateRow(row); err != nil {
		return nil, err
	}
	sql, args := buildInsert(table, row)
	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, rowToRow)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (g *Gateway) Update(ctx context.Context, table, id string, row datastore.Row) (datastore.Row, error) {
	if !datastore.IsKnownTable(table) {
		return nil, fmt.Errorf("%w: %q", datastore.ErrUnknownTable, table)
	}
	if err := datastore.ValidateRow(row); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	sql, args := buildUpdate(table, id, row)
	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, rowToRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	if !datastore.IsKnownTable(table) {
		return fmt.Errorf("%w: %q", datastore.ErrUnknownTable, table)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	sql, args := buildDelete(table, id)
	tag, err := g.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	return nil
}

func rowToRow(row pgx.CollectableRow) (datastore.Row, error) {
	m, err := pgx.RowToMap(row)
	if err != nil {
		return nil, err
	}
	for k, v := range m {
		m[k] = plainValue(v)
	}
	return datastore.Row(m), nil
}

// plainValue converts driver types that do not encode naturally as JSON.
func plainValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}

// Client-caused failures (unknown column, bad value, constraint violation)
// surface as datastore.ErrInvalidQuery with the server's message.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "22", "23", "42":
			return fmt.Errorf("%w: %s", datastore.ErrInvalidQuery, pgErr.Message)
		}
	}
	return err
}

package datastore

import (
	"context"
	"fmt"
)

// Gate reports whether remote data may be accessed right now.
// *session.Controller satisfies it.
type Gate interface {
	CanProceed(ctx context.Context) (bool, error)
}

type guarded struct {
	gw   Gateway
	gate Gate
}

// Guard wraps gw so that every call first asks gate. Nothing is cached: a
// session that locks or drops below two factors is refused on its next call.
func Guard(gw Gateway, gate Gate) Gateway {
	return &guarded{gw: gw, gate: gate}
}

func (g *guarded) admit(ctx context.Context, table string) error {
	ok, err := g.gate.CanProceed(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssuranceRequired, err)
	}
	if !ok {
		return ErrAssuranceRequired
	}
	if !IsKnownTable(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

func (g *guarded) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := g.admit(ctx, table); err != nil {
		return nil, err
	}
	return g.gw.Select(ctx, table, q)
}

func (g *guarded) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := g.admit(ctx, table); err != nil {
		return nil, err
	}
	return g.gw.Insert(ctx, table, row)
}

func (g *guarded) Update(ctx context.Context, table, id string, row Row) (Row, error) {
	if err := g.admit(ctx, table); err != nil {
		return nil, err
	}
	return g.gw.Update(ctx, table, id, row)
}

func (g *guarded) Delete(ctx context.Context, table, id string) error {
	if err := g.admit(ctx, table); err != nil {
		return err
	}
	return g.gw.Delete(ctx, table, id)
}

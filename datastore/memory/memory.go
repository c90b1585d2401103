// Package memory implements datastore.Gateway in memory. It backs local
// development and tests; rows do not survive a restart.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jmcleod/pinlock/datastore"
	"github.com/jmcleod/pinlock/internal/uuid"
)

// Gateway is an in-memory datastore.Gateway.
type Gateway struct {
	mu     sync.RWMutex
	tables map[string]map[string]datastore.Row
	now    func() time.Time
}

var _ datastore.Gateway = (*Gateway)(nil)

// NewGateway returns an empty gateway with every known table present.
func NewGateway() *Gateway {
	g := &Gateway{
		tables: make(map[string]map[string]datastore.Row),
		now:    time.Now,
	}
	for _, t := range datastore.KnownTables {
		g.tables[t] = make(map[string]datastore.Row)
	}
	return g
}

func (g *Gateway) table(name string) (map[string]datastore.Row, error) {
	t, ok := g.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", datastore.ErrUnknownTable, name)
	}
	return t, nil
}

func (g *Gateway) Select(ctx context.Context, table string, q datastore.Query) ([]datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.table(table)
	if err != nil {
		return nil, err
	}

	var out []datastore.Row
	for _, row := range t {
		if matches(row, q.Filters) {
			out = append(out, maps.Clone(row))
		}
	}
	slices.SortStableFunc(out, func(a, b datastore.Row) int {
		c := compareValues(a[q.OrderBy], b[q.OrderBy])
		if c == 0 {
			c = compareValues(a["id"], b["id"])
		}
		if q.Desc {
			return -c
		}
		return c
	})

	if q.Offset >= len(out) {
		return []datastore.Row{}, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (g *Gateway) Insert(ctx context.Context, table string, row datastore.Row) (datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := datastore.ValidateRow(row); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.table(table)
	if err != nil {
		return nil, err
	}
	stored := maps.Clone(row)
	stored["id"] = uuid.New()
	stored["created_at"] = g.now().UTC()
	t[stored["id"].(string)] = stored
	return maps.Clone(stored), nil
}

func (g *Gateway) Update(ctx context.Context, table, id string, row datastore.Row) (datastore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := datastore.ValidateRow(row); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.table(table)
	if err != nil {
		return nil, err
	}
	stored, ok := t[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	maps.Copy(stored, row)
	return maps.Clone(stored), nil
}

func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.table(table)
	if err != nil {
		return err
	}
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%s/%s: %w", table, id, datastore.ErrNotFound)
	}
	delete(t, id)
	return nil
}

func matches(row datastore.Row, filters []datastore.Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders numbers numerically and everything else by its
// formatted text.
func compareValues(a, b any) int {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

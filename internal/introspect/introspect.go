// Package introspect contains the introspecter interface used to read the current
// shape of one table from the storage engine's catalog. Callers depend only on the
// interface, so an engine that exposes column flags natively can plug in a
// different implementation without touching the executor.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"sqliteadmin/internal/core"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so introspection can run
// inside the transaction that later mutates the table.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Introspecter reads a table descriptor. It fails with core.ErrNotFound when the
// table does not exist and with a *core.StorageError on any read failure.
type Introspecter interface {
	Introspect(ctx context.Context, q Querier, table string) (*core.Table, error)
	// Tables lists the user tables, sorted by name.
	Tables(ctx context.Context, q Querier) ([]string, error)
}

var (
	registry = make(map[core.Dialect]func() Introspecter)
	mu       sync.RWMutex
)

func Register(dialect core.Dialect, fn func() Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[dialect] = fn
}

func NewIntrospecter(dialect core.Dialect) (Introspecter, error) {
	mu.RLock()
	fn, ok := registry[dialect]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported dialect %v", dialect)
	}

	return fn(), nil
}

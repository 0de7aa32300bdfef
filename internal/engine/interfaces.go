package engine

import (
	"context"

	"sqliteadmin/internal/core"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// Mutator applies schema mutations and reports table descriptors. *Engine
// implements it; front ends depend on the interface.
type Mutator interface {
	// AddColumn appends a column through a rebuild.
	AddColumn(ctx context.Context, req core.AddColumnRequest) (*Result, error)
	// DeleteColumn removes a column and its data through a rebuild.
	DeleteColumn(ctx context.Context, req core.DeleteColumnRequest) (*Result, error)
	// ModifyColumn redefines a column through a rebuild.
	ModifyColumn(ctx context.Context, req core.ModifyColumnRequest) (*Result, error)
	// RenameTable renames a table natively.
	RenameTable(ctx context.Context, req core.RenameTableRequest) (*Result, error)
	// RenameColumn renames a column natively.
	RenameColumn(ctx context.Context, req core.RenameColumnRequest) (*Result, error)
	// Describe returns the current descriptor of a table.
	Describe(ctx context.Context, table string) (*core.Table, error)
	// Tables lists the user tables.
	Tables(ctx context.Context) ([]string, error)
}

var _ Mutator = (*Engine)(nil)

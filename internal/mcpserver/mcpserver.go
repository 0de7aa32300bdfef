// Package mcpserver exposes the schema mutation engine as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/logging"
	"sqliteadmin/internal/output"
)

const (
	serverName    = "sqliteadmin"
	serverVersion = "1.0.0"
)

// Server routes tool calls to a mutator, or to a planner when dry_run is set.
type Server struct {
	mutator engine.Mutator
	planner engine.Mutator
	logger  *slog.Logger
}

// New returns a Server. planner may be nil, in which case dry_run is refused.
func New(mutator, planner engine.Mutator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Server{mutator: mutator, planner: planner, logger: logger}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	dryRun := mcp.WithBoolean("dry_run",
		mcp.Description("Plan the mutation and return its SQL without changing the database"),
	)
	table := mcp.WithString("table", mcp.Required(), mcp.Description("Name of the table"))
	column := mcp.WithString("column", mcp.Required(), mcp.Description("Name of the column"))

	srv.AddTool(mcp.NewTool("describe_table",
		mcp.WithDescription("Show the columns, indexes and stored SQL of a table"),
		table,
	), s.handleDescribeTable)

	srv.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List the user tables of the database"),
	), s.handleListTables)

	srv.AddTool(mcp.NewTool("add_column",
		mcp.WithDescription("Append a column to a table by rebuilding it; existing rows are kept"),
		table, column,
		mcp.WithString("type", mcp.Required(), mcp.Description("Declared type, e.g. INTEGER, TEXT, VARCHAR")),
		mcp.WithNumber("length", mcp.Description("Size suffix for VARCHAR, CHAR and NVARCHAR")),
		mcp.WithBoolean("primary_key", mcp.Description("Make the column the primary key")),
		mcp.WithBoolean("auto_increment", mcp.Description("AUTOINCREMENT; implies primary_key on INTEGER columns")),
		mcp.WithBoolean("not_null", mcp.Description("Add a NOT NULL constraint")),
		mcp.WithString("default", mcp.Description("Default value, stored as a string literal")),
		dryRun,
	), s.handleAddColumn)

	srv.AddTool(mcp.NewTool("delete_column",
		mcp.WithDescription("Remove a column and its data from a table by rebuilding it"),
		table, column, dryRun,
	), s.handleDeleteColumn)

	srv.AddTool(mcp.NewTool("modify_column",
		mcp.WithDescription("Redefine a column by rebuilding the table; unset flags are cleared"),
		table, column,
		mcp.WithString("new_name", mcp.Description("New column name; empty keeps the current one")),
		mcp.WithString("new_type", mcp.Description("New declared type; empty keeps the current one")),
		mcp.WithNumber("length", mcp.Description("Size suffix for VARCHAR, CHAR and NVARCHAR")),
		mcp.WithBoolean("primary_key", mcp.Description("Make the column the primary key")),
		mcp.WithBoolean("auto_increment", mcp.Description("AUTOINCREMENT on an INTEGER primary key")),
		mcp.WithBoolean("not_null", mcp.Description("Add a NOT NULL constraint")),
		mcp.WithString("default", mcp.Description("Default value, stored as a string literal")),
		dryRun,
	), s.handleModifyColumn)

	srv.AddTool(mcp.NewTool("rename_table",
		mcp.WithDescription("Rename a table"),
		table,
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New table name")),
		dryRun,
	), s.handleRenameTable)

	srv.AddTool(mcp.NewTool("rename_column",
		mcp.WithDescription("Rename a column of a table"),
		table, column,
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New column name")),
		dryRun,
	), s.handleRenameColumn)

	return srv
}

// ServeStdio serves tool calls on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp server", "name", serverName)
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) handleDescribeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("table parameter is required"), nil
	}
	t, err := s.mutator.Describe(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f, _ := output.NewFormatter(string(output.FormatSummary))
	summary, err := f.FormatTable(t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summary + "\n" + t.SQL), nil
}

func (s *Server) handleListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := s.mutator.Tables(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tables) == 0 {
		return mcp.NewToolResultText("no tables"), nil
	}
	return mcp.NewToolResultText(strings.Join(tables, "\n")), nil
}

func (s *Server) handleAddColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, column, errResult := requireTableColumn(request)
	if errResult != nil {
		return errResult, nil
	}
	typ, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	req := core.AddColumnRequest{
		Table:         table,
		Column:        column,
		Type:          typ,
		Length:        request.GetInt("length", 0),
		PrimaryKey:    request.GetBool("primary_key", false),
		AutoIncrement: request.GetBool("auto_increment", false),
		NotNull:       request.GetBool("not_null", false),
		Default:       optionalString(request, "default"),
	}
	return s.run(request, "column added", func(m engine.Mutator) (*engine.Result, error) {
		return m.AddColumn(ctx, req)
	})
}

func (s *Server) handleDeleteColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, column, errResult := requireTableColumn(request)
	if errResult != nil {
		return errResult, nil
	}
	req := core.DeleteColumnRequest{Table: table, Column: column}
	return s.run(request, "column deleted", func(m engine.Mutator) (*engine.Result, error) {
		return m.DeleteColumn(ctx, req)
	})
}

func (s *Server) handleModifyColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, column, errResult := requireTableColumn(request)
	if errResult != nil {
		return errResult, nil
	}
	req := core.ModifyColumnRequest{
		Table:         table,
		Column:        column,
		NewName:       request.GetString("new_name", ""),
		NewType:       request.GetString("new_type", ""),
		Length:        request.GetInt("length", 0),
		PrimaryKey:    request.GetBool("primary_key", false),
		AutoIncrement: request.GetBool("auto_increment", false),
		NotNull:       request.GetBool("not_null", false),
		Default:       optionalString(request, "default"),
	}
	return s.run(request, "column modified", func(m engine.Mutator) (*engine.Result, error) {
		return m.ModifyColumn(ctx, req)
	})
}

func (s *Server) handleRenameTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("table parameter is required"), nil
	}
	newName, err := request.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError("new_name parameter is required"), nil
	}
	req := core.RenameTableRequest{Table: table, NewName: newName}
	return s.run(request, "table renamed", func(m engine.Mutator) (*engine.Result, error) {
		return m.RenameTable(ctx, req)
	})
}

func (s *Server) handleRenameColumn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, column, errResult := requireTableColumn(request)
	if errResult != nil {
		return errResult, nil
	}
	newName, err := request.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError("new_name parameter is required"), nil
	}
	req := core.RenameColumnRequest{Table: table, Column: column, NewName: newName}
	return s.run(request, "column renamed", func(m engine.Mutator) (*engine.Result, error) {
		return m.RenameColumn(ctx, req)
	})
}

// run executes fn against the mutator, or the planner when dry_run is set, and
// renders the outcome as a summary followed by the executed SQL.
func (s *Server) run(request mcp.CallToolRequest, done string, fn func(engine.Mutator) (*engine.Result, error)) (*mcp.CallToolResult, error) {
	m := s.mutator
	dry := request.GetBool("dry_run", false)
	if dry {
		if s.planner == nil {
			return mcp.NewToolResultError("dry runs are not available"), nil
		}
		m = s.planner
	}

	res, err := fn(m)
	if err != nil {
		s.logger.Warn("mcp tool failed", "tool", request.Params.Name, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := render(res)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if dry {
		return mcp.NewToolResultText("dry run, nothing was changed:\n\n" + text), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s successfully:\n\n%s", done, text)), nil
}

func render(res *engine.Result) (string, error) {
	summary, _ := output.NewFormatter(string(output.FormatSummary))
	sqlOut, _ := output.NewFormatter(string(output.FormatSQL))

	var sb strings.Builder
	if res.Diff != nil {
		d, err := summary.FormatDiff(res.Diff)
		if err != nil {
			return "", err
		}
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	plan, err := sqlOut.FormatMigration(res.Plan)
	if err != nil {
		return "", err
	}
	sb.WriteString(plan)
	return sb.String(), nil
}

func requireTableColumn(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	table, err := request.RequireString("table")
	if err != nil {
		return "", "", mcp.NewToolResultError("table parameter is required")
	}
	column, err := request.RequireString("column")
	if err != nil {
		return "", "", mcp.NewToolResultError("column parameter is required")
	}
	return table, column, nil
}

// optionalString distinguishes an absent argument from an empty one.
func optionalString(request mcp.CallToolRequest, key string) *string {
	args := request.GetArguments()
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

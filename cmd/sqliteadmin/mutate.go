package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sqliteadmin/internal/core"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/output"
)

// mutationFlags are shared by every schema-changing command.
type mutationFlags struct {
	dryRun bool
	format string
}

func (f *mutationFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "d", false, "Print the planned statements without changing the database")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: sql, json or summary")
}

// columnFlags describe a column definition on the command line.
type columnFlags struct {
	typ           string
	length        int
	primaryKey    bool
	autoIncrement bool
	notNull       bool
	defaultValue  string
}

func (f *columnFlags) register(cmd *cobra.Command, typeFlag string) {
	cmd.Flags().StringVarP(&f.typ, typeFlag, "t", "", "Declared column type, e.g. INTEGER, TEXT, VARCHAR")
	cmd.Flags().IntVar(&f.length, "length", 0, "Size suffix for VARCHAR, CHAR and NVARCHAR")
	cmd.Flags().BoolVar(&f.primaryKey, "pk", false, "Make the column the primary key")
	cmd.Flags().BoolVar(&f.autoIncrement, "autoincrement", false, "AUTOINCREMENT; implies --pk on INTEGER columns")
	cmd.Flags().BoolVar(&f.notNull, "not-null", false, "Add a NOT NULL constraint")
	cmd.Flags().StringVar(&f.defaultValue, "default", "", "Default value, stored as a string literal")
}

func (f *columnFlags) defaultPtr(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("default") {
		return nil
	}
	v := f.defaultValue
	return &v
}

// runMutation opens the database, runs fn against the engine (or its dry-run view)
// and prints the result.
func runMutation(cmd *cobra.Command, configPath, dbPath string, flags *mutationFlags, done string,
	fn func(ctx context.Context, m engine.Mutator) (*engine.Result, error)) error {
	if _, err := output.NewFormatter(flags.format); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx, configPath, dbPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	eng, err := sess.engine()
	if err != nil {
		return err
	}
	var m engine.Mutator = eng
	if flags.dryRun {
		m = eng.DryRun()
	}

	res, err := fn(ctx, m)
	if err != nil {
		return err
	}
	if err := printResult(cmd.OutOrStdout(), flags.format, res); err != nil {
		return err
	}
	if flags.dryRun {
		printInfo(cmd.ErrOrStderr(), flags.format, "Dry run: nothing was changed")
	} else {
		printInfo(cmd.ErrOrStderr(), flags.format, done)
	}
	return nil
}

func columnCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add, delete, modify or rename a column",
	}
	cmd.AddCommand(columnAddCmd(configPath))
	cmd.AddCommand(columnDeleteCmd(configPath))
	cmd.AddCommand(columnModifyCmd(configPath))
	cmd.AddCommand(columnRenameCmd(configPath))
	return cmd
}

func columnAddCmd(configPath *string) *cobra.Command {
	var (
		flags mutationFlags
		col   columnFlags
	)
	cmd := &cobra.Command{
		Use:   "add <db> <table> <column>",
		Short: "Append a column; the table is rebuilt and every row kept",
		Long: `Add appends a column by rebuilding the table: a shadow table with the new
schema is created, rows are copied, the original is dropped and the shadow takes
its name, all inside one transaction.

Examples:
  sqliteadmin column add app.db users age --type INTEGER
  sqliteadmin column add app.db users nickname --type VARCHAR --length 50 --default anon
  sqliteadmin column add app.db users age --type INTEGER --dry-run`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.AddColumnRequest{
				Table:         args[1],
				Column:        args[2],
				Type:          col.typ,
				Length:        col.length,
				PrimaryKey:    col.primaryKey,
				AutoIncrement: col.autoIncrement,
				NotNull:       col.notNull,
				Default:       col.defaultPtr(cmd),
			}
			return runMutation(cmd, *configPath, args[0], &flags, fmt.Sprintf("Column %s added to %s", req.Column, req.Table),
				func(ctx context.Context, m engine.Mutator) (*engine.Result, error) {
					return m.AddColumn(ctx, req)
				})
		},
	}
	flags.register(cmd)
	col.register(cmd, "type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func columnDeleteCmd(configPath *string) *cobra.Command {
	var flags mutationFlags
	cmd := &cobra.Command{
		Use:   "delete <db> <table> <column>",
		Short: "Remove a column and its data",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.DeleteColumnRequest{Table: args[1], Column: args[2]}
			return runMutation(cmd, *configPath, args[0], &flags, fmt.Sprintf("Column %s deleted from %s", req.Column, req.Table),
				func(ctx context.Context, m engine.Mutator) (*engine.Result, error) {
					return m.DeleteColumn(ctx, req)
				})
		},
	}
	flags.register(cmd)
	return cmd
}

func columnModifyCmd(configPath *string) *cobra.Command {
	var (
		flags   mutationFlags
		col     columnFlags
		newName string
	)
	cmd := &cobra.Command{
		Use:   "modify <db> <table> <column>",
		Short: "Redefine a column; flags not given are cleared",
		Long: `Modify rebuilds the table with the column redefined. --name and --type keep the
current values when omitted; --pk, --autoincrement, --not-null and --default are
taken as given, so an omitted flag removes the constraint.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.ModifyColumnRequest{
				Table:         args[1],
				Column:        args[2],
				NewName:       newName,
				NewType:       col.typ,
				Length:        col.length,
				PrimaryKey:    col.primaryKey,
				AutoIncrement: col.autoIncrement,
				NotNull:       col.notNull,
				Default:       col.defaultPtr(cmd),
			}
			return runMutation(cmd, *configPath, args[0], &flags, fmt.Sprintf("Column %s modified in %s", req.Column, req.Table),
				func(ctx context.Context, m engine.Mutator) (*engine.Result, error) {
					return m.ModifyColumn(ctx, req)
				})
		},
	}
	flags.register(cmd)
	col.register(cmd, "type")
	cmd.Flags().StringVar(&newName, "name", "", "New column name")
	return cmd
}

func columnRenameCmd(configPath *string) *cobra.Command {
	var flags mutationFlags
	cmd := &cobra.Command{
		Use:   "rename <db> <table> <column> <new-name>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.RenameColumnRequest{Table: args[1], Column: args[2], NewName: args[3]}
			return runMutation(cmd, *configPath, args[0], &flags, fmt.Sprintf("Column %s renamed to %s", req.Column, req.NewName),
				func(ctx context.Context, m engine.Mutator) (*engine.Result, error) {
					return m.RenameColumn(ctx, req)
				})
		},
	}
	flags.register(cmd)
	return cmd
}

func tableCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Table-level operations",
	}

	var flags mutationFlags
	renameCmd := &cobra.Command{
		Use:   "rename <db> <table> <new-name>",
		Short: "Rename a table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.RenameTableRequest{Table: args[1], NewName: args[2]}
			return runMutation(cmd, *configPath, args[0], &flags, fmt.Sprintf("Table %s renamed to %s", req.Table, req.NewName),
				func(ctx context.Context, m engine.Mutator) (*engine.Result, error) {
					return m.RenameTable(ctx, req)
				})
		},
	}
	flags.register(renameCmd)
	cmd.AddCommand(renameCmd)
	return cmd
}

func structureCmd(configPath *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "structure <db> [table]",
		Short: "Show the structure of a table, or list the tables",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sess, err := openSession(ctx, *configPath, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			eng, err := sess.engine()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				tables, err := eng.Tables(ctx)
				if err != nil {
					return err
				}
				for _, t := range tables {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}

			t, err := eng.Describe(ctx, args[1])
			if err != nil {
				return err
			}
			formatted, err := formatter.FormatTable(t)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), formatted)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatSummary), "Output format: sql, json or summary")
	return cmd
}

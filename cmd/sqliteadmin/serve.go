package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"sqliteadmin/internal/apply"
	"sqliteadmin/internal/browse"
	"sqliteadmin/internal/config"
	"sqliteadmin/internal/mcpserver"
	"sqliteadmin/internal/server"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		listen    string
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "serve <db>",
		Short: "Serve the admin HTTP API for a database file",
		Long: `Serve opens the database and serves the JSON API used by the admin UI.
The database file is created when it does not exist.

Examples:
  sqliteadmin serve app.db
  sqliteadmin serve app.db --listen 0.0.0.0:9000 --no-browser`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(ctx, *configPath, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			eng, err := sess.engine()
			if err != nil {
				return err
			}
			data, err := browse.New(sess.db, browse.Options{
				Naming: eng.Naming(),
				Logger: sess.logger,
				Locks:  sess.locks,
			})
			if err != nil {
				return err
			}
			srv, err := server.New(server.Options{
				Mutator:  eng,
				Planner:  eng.DryRun(),
				Browse:   data,
				DB:       sess.db,
				Settings: config.NewStore(*configPath, sess.settings),
				Database: args[0],
				Logger:   sess.logger,
			})
			if err != nil {
				return err
			}

			addr := sess.settings.Listen
			if cmd.Flags().Changed("listen") {
				addr = listen
			}
			if sess.settings.OpenBrowser && !noBrowser {
				go openBrowser(sess, "http://"+addr)
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (default from settings)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser window")
	return cmd
}

func openBrowser(sess *session, url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	if err := c.Start(); err != nil {
		sess.logger.Debug("failed to open browser", "url", url, "error", err)
		return
	}
	_ = c.Wait()
}

func mcpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp <db>",
		Short: "Serve schema tools over the Model Context Protocol on stdio",
		Long: `Mcp exposes describe, list and the column and table mutations as MCP tools.
Logs go to stderr; stdout carries the protocol.

Examples:
  sqliteadmin mcp app.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sess, err := openSession(ctx, *configPath, args[0], os.Stderr)
			if err != nil {
				return err
			}
			defer sess.close()

			eng, err := sess.engine()
			if err != nil {
				return err
			}
			return mcpserver.New(eng, eng.DryRun(), sess.logger).ServeStdio()
		},
	}
}

func importCmd(configPath *string) *cobra.Command {
	var (
		dryRun      bool
		transaction bool
		unsafe      bool
	)
	cmd := &cobra.Command{
		Use:   "import <db> <file.sql>",
		Short: "Apply a SQL script to a database",
		Long: `Import splits the script into statements, checks them for destructive
operations and runs them. Destructive statements (DROP, DELETE without WHERE, ...)
require --unsafe.

Examples:
  sqliteadmin import app.db schema.sql --dry-run
  sqliteadmin import app.db schema.sql --transaction
  sqliteadmin import app.db cleanup.sql --unsafe`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sess, err := openSession(ctx, *configPath, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			applier := apply.NewApplier(sess.db, apply.Options{
				FilePath:    args[1],
				DryRun:      dryRun,
				Transaction: transaction,
				Unsafe:      unsafe,
				Out:         cmd.OutOrStdout(),
			})
			statements, err := applier.LoadFile()
			if err != nil {
				return fmt.Errorf("failed to load script: %w", err)
			}
			results, err := applier.Apply(ctx, statements, nil)
			if err != nil {
				return err
			}
			for _, r := range results {
				if !r.OK {
					return fmt.Errorf("%d statement(s) failed", countFailed(results))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Show preflight checks and statements without applying")
	cmd.Flags().BoolVarP(&transaction, "transaction", "t", false, "Apply all statements in one transaction")
	cmd.Flags().BoolVarP(&unsafe, "unsafe", "u", false, "Allow destructive statements")
	return cmd
}

func countFailed(results []apply.StatementResult) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}

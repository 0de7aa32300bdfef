// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sqliteadmin/internal/config"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/lock"
	"sqliteadmin/internal/logging"
	"sqliteadmin/internal/output"
	"sqliteadmin/internal/sqlitedb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sqliteadmin",
		Short:         "SQLite administration tool with safe schema mutations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Path to the settings file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(mcpCmd(&configPath))
	rootCmd.AddCommand(structureCmd(&configPath))
	rootCmd.AddCommand(columnCmd(&configPath))
	rootCmd.AddCommand(tableCmd(&configPath))
	rootCmd.AddCommand(importCmd(&configPath))
	return rootCmd
}

// session is everything a command needs to work on one database file.
type session struct {
	db       *sql.DB
	settings config.Settings
	logger   *slog.Logger
	locks    *lock.Tables
}

func openSession(ctx context.Context, configPath, dbPath string, logOut io.Writer) (*session, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logOut, logging.ParseLevel(settings.Log.Level), logging.ParseFormat(settings.Log.Format))

	db, err := sqlitedb.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return &session{db: db, settings: settings, logger: logger, locks: lock.NewTables()}, nil
}

func (s *session) engine() (*engine.Engine, error) {
	return engine.New(s.db, engine.Options{
		StrictIdentifiers: s.settings.StrictIdentifiers,
		Logger:            s.logger,
		Locks:             s.locks,
	})
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("failed to close database", "error", err)
	}
}

func printInfo(w io.Writer, format string, msg string) {
	if strings.EqualFold(strings.TrimSpace(format), string(output.FormatJSON)) {
		return
	}
	_, _ = fmt.Fprintln(w, msg)
}

// printResult writes a mutation result: the whole result as JSON, or the plan
// followed by the column diff for the text formats.
func printResult(w io.Writer, format string, res *engine.Result) error {
	if strings.EqualFold(strings.TrimSpace(format), string(output.FormatJSON)) {
		raw, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}
	plan, err := formatter.FormatMigration(res.Plan)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if _, err := fmt.Fprint(w, plan); err != nil {
		return err
	}
	if res.Diff == nil {
		return nil
	}
	d, err := formatter.FormatDiff(res.Diff)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprint(w, "\n"+d)
	return err
}

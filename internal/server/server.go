// Package server exposes the schema mutation engine and the data browser as a
// JSON API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sqliteadmin/internal/browse"
	"sqliteadmin/internal/config"
	"sqliteadmin/internal/engine"
	"sqliteadmin/internal/logging"
)

// maxBodyBytes caps request bodies, CSV and SQL uploads included.
const maxBodyBytes = 32 << 20

// Options wires a Server to its collaborators.
type Options struct {
	// Mutator executes schema mutations.
	Mutator engine.Mutator
	// Planner plans mutations without executing them; used for ?dry_run=true.
	Planner engine.Mutator
	Browse  *browse.Service
	// DB is the handle SQL scripts are applied to.
	DB       *sql.DB
	Settings *config.Store
	// Database names the open file in health output and startup logs.
	Database string
	Logger   *slog.Logger
}

// Server routes API requests.
type Server struct {
	mutator  engine.Mutator
	planner  engine.Mutator
	data     *browse.Service
	db       *sql.DB
	settings *config.Store
	database string
	logger   *slog.Logger
	mux      *http.ServeMux
	started  time.Time
}

// New validates opts and builds the route table.
func New(opts Options) (*Server, error) {
	if opts.Mutator == nil {
		return nil, errors.New("server: mutator is required")
	}
	if opts.Browse == nil {
		return nil, errors.New("server: browse service is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("server: settings store is required")
	}
	planner := opts.Planner
	if planner == nil {
		planner = opts.Mutator
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	s := &Server{
		mutator:  opts.Mutator,
		planner:  planner,
		data:     opts.Browse,
		db:       opts.DB,
		settings: opts.Settings,
		database: opts.Database,
		logger:   logger,
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/tables", s.handleListTables)
	s.mux.HandleFunc("POST /api/tables", s.handleCreateTable)
	s.mux.HandleFunc("DELETE /api/tables/{name}", s.handleDropTable)
	s.mux.HandleFunc("POST /api/tables/{name}/rename", s.handleRenameTable)
	s.mux.HandleFunc("GET /api/tables/{name}/structure", s.handleStructure)

	s.mux.HandleFunc("POST /api/tables/{name}/columns", s.handleAddColumn)
	s.mux.HandleFunc("PUT /api/tables/{name}/columns/{column}", s.handleModifyColumn)
	s.mux.HandleFunc("DELETE /api/tables/{name}/columns/{column}", s.handleDeleteColumn)
	s.mux.HandleFunc("POST /api/tables/{name}/columns/{column}/rename", s.handleRenameColumn)

	s.mux.HandleFunc("GET /api/tables/{name}/rows", s.handleRows)
	s.mux.HandleFunc("POST /api/tables/{name}/rows", s.handleInsertRow)
	s.mux.HandleFunc("PUT /api/tables/{name}/rows/{id}", s.handleUpdateRow)
	s.mux.HandleFunc("DELETE /api/tables/{name}/rows/{id}", s.handleDeleteRow)

	s.mux.HandleFunc("GET /api/tables/{name}/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /api/tables/{name}/export.json", s.handleExportJSON)
	s.mux.HandleFunc("POST /api/tables/{name}/import", s.handleImportCSV)

	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("POST /api/import-sql", s.handleImportSQL)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/settings", s.handleSaveSettings)
}

// Handler returns the route table behind request id and access log middleware.
func (s *Server) Handler() http.Handler {
	return logging.CombinedMiddleware(s.logger, s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup(s.logger, addr, s.database)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped", "addr", addr)
		return nil
	}
}

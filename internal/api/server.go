// Package api serves the carenote HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/ameistad/carenote/internal/parser"
	"github.com/ameistad/carenote/internal/weekly"
)

const (
	defaultContextTimeout = 15 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

// Options holds the dependencies of the API server.
type Options struct {
	// APIToken guards every /v1 route. An empty token refuses all of them.
	APIToken   string
	UploadsDir string
	LogLevel   slog.Level
	RecordYear int

	DB        *db.DB
	Evaluator *evaluation.Service
	Weekly    *weekly.Service
	LogBroker *logging.LogBroker
	Logger    *slog.Logger
}

type APIServer struct {
	router     *http.ServeMux
	apiToken   string
	uploadsDir string
	logLevel   slog.Level
	logBroker  *logging.LogBroker
	logger     *slog.Logger
	db         *db.DB
	evaluator  *evaluation.Service
	weekly     *weekly.Service
	parser     *parser.Parser

	jobs       *jobTracker
	background sync.WaitGroup
}

func NewServer(opts Options) *APIServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	broker := opts.LogBroker
	if broker == nil {
		broker = logging.NewLogBroker()
	}
	s := &APIServer{
		router:     http.NewServeMux(),
		apiToken:   opts.APIToken,
		uploadsDir: opts.UploadsDir,
		logLevel:   opts.LogLevel,
		logBroker:  broker,
		logger:     logger,
		db:         opts.DB,
		evaluator:  opts.Evaluator,
		weekly:     opts.Weekly,
		parser:     parser.New(opts.RecordYear, logger),
		jobs:       newJobTracker(),
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully and waits for running jobs.
func (s *APIServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Log streams end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	s.background.Wait()
	return nil
}

// Package server runs the REST API and the MCP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brizzai/signalbind/internal/apispec"
	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/metrics"
	"github.com/brizzai/signalbind/internal/server/handler"
	"github.com/brizzai/signalbind/internal/server/tool"
	"github.com/brizzai/signalbind/internal/verification"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server serves the verification operations over HTTP and MCP.
type Server struct {
	config  *config.Config
	mcp     *mcpserver.MCPServer
	handler *handler.Handler
	tool    *tool.Handler
}

// Params holds the server dependencies. Metrics is optional.
type Params struct {
	fx.In

	Config  *config.Config
	Service *verification.Service
	Spec    *apispec.Spec
	Metrics *metrics.Collector `optional:"true"`
}

// NewServer creates a server and registers the MCP tools.
func NewServer(p Params) (*Server, error) {
	if p.Config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if p.Service == nil {
		return nil, errors.New("verification service cannot be nil")
	}

	var (
		recorder    handler.RequestRecorder
		metricsHTTP http.Handler
	)
	if p.Metrics != nil {
		recorder = p.Metrics
		metricsHTTP = p.Metrics.Handler()
	}

	srv := &Server{
		config:  p.Config,
		mcp:     mcpserver.NewMCPServer(p.Config.Server.Name, p.Config.Server.Version),
		handler: handler.NewHandler(p.Service, p.Spec, recorder, metricsHTTP),
		tool:    tool.NewHandler(p.Service),
	}

	for _, reg := range srv.tool.Tools() {
		srv.mcp.AddTool(reg.Tool, mcpserver.ToolHandlerFunc(reg.Handler))
	}
	return srv, nil
}

// Handler returns the HTTP handler serving the REST routes and /mcp.
func (s *Server) Handler() http.Handler {
	return s.handler.CreateHTTPHandler(mcpserver.NewStreamableHTTPServer(s.mcp))
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Server listening", zap.String("address", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start blocks serving in the configured mode until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
	)

	switch s.config.Server.Mode {
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO:
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// register runs the server for the lifetime of the fx app and shuts the app
// down if serving fails.
func register(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *Server) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := srv.Start(ctx); err != nil {
					logger.Error("Server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// Module provides the server and starts it with the application
var Module = fx.Module("server",
	fx.Provide(
		apispec.Load,
		NewServer,
	),
	fx.Invoke(register),
)

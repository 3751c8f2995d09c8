// Package mcpserver exposes the knowledge base as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/CampusRAG/internal/rag"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

type Server struct {
	service rag.Service
	server  *mcp.Server
	logger  *logger_i.Logger
}

func New(service rag.Service) (*Server, error) {
	if service == nil {
		return nil, errors.New("knowledge base service is required")
	}
	s := &Server{
		service: service,
		server:  mcp.NewServer(&mcp.Implementation{Name: "campusrag", Version: Version}, nil),
		logger:  logger_i.NewLogger("MCPServer"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	s.logger.Info("Serving MCP over http", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

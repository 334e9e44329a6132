// Package mcp exposes forecasting over the Model Context Protocol.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"mcs-forecast/internal/config"
	"mcs-forecast/internal/history"
)

// Server holds the state for the MCP server.
type Server struct {
	cfg     *config.AppConfig
	version string

	server *sdk.Server
}

// NewServer creates a new MCP server backed by the configured history store.
func NewServer(cfg *config.AppConfig, version string) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		version: version,
	}

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    "mcs-forecast",
		Version: version,
	}, nil)

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serve runs the server over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.version).Str("store", s.cfg.StorePath()).Msg("Starting MCP server on stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session on the given transport.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// items reads the store from disk on every call, so items synced or removed
// by another process while the server runs are reflected in the next forecast.
func (s *Server) items() ([]history.CompletedItem, error) {
	store := history.NewStore()
	if err := store.Load(s.cfg.StorePath()); err != nil {
		return nil, err
	}
	return store.Items(), nil
}

package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/dirstream/internal/domain/directory"
)

// DirectoryService defines the one-shot fetch operations exposed as tools.
type DirectoryService interface {
	GetUsers(ctx context.Context) ([]directory.User, error)
	GetProjects(ctx context.Context) ([]directory.Project, error)
	GetUserByID(ctx context.Context, id string) (*directory.User, error)
	GetProjectByID(ctx context.Context, id string) (*directory.Project, error)
}

// Config contains server configuration.
type Config struct {
	Directory DirectoryService
	Version   string
	Logger    *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "dirstream",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Directory)

	return server
}

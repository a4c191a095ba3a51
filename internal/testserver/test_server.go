package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
	"github.com/rpggio/dirstream/internal/mcp"
	"github.com/rpggio/dirstream/internal/metrics"
	"github.com/rpggio/dirstream/internal/sqlite"
	"github.com/rpggio/dirstream/internal/transport"
	"github.com/stretchr/testify/require"
)

// Options tunes a TestServer. The zero value streams without pacing.
type Options struct {
	Pacing        time.Duration
	Latency       time.Duration
	LookupLatency time.Duration
	// Provider replaces the seeded sqlite directory as the stream source.
	Provider directory.Provider
}

// TestServer runs the full HTTP surface over a seeded in-memory database.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Hub      *transport.Hub
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	repo := sqlite.NewDirectoryRepository(db)
	_, err = repo.SeedIfEmpty(context.Background(), directory.SampleUsers(), directory.SampleProjects())
	require.NoError(t, err)

	provider := opts.Provider
	if provider == nil {
		provider = repo
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	handler := stream.NewHandler(stream.NewSource(provider, opts.Pacing, nil), m, nil)
	hub := transport.NewHub(handler, nil)

	svc := directory.NewService(repo, directory.ServiceOptions{
		Latency:       opts.Latency,
		LookupLatency: opts.LookupLatency,
	}, nil)
	mcpServer := mcp.NewServer(mcp.Config{Directory: svc})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Hub:      hub,
		MCP:      mcpHandler,
		Gatherer: registry,
	}))

	t.Cleanup(func() {
		hub.Close()
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:   server,
		DB:       db,
		Hub:      hub,
		Registry: registry,
		Metrics:  m,
	}
}

// HubURL returns the websocket address of the stream hub.
func (ts *TestServer) HubURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/hub"
}

// MCPURL returns the address of the fetch tools endpoint.
func (ts *TestServer) MCPURL() string {
	return ts.Server.URL + "/mcp"
}

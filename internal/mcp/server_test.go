package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/repository"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, svc DirectoryService) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	server := NewServer(Config{Directory: svc})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		_ = serverSession.Close()
	})
	return session
}

func sampleService() DirectoryService {
	return directory.NewService(directory.NewSampleRepository(), directory.ServiceOptions{}, nil)
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	return result
}

func textOf(t *testing.T, result *sdkmcp.CallToolResult) string {
	t.Helper()
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("no text content")
	return ""
}

func decode[T any](t *testing.T, result *sdkmcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, textOf(t, result))
	var out T
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))
	return out
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, sampleService())

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"get_users", "get_projects", "get_user_by_id", "get_project_by_id"}, names)
}

func TestServer_GetUsers(t *testing.T) {
	session := connect(t, sampleService())

	out := decode[UsersOutput](t, callTool(t, session, "get_users", nil))
	require.Equal(t, directory.SampleUsers(), out.Users)
}

func TestServer_GetProjects(t *testing.T) {
	session := connect(t, sampleService())

	out := decode[ProjectsOutput](t, callTool(t, session, "get_projects", nil))
	require.Len(t, out.Projects, 3)
	users := directory.SampleUsers()
	for _, proj := range out.Projects {
		require.Contains(t, users, proj.Owner)
	}
}

func TestServer_Lookups(t *testing.T) {
	session := connect(t, sampleService())
	users := directory.SampleUsers()
	projects := directory.SampleProjects()

	user := decode[UserOutput](t, callTool(t, session, "get_user_by_id", map[string]any{"id": users[2].ID}))
	require.NotNil(t, user.User)
	require.Equal(t, users[2], *user.User)

	missing := decode[UserOutput](t, callTool(t, session, "get_user_by_id", map[string]any{"id": "nobody"}))
	require.Nil(t, missing.User)

	proj := decode[ProjectOutput](t, callTool(t, session, "get_project_by_id", map[string]any{"id": projects[1].ID}))
	require.NotNil(t, proj.Project)
	require.Equal(t, projects[1], *proj.Project)

	none := decode[ProjectOutput](t, callTool(t, session, "get_project_by_id", map[string]any{"id": "nothing"}))
	require.Nil(t, none.Project)
}

func TestServer_EmptyIDIsToolError(t *testing.T) {
	session := connect(t, sampleService())

	result := callTool(t, session, "get_user_by_id", map[string]any{"id": ""})
	require.True(t, result.IsError)
	require.Contains(t, textOf(t, result), "INVALID_ID")
}

type failingService struct {
	DirectoryService
}

func (failingService) GetUsers(context.Context) ([]directory.User, error) {
	return nil, errors.New("backend unavailable")
}

func TestServer_ServiceErrorIsToolError(t *testing.T) {
	session := connect(t, failingService{DirectoryService: sampleService()})

	result := callTool(t, session, "get_users", nil)
	require.True(t, result.IsError)
	require.Contains(t, textOf(t, result), "backend unavailable")
}

func TestServer_StreamingDoc(t *testing.T) {
	session := connect(t, sampleService())

	res, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "dirstream://docs/streaming"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "receiveUserChunk")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{err: fmt.Errorf("failed to fetch user: %w", directory.ErrInvalidID), code: "INVALID_ID"},
		{err: repository.ErrNotFound, code: "NOT_FOUND"},
		{err: directory.ErrUnknownKind, code: "UNKNOWN_KIND"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := MapError(tt.err)
			require.NotNil(t, apiErr)
			require.Equal(t, tt.code, apiErr.Code)
			require.ErrorIs(t, apiErr, tt.err)
		})
	}
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("other")))
}

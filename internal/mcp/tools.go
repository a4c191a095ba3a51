package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/dirstream/internal/domain/directory"
)

// ListInput is the empty argument object of the list tools.
type ListInput struct{}

// LookupInput selects one record by id.
type LookupInput struct {
	ID string `json:"id" jsonschema:"record identifier"`
}

// UsersOutput wraps the user list.
type UsersOutput struct {
	Users []directory.User `json:"users"`
}

// ProjectsOutput wraps the project list.
type ProjectsOutput struct {
	Projects []directory.Project `json:"projects"`
}

// UserOutput holds a lookup result. User is null when no user matches.
type UserOutput struct {
	User *directory.User `json:"user"`
}

// ProjectOutput holds a lookup result. Project is null when no project matches.
type ProjectOutput struct {
	Project *directory.Project `json:"project"`
}

func registerTools(server *sdkmcp.Server, svc DirectoryService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_users",
		Description: "List every user in directory order",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListInput) (*sdkmcp.CallToolResult, UsersOutput, error) {
		users, err := svc.GetUsers(ctx)
		if err != nil {
			return nil, UsersOutput{}, toolError(err)
		}
		if users == nil {
			users = []directory.User{}
		}
		return nil, UsersOutput{Users: users}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_projects",
		Description: "List every project in directory order, each with its owner embedded",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListInput) (*sdkmcp.CallToolResult, ProjectsOutput, error) {
		projects, err := svc.GetProjects(ctx)
		if err != nil {
			return nil, ProjectsOutput{}, toolError(err)
		}
		if projects == nil {
			projects = []directory.Project{}
		}
		return nil, ProjectsOutput{Projects: projects}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_user_by_id",
		Description: "Get one user by id; the user field is null when nothing matches",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in LookupInput) (*sdkmcp.CallToolResult, UserOutput, error) {
		user, err := svc.GetUserByID(ctx, in.ID)
		if err != nil {
			return nil, UserOutput{}, toolError(err)
		}
		return nil, UserOutput{User: user}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project_by_id",
		Description: "Get one project by id; the project field is null when nothing matches",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in LookupInput) (*sdkmcp.CallToolResult, ProjectOutput, error) {
		proj, err := svc.GetProjectByID(ctx, in.ID)
		if err != nil {
			return nil, ProjectOutput{}, toolError(err)
		}
		return nil, ProjectOutput{Project: proj}, nil
	})
}

func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

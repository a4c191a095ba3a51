package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const defaultMCPURL = "http://localhost:8080/mcp"

func newFetchCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a whole collection or one record in a single response",
	}
	cmd.PersistentFlags().StringVar(&url, "url", defaultMCPURL, "Server MCP endpoint URL")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "Fetch every user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runFetch(cmd, url, "get_users", map[string]any{})
			},
		},
		&cobra.Command{
			Use:   "projects",
			Short: "Fetch every project",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runFetch(cmd, url, "get_projects", map[string]any{})
			},
		},
		&cobra.Command{
			Use:   "user <id>",
			Short: "Fetch one user by id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFetch(cmd, url, "get_user_by_id", map[string]any{"id": args[0]})
			},
		},
		&cobra.Command{
			Use:   "project <id>",
			Short: "Fetch one project by id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFetch(cmd, url, "get_project_by_id", map[string]any{"id": args[0]})
			},
		},
	)

	return cmd
}

func runFetch(cmd *cobra.Command, url, tool string, args map[string]any) error {
	ctx := cmd.Context()

	mcpClient := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "streamctl", Version: version}, nil)
	session, err := mcpClient.Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: url}, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("call %s: %w", tool, err)
	}

	text := resultText(result)
	if result.IsError {
		return errors.New(text)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(text), "", "  "); err != nil {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return err
}

func resultText(result *sdkmcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

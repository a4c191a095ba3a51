package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStreamUsersPrintsProgress(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	stdout, _, err := executeCLI(t, "stream", "users", "--url", ts.HubURL())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "[1/5] Adele Vance <"))
	assert.True(t, strings.HasPrefix(lines[4], "[5/5] "))
	assert.Equal(t, "received 5 users", lines[5])
}

func TestStreamProjectsJSONOutput(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	stdout, _, err := executeCLI(t, "stream", "projects", "--url", ts.HubURL(), "--json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	want := directory.SampleProjects()
	require.Len(t, lines, len(want))
	for i, line := range lines {
		var p directory.Project
		require.NoError(t, json.Unmarshal([]byte(line), &p))
		assert.Equal(t, want[i], p)
	}
}

func TestStreamRejectsUnknownKind(t *testing.T) {
	_, _, err := executeCLI(t, "stream", "tasks", "--url", "ws://127.0.0.1:1/hub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
}

func TestStreamConnectFailure(t *testing.T) {
	_, _, err := executeCLI(t, "stream", "users", "--url", "ws://127.0.0.1:1/hub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestFetchUsers(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	stdout, _, err := executeCLI(t, "fetch", "users", "--url", ts.MCPURL())
	require.NoError(t, err)

	var out struct {
		Users []directory.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, directory.SampleUsers(), out.Users)
}

func TestFetchProjectByID(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	want := directory.SampleProjects()[2]

	stdout, _, err := executeCLI(t, "fetch", "project", want.ID, "--url", ts.MCPURL())
	require.NoError(t, err)

	var out struct {
		Project *directory.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.NotNil(t, out.Project)
	assert.Equal(t, want, *out.Project)
}

func TestFetchUnknownUserIsNull(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	stdout, _, err := executeCLI(t, "fetch", "user", "missing", "--url", ts.MCPURL())
	require.NoError(t, err)
	assert.JSONEq(t, `{"user": null}`, stdout)
}

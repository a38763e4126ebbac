package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/artifacts-client/cmd/artifacts/commands"
	"github.com/fivetwenty-io/artifacts-client/internal/fakeserver"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

const notebookYAML = `name: daily
properties:
  description: daily report
  nbformat: 4
  nbformat_minor: 2
  metadata: {}
  cells:
    - cell_type: code
      metadata: {}
      source:
        - print(1)
`

type cliResult struct {
	stdout string
	stderr string
}

// runCLI executes the command tree with a fresh viper state.
func runCLI(t *testing.T, stdin string, setup func(), args ...string) (cliResult, error) {
	t.Helper()

	viper.Reset()

	root := commands.NewRootCommand("1.2.3", "abc123", "2026-01-01")

	if setup != nil {
		setup()
	}

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

func writeNotebookFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(notebookYAML), 0o600))

	return path
}

func TestNewRootCommand(t *testing.T) {
	root := commands.NewRootCommand("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "artifacts", root.Use)

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	for _, expected := range []string{"version", "config", "notebooks", "operations", "list", "get", "serve"} {
		assert.Contains(t, names, expected)
	}

	for _, flag := range []string{"endpoint", "token", "api-version", "output", "verbose", "handle-store", "nats-url"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "Flag %s should exist", flag)
	}

	notebooks := findSubcommand(root, "notebooks")
	require.NotNil(t, notebooks)
	assert.Len(t, notebooks.Commands(), 5)
}

func TestVersionCommand(t *testing.T) {
	result, err := runCLI(t, "", nil, "version", "--output", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])

	result, err = runCLI(t, "", nil, "version", "--output", "table")
	require.NoError(t, err)
	assert.Contains(t, result.stdout, "1.2.3")
}

func TestNotebooksRequireEndpoint(t *testing.T) {
	_, err := runCLI(t, "", nil, "notebooks", "list", "--output", "json")
	require.ErrorIs(t, err, commands.ErrNoEndpoint)
}

func TestNotebooksLifecycle(t *testing.T) { //nolint:funlen
	server := httptest.NewServer(fakeserver.New(fakeserver.Options{PageSize: 1}))
	defer server.Close()

	file := writeNotebookFile(t)
	base := []string{"--endpoint", server.URL, "--token", "cli-token", "--output", "json"}

	result, err := runCLI(t, "", nil, append([]string{"notebooks", "put", "daily", "--file", file}, base...)...)
	require.NoError(t, err)

	var written artifacts.NotebookResource
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &written))
	assert.Equal(t, "daily", written.Name)
	assert.Equal(t, "daily report", written.Properties.Description)
	require.NotEmpty(t, written.Etag)

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "get", "daily", "--if-none-match", written.Etag}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, result.stdout, "not modified")

	_, err = runCLI(t, "", nil, append([]string{"notebooks", "put", "weekly", "--file", file}, base...)...)
	require.NoError(t, err)

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "list"}, base...)...)
	require.NoError(t, err)

	var listed []artifacts.NotebookResource
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "daily", listed[0].Name)
	assert.Equal(t, "weekly", listed[1].Name)

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "list", "--max-pages", "1"}, base...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &listed))
	assert.Len(t, listed, 1)

	_, err = runCLI(t, "", nil, append([]string{"notebooks", "rename", "daily", "weekly"}, base...)...)
	require.ErrorIs(t, err, artifacts.ErrConflict)

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "rename", "daily", "monthly"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, result.stdout, "Renamed notebook daily to monthly")

	result, err = runCLI(t, "", nil, append([]string{"list", "notebooks", "--summary"}, base...)...)
	require.NoError(t, err)

	var raw []artifacts.Artifact
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "monthly", raw[0].Name)

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "delete", "monthly", "weekly", "missing"}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(result.stdout, "Deleted notebook"))

	_, err = runCLI(t, "", nil, append([]string{"get", "notebooks", "monthly"}, base...)...)
	require.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestNotebooksDeleteAggregatesFailures(t *testing.T) {
	fake := fakeserver.New(fakeserver.Options{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/broken") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":"InternalError","message":"boom"}}`))

			return
		}

		fake.ServeHTTP(w, r)
	}))
	defer server.Close()

	result, err := runCLI(t, "", nil, "notebooks", "delete", "a", "broken", "b", "--endpoint", server.URL, "--output", "json")
	require.Error(t, err)
	require.ErrorIs(t, err, artifacts.ErrUnknownServer)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 2, strings.Count(result.stdout, "Deleted notebook"))
}

func TestNotebooksNoWaitAndResume(t *testing.T) {
	server := httptest.NewServer(fakeserver.New(fakeserver.Options{Mode: fakeserver.ModeAsync, PollsBeforeDone: 1}))
	defer server.Close()

	file := writeNotebookFile(t)
	base := []string{"--endpoint", server.URL, "--output", "json", "--poll-interval", "5ms"}

	result, err := runCLI(t, "", nil, append([]string{"notebooks", "put", "daily", "--file", file, "--no-wait"}, base...)...)
	require.NoError(t, err)

	var started map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &started))
	assert.Equal(t, "put", started["operation"])
	assert.Equal(t, string(artifacts.OperationStateAccepted), started["state"])
	require.NotEmpty(t, started["handle_id"])
	require.NotEmpty(t, started["resume_token"])

	result, err = runCLI(t, "", nil, append([]string{"operations", "wait", started["handle_id"]}, base...)...)
	require.NoError(t, err)

	var written artifacts.NotebookResource
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &written))
	assert.Equal(t, "daily", written.Name)

	_, err = runCLI(t, "", nil, append([]string{"operations", "wait", started["handle_id"]}, base...)...)
	require.ErrorIs(t, err, artifacts.ErrHandleNotFound, "handles are forgotten once the operation finished")

	result, err = runCLI(t, "", nil, append([]string{"notebooks", "delete", "daily", "--no-wait"}, base...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &started))

	result, err = runCLI(t, "", nil, append([]string{"operations", "status", started["resume_token"]}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, result.stdout, string(artifacts.OperationStateInProgress))

	result, err = runCLI(t, "", nil, append([]string{"operations", "wait", started["resume_token"]}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, result.stdout, "Succeeded")
}

func TestOperationsWaitRejectsGarbage(t *testing.T) {
	_, err := runCLI(t, "", nil, "operations", "wait", "not-a-token", "--endpoint", "http://127.0.0.1:1", "--output", "json")
	require.ErrorIs(t, err, artifacts.ErrInvalidResumeToken)
}

func TestConfigCommands(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yml")
	useConfig := func() { viper.SetConfigFile(configFile) }

	result, err := runCLI(t, "", useConfig, "config", "set", "endpoint", "https://ws.example.net")
	require.NoError(t, err)
	assert.Contains(t, result.stdout, "Set endpoint")

	_, err = runCLI(t, "", useConfig, "config", "set", "colour", "blue")
	require.ErrorIs(t, err, commands.ErrUnknownConfigKey)

	_, err = runCLI(t, "secret-token\n", useConfig, "config", "set-token")
	require.NoError(t, err)

	_, err = runCLI(t, "\n", useConfig, "config", "set-token")
	require.ErrorIs(t, err, commands.ErrEmptyToken)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "endpoint: https://ws.example.net")
	assert.Contains(t, string(data), "token: secret-token")

	result, err = runCLI(t, "", nil, "config", "show", "--token", "secret-token", "--output", "json")
	require.NoError(t, err)
	assert.NotContains(t, result.stdout, "secret-token")
	assert.Contains(t, result.stdout, "***")

	_, err = runCLI(t, "", nil, "config", "show", "--output", "xml")
	require.ErrorIs(t, err, commands.ErrUnsupportedOutput)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := commands.NewLogger(&buf, false)
	logger.Debug("hidden", nil)
	logger.Info("shown", map[string]interface{}{"status": 200})
	logger.Warn("careful", nil)
	logger.Error("failed", map[string]interface{}{"error": "boom"})

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "shown")
	assert.Contains(t, output, "status=200")
	assert.Contains(t, output, "careful")
	assert.Contains(t, output, "error=boom")

	buf.Reset()

	verbose := commands.NewLogger(&buf, true)
	verbose.Debug("HTTP Request", map[string]interface{}{"method": "GET"})
	assert.Contains(t, buf.String(), "HTTP Request")
}

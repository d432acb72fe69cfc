package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/loopwork-ai/infinity-mcp/internal/config"
	"github.com/loopwork-ai/infinity-mcp/internal/logging"
)

// resetFlags restores every flag to its default between command executions
func resetFlags(t *testing.T) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	checkCmd.Flags().VisitAll(reset)
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func newSQLAPI(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/databases":
			w.Write([]byte(`["master","sales"]`))
		case "/api/query/execute":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode([]map[string]string{{"query": body["query"], "database": body["database"]}})
		case "/swagger/v1/swagger.json":
			w.Write([]byte(`{
				"openapi": "3.0.1",
				"info": {"title": "SqlApi", "version": "v1"},
				"paths": {
					"/api/query/execute": {"post": {"responses": {"200": {"description": "OK"}}}},
					"/api/databases": {"get": {"responses": {"200": {"description": "OK"}}}},
					"/api/schema/{database}/{table}": {"get": {"responses": {"200": {"description": "OK"}}}}
				}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestConfigCommand_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://file:7000\nretries: 1\nrps: 2\n"), 0o644))

	t.Setenv(config.EnvAPIURL, "http://env:7000")
	t.Setenv(config.EnvRetries, "4")

	out, err := executeCommand(t, "config", "--config", path, "--retries", "9", "--auth", "Bearer secret")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "http://env:7000", cfg.APIURL, "env overrides the file")
	assert.Equal(t, 9, cfg.Retries, "flags override env")
	assert.Equal(t, 2, cfg.RPS, "file overrides defaults")
	assert.Equal(t, "REDACTED", cfg.Auth)
}

func TestConfigCommand_Invalid(t *testing.T) {
	_, err := executeCommand(t, "config", "--api-url", "not a url")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	ts := newSQLAPI(t)

	out, err := executeCommand(t, "check", "--api-url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "SqlApi v1")
	assert.Contains(t, out, "ok       POST /api/query/execute")
	assert.NotContains(t, out, "missing")

	_, err = executeCommand(t, "check", "--api-url", ts.URL, "--spec-path", "/nowhere.json")
	assert.Error(t, err)
}

func TestNewHTTPClient(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.Retries = 0
	client := newHTTPClient(cfg, "Bearer token123", logging.Discard())

	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer token123", got.Get("Authorization"))
	assert.Equal(t, "infinity-mcp/"+version, got.Get("User-Agent"))
}

func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	binaryPath := filepath.Join(t.TempDir(), "infinity-mcp")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	require.NoError(t, buildCmd.Run(), "Failed to build infinity-mcp binary")

	ts := newSQLAPI(t)

	cmd := exec.Command(binaryPath)
	cmd.Env = append(os.Environ(), config.EnvAPIURL+"="+ts.URL)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	scanner := bufio.NewScanner(stdout)
	send := func(line string) map[string]interface{} {
		t.Helper()

		_, err := stdin.Write([]byte(line + "\n"))
		require.NoError(t, err)
		require.True(t, scanner.Scan(), "no response for %s", line)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &response))
		return response
	}
	text := func(response map[string]interface{}) string {
		t.Helper()

		result, ok := response["result"].(map[string]interface{})
		require.True(t, ok, "response has no result: %v", response)
		content := result["content"].([]interface{})
		require.Len(t, content, 1)
		return content[0].(map[string]interface{})["text"].(string)
	}

	response := send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	assert.Equal(t, float64(1), response["id"])
	result := response["result"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	assert.Equal(t, "sql-query-server", result["serverInfo"].(map[string]interface{})["name"])

	response = send(`{"jsonrpc":"2.0","id":"two","method":"tools/list"}`)
	assert.Equal(t, "two", response["id"])
	assert.Len(t, response["result"].(map[string]interface{})["tools"], 3)

	response = send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_databases","arguments":{}}}`)
	assert.Equal(t, "Bases de datos disponibles:\n  - master\n  - sales\n", text(response))

	response = send(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"execute_query","arguments":{"query":"SELECT 1","database":"db1"}}}`)
	assert.Contains(t, text(response), `"query": "SELECT 1"`)

	response = send(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"get_table_schema","arguments":{"database":"db1","table":"missing"}}}`)
	assert.True(t, strings.HasPrefix(text(response), "Error obteniendo esquema: "))

	response = send(`{"jsonrpc":"2.0","id":6,"method":"shutdown"}`)
	assert.Equal(t, float64(-32601), response["error"].(map[string]interface{})["code"])

	_, err = stdin.Write([]byte("\n"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit after an empty line")
	}
}

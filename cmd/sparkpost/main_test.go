package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_key: test-key\nbase_url: " + baseURL + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSendCommand(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transmissions", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"results":{"total_accepted_recipients":1,"total_rejected_recipients":0,"id":"tx-9"}}`))
	}))
	defer srv.Close()

	metrics := filepath.Join(t.TempDir(), "sparkpost.prom")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"send",
		"--config", writeTestConfig(t, srv.URL),
		"--metrics-textfile", metrics,
		"--from", "news@example.com",
		"--to", "a@example.com",
		"--subject", "hi",
		"--text", "hello",
		"--tag", "cli",
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"id": "tx-9"`)

	require.NotNil(t, got)
	assert.Equal(t, false, got["options"].(map[string]any)["sandbox"])
	assert.Equal(t, []any{map[string]any{"address": map[string]any{"email": "a@example.com"}}}, got["recipients"])

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `sparkpost_requests_total{operation="send",outcome="accepted"} 1`)
}

func TestGetCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transmissions/tx-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"results":{"transmission":{"id":"tx-1","state":"submitted","campaign_id":"spring"}}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"get", "tx-1", "--config", writeTestConfig(t, srv.URL)})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"state": "submitted"`)
	assert.Contains(t, out.String(), `"campaign_id": "spring"`)
}

func TestHistoryCommand_NoStore(t *testing.T) {
	rootCmd.SetArgs([]string{"history", "--config", writeTestConfig(t, "http://127.0.0.1:1")})

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "no send log configured")
}

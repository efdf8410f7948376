// Package smoke provides smoke tests for the syncd API.
// Expects a running syncd server at SYNCD_SMOKE_URL.
package smoke

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}
	url := os.Getenv("SYNCD_SMOKE_URL")
	if url == "" {
		t.Skip("SYNCD_SMOKE_URL not set")
	}
	return strings.TrimSuffix(url, "/")
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := httpClient.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func post(t *testing.T, url, body string, headers map[string]string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestSmoke(t *testing.T) {
	root := baseURL(t)
	api := root + "/api/v1"

	t.Run("health", func(t *testing.T) {
		status, body := get(t, root+"/health")
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"healthy"}`, string(body))
	})

	t.Run("entities", func(t *testing.T) {
		status, body := get(t, api+"/entities")
		require.Equal(t, http.StatusOK, status)
		var resp struct {
			Data []struct {
				Type string `json:"type"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.NotEmpty(t, resp.Data)
	})

	t.Run("record_not_found", func(t *testing.T) {
		status, _ := get(t, api+"/records/crm/deal/does-not-exist")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("unknown_entity", func(t *testing.T) {
		status, _ := get(t, api+"/records/crm/unicorn")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("enqueue_sync", func(t *testing.T) {
		headers := map[string]string{}
		if key := os.Getenv("SYNCD_API_KEY"); key != "" {
			headers["X-API-KEY"] = key
		}
		status := post(t, api+"/syncs", `{"entity_type":"crm.deal"}`, headers)
		assert.Equal(t, http.StatusAccepted, status)

		status, _ = get(t, api+"/queue")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("metrics", func(t *testing.T) {
		status, body := get(t, root+"/metrics")
		if status == http.StatusNotFound {
			t.Skip("metrics disabled")
		}
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), "syncd_http_requests_total")
	})
}

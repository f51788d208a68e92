package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/zmapd/internal/config"
	"github.com/ostrand/zmapd/internal/metrics"
	"github.com/ostrand/zmapd/internal/zmap"
)

// fakeEngine writes a shell script standing in for the zmap binary. The
// script answers introspection flags and emulates a scan by writing two
// results to the requested output file.
func fakeEngine(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
case "$1" in
  --list-probe-modules) printf "tcp_synscan\nicmp_echoscan\n"; exit 0 ;;
  --list-output-modules) printf "csv\njson\n"; exit 0 ;;
  --list-output-fields) printf "saddr\nclassification\n"; exit 0 ;;
  --version) printf "zmap 4.1.1\n"; exit 0 ;;
esac
out=""
for arg in "$@"; do
  case "$arg" in
    --output-file=*) out="${arg#--output-file=}" ;;
  esac
done
printf "10.0.0.1\n10.0.0.2\n" > "$out"
exit 0`
	path := filepath.Join(t.TempDir(), "zmap")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Engine.Binary = fakeEngine(t)
	cfg.Engine.TempDir = t.TempDir()
	cfg.Engine.IntrospectionTimeout = 10 * time.Second

	m := metrics.New()
	engine := zmap.New(cfg.Engine, nil, m)
	return New(cfg, engine, m)
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.GetRouter().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), dest))
}

func TestIndex(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "GET", "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]interface{}
	decodeBody(t, recorder, &body)
	assert.Equal(t, "zmapd", body["service"])
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]interface{}
	decodeBody(t, recorder, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	// Generate one request worth of metrics first
	doRequest(t, server, "GET", "/api/v1/health", nil)

	recorder := doRequest(t, server, "GET", "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "zmapd_api_http_requests_total")
}

func TestRunScanEndpoint(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "POST", "/api/v1/scan", map[string]interface{}{
		"config":  map[string]interface{}{"target_port": 80},
		"subnets": []string{"10.0.0.0/8"},
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body struct {
		ScanID     string   `json:"scan_id"`
		Status     string   `json:"status"`
		IPsFound   []string `json:"ips_found"`
		OutputFile string   `json:"output_file"`
	}
	decodeBody(t, recorder, &body)
	assert.NotEmpty(t, body.ScanID)
	assert.Equal(t, "completed", body.Status)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, body.IPsFound)
	assert.NotEmpty(t, body.OutputFile)
}

func TestRunScanInvalidConfig(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "POST", "/api/v1/scan", map[string]interface{}{
		"config": map[string]interface{}{"target_port": 99999},
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]interface{}
	decodeBody(t, recorder, &body)
	assert.Equal(t, "CONFIG", body["code"])
}

func TestRunScanInvalidSubnet(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "POST", "/api/v1/scan", map[string]interface{}{
		"subnets": []string{"not-a-subnet"},
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRunScanUnknownField(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "POST", "/api/v1/scan", map[string]interface{}{
		"confg": map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListScans(t *testing.T) {
	server := newTestServer(t)

	// Run two scans so the registry has entries
	for i := 0; i < 2; i++ {
		recorder := doRequest(t, server, "POST", "/api/v1/scan", map[string]interface{}{
			"subnets": []string{"10.0.0.0/8"},
		})
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	recorder := doRequest(t, server, "GET", "/api/v1/scans", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Scans []struct {
			Status       string `json:"status"`
			TargetsFound int    `json:"targets_found"`
		} `json:"scans"`
	}
	decodeBody(t, recorder, &body)
	require.Len(t, body.Scans, 2)
	for _, scan := range body.Scans {
		assert.Equal(t, "completed", scan.Status)
		assert.Equal(t, 2, scan.TargetsFound)
	}
}

func TestIntrospectionEndpoints(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		path string
		want []string
	}{
		{"/api/v1/probe-modules", []string{"tcp_synscan", "icmp_echoscan"}},
		{"/api/v1/output-modules", []string{"csv", "json"}},
		{"/api/v1/output-fields", []string{"saddr", "classification"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			recorder := doRequest(t, server, "GET", tt.path, nil)
			require.Equal(t, http.StatusOK, recorder.Code)

			var listing []string
			decodeBody(t, recorder, &listing)
			assert.Equal(t, tt.want, listing)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "GET", "/api/v1/version", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]string
	decodeBody(t, recorder, &body)
	assert.Equal(t, "zmap 4.1.1", body["version"])
}

func TestInterfacesEndpoint(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "GET", "/api/v1/interfaces", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var listing []string
	decodeBody(t, recorder, &listing)
	assert.NotEmpty(t, listing)
}

func TestBlocklistEndpoints(t *testing.T) {
	server := newTestServer(t)

	t.Run("create blocklist", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "block.txt")
		recorder := doRequest(t, server, "POST", "/api/v1/blocklist", map[string]interface{}{
			"subnets":     []string{"10.0.0.0/8", "192.168.0.0/16"},
			"output_file": dest,
		})
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

		var body struct {
			FilePath string `json:"file_path"`
		}
		decodeBody(t, recorder, &body)
		assert.Equal(t, dest, body.FilePath)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.0/8\n192.168.0.0/16\n", string(data))
	})

	t.Run("empty subnets rejected", func(t *testing.T) {
		recorder := doRequest(t, server, "POST", "/api/v1/blocklist", map[string]interface{}{
			"subnets": []string{},
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("invalid subnet rejected", func(t *testing.T) {
		recorder := doRequest(t, server, "POST", "/api/v1/allowlist", map[string]interface{}{
			"subnets": []string{"10.0.0.1"},
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("standard blocklist", func(t *testing.T) {
		recorder := doRequest(t, server, "POST", "/api/v1/standard-blocklist", map[string]interface{}{})
		require.Equal(t, http.StatusOK, recorder.Code)

		var body struct {
			FilePath string `json:"file_path"`
		}
		decodeBody(t, recorder, &body)

		data, err := os.ReadFile(body.FilePath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "10.0.0.0/8\n")
		assert.Contains(t, string(data), "240.0.0.0/4\n")
	})
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	recorder := doRequest(t, server, "GET", "/api/v1/scan", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestGetAddress(t *testing.T) {
	server := newTestServer(t)
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", config.Default().API.Port), server.GetAddress())
}

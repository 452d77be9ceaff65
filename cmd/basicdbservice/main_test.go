package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/common"
	"github.com/basicdb/basicdb-go/internal/storage"
	"github.com/basicdb/basicdb-go/internal/storage/memory"
)

func TestNewDriverSelection(t *testing.T) {
	testCases := []struct {
		name    string
		config  func(t *testing.T) *common.Config
		wantErr bool
	}{
		{
			name: "memory",
			config: func(*testing.T) *common.Config {
				return &common.Config{Backend: common.BackendConfig{Driver: "memory"}}
			},
		},
		{
			name: "filesystem",
			config: func(t *testing.T) *common.Config {
				return &common.Config{
					Backend:    common.BackendConfig{Driver: "filesystem"},
					Filesystem: common.FilesystemConfig{BaseDir: t.TempDir()},
				}
			},
		},
		{
			name: "unknown driver",
			config: func(*testing.T) *common.Config {
				return &common.Config{Backend: common.BackendConfig{Driver: "riak"}}
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			driver, shutdown, err := newDriver(context.Background(), tc.config(t))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, driver)
			shutdown()
		})
	}
}

// TestConfigFlagParsing tests the command line flag parsing
func TestConfigFlagParsing(t *testing.T) {
	// Save original os.Args
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	testCases := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "No config flag",
			args:     []string{"cmd"},
			expected: "",
		},
		{
			name:     "With config flag",
			args:     []string{"cmd", "-config", "/path/to/config.yaml"},
			expected: "/path/to/config.yaml",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Args = tc.args

			// Reset flags
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			configPath := flag.String("config", "", "Path to config file")
			flag.Parse()

			assert.Equal(t, tc.expected, *configPath)
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	cfg := &common.Config{Auth: common.AuthConfig{DefaultOwner: "tester"}}
	r := newRouter(cfg, storage.NewStore(memory.New()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"status":"UP"}`, rr.Body.String())
}

// TestRouterWithContextPath tests that the query API and health endpoint
// move together under the configured context path.
func TestRouterWithContextPath(t *testing.T) {
	testCases := []struct {
		name        string
		contextPath string
		actionPath  string
		healthPath  string
	}{
		{
			name:        "No context path",
			contextPath: "",
			actionPath:  "/",
			healthPath:  "/health",
		},
		{
			name:        "With context path",
			contextPath: "/basicdb",
			actionPath:  "/basicdb/",
			healthPath:  "/basicdb/health",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &common.Config{
				Server: common.ServerConfig{ContextPath: tc.contextPath},
				Auth:   common.AuthConfig{DefaultOwner: "tester"},
			}
			r := newRouter(cfg, storage.NewStore(memory.New()))

			req := httptest.NewRequest(http.MethodGet, tc.actionPath+"?Action=ListDomains", nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.True(t, strings.Contains(rr.Body.String(), "<ListDomainsResponse>"),
				"expected a ListDomains envelope, got: %s", rr.Body.String())

			req = httptest.NewRequest(http.MethodGet, tc.healthPath, nil)
			rr = httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

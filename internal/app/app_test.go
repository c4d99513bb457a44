package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/config"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		HTTPAddr:               "127.0.0.1:0",
		ReadTimeout:            time.Second,
		WriteTimeout:           time.Second,
		ShutdownTimeout:        time.Second,
		StoreDriver:            config.StoreDriverMemory,
		CacheEnabled:           true,
		CacheTTL:               time.Minute,
		GitHubOwner:            "owner",
		GitHubRepo:             "repo",
		GitHubBranch:           "main",
		GitHubBaseURL:          "http://127.0.0.1:1",
		GitHubCurrentDir:       "current",
		GitHubHistoricalDir:    "historical",
		GitHubTimeout:          time.Second,
		ImportLocation:         time.UTC,
		ImportFetchConcurrency: 2,
		BackfillTimeout:        time.Second,
		BackfillWorkers:        1,
		AuthMode:               config.AuthModeStatic,
		AuthStaticTokens:       []string{"editor-token"},
		MetricsEnabled:         true,
		DisplayPrimaryColor:    "#007cba",
		DisplaySecondaryColor:  "#6c757d",
	}
}

func TestNew_MemoryStoreServesRoutes(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.closeAll(context.Background()) })

	for _, path := range []string{"/healthz", "/metrics", "/v1/settings/display", "/volleyball/v1/teams/Premier"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		a.Handler().ServeHTTP(rr, req)
		require.Equalf(t, http.StatusOK, rr.Code, "path %s body %s", path, rr.Body.String())
	}
}

func TestNew_ImportRequiresBearerToken(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/volleyball/v1/import-teams", nil)
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNew_MetricsDisabledHidesEndpoint(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.MetricsEnabled = false
	a, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNew_RejectsUnknownDrivers(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"
	_, err := New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "STORE_DRIVER"))

	cfg = memoryConfig()
	cfg.AuthMode = "ldap"
	_, err = New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "AUTH_MODE"))
}

func TestNew_RejectsEmptyAddr(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.HTTPAddr = " "
	_, err := New(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
